// Package git provides the minimal repository introspection the CLI needs:
// which branch is currently checked out.
package git

import (
	"fmt"

	gogit "github.com/go-git/go-git/v5"
)

// CurrentBranch returns the branch currently checked out in the repository
// containing the working directory.
func CurrentBranch() (string, error) {
	repo, err := gogit.PlainOpenWithOptions(".", &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("not inside a git repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached, no current branch")
	}

	return head.Name().Short(), nil
}
