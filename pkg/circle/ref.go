package circle

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// AnyBranch is the sentinel ref selecting the latest pipeline across all
// branches of the project.
const AnyBranch = "@any"

// RefKind identifies how a user-supplied pipeline reference was classified
type RefKind int

const (
	// RefLatest selects the latest pipeline on the current git branch
	RefLatest RefKind = iota
	// RefAnyBranch selects the latest pipeline across all branches
	RefAnyBranch
	// RefByID selects a pipeline by UUID
	RefByID
	// RefByNumber selects a pipeline by its sequential number
	RefByNumber
	// RefBranch selects the latest pipeline on a named branch
	RefBranch
)

// PipelineRef is a classified pipeline reference
type PipelineRef struct {
	Kind   RefKind
	ID     string
	Number int
	Branch string
}

// ParsePipelineRef classifies a user-supplied pipeline reference. The
// precedence is fixed and deterministic, because branch names can look like
// numbers:
//
//  1. empty          -> latest pipeline on the current branch
//  2. "@any"         -> latest pipeline across all branches
//  3. UUID shape     -> pipeline ID
//  4. all digits     -> pipeline number
//  5. anything else  -> branch name
//
// A branch genuinely named like "1234" can still be addressed through
// `pipelines list --branch`.
func ParsePipelineRef(ref string) PipelineRef {
	ref = strings.TrimSpace(ref)

	if ref == "" {
		return PipelineRef{Kind: RefLatest}
	}
	if ref == AnyBranch {
		return PipelineRef{Kind: RefAnyBranch}
	}
	if isUUID(ref) {
		return PipelineRef{Kind: RefByID, ID: ref}
	}
	if number, ok := parseNumber(ref); ok {
		return PipelineRef{Kind: RefByNumber, Number: number}
	}
	return PipelineRef{Kind: RefBranch, Branch: ref}
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func parseNumber(s string) (int, bool) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
