package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ProjectContext identifies the project a cache namespace belongs to.
// Two different projects never share cache entries.
type ProjectContext struct {
	VCS  string
	Org  string
	Repo string
}

// NewProjectContext creates a new project context
func NewProjectContext(vcs, org, repo string) *ProjectContext {
	return &ProjectContext{
		VCS:  vcs,
		Org:  org,
		Repo: repo,
	}
}

// Slug returns the CircleCI project slug, e.g. "github/acme/widgets".
func (ctx *ProjectContext) Slug() string {
	return fmt.Sprintf("%s/%s/%s", ctx.VCS, ctx.Org, ctx.Repo)
}

// generateCacheKey generates a stable key for this project for directory
// naming. Hashing keeps the name filesystem-safe regardless of what
// characters appear in the org or repo.
func (ctx *ProjectContext) generateCacheKey() string {
	key := fmt.Sprintf("vcs:%s|org:%s|repo:%s", ctx.VCS, ctx.Org, ctx.Repo)
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", hash)[:16]
}

// CacheSubDirectory returns the namespace subdirectory for this project.
// The name stays human-readable, with the hash guaranteeing uniqueness.
func (ctx *ProjectContext) CacheSubDirectory() string {
	var parts []string
	if ctx.VCS != "" {
		parts = append(parts, sanitizePathPart(ctx.VCS))
	}
	if ctx.Org != "" {
		parts = append(parts, sanitizePathPart(ctx.Org))
	}
	if ctx.Repo != "" {
		parts = append(parts, sanitizePathPart(ctx.Repo))
	}

	if len(parts) > 0 {
		return strings.Join(parts, "-") + "_" + ctx.generateCacheKey()
	}
	return "default_" + ctx.generateCacheKey()
}

var pathPartReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_", "..", "_")

func sanitizePathPart(s string) string {
	return pathPartReplacer.Replace(s)
}
