// Package filter implements the small status predicate language shared by
// job, step and test listings: a bare status token includes that status,
// a "not:"-prefixed token excludes it.
package filter

import (
	"fmt"
	"strings"

	"github.com/Peter554/circle-cli/internal/errors"
)

const notPrefix = "not:"

// StatusFilter is a parsed status predicate. Positive tokens are
// OR-combined, negative tokens are AND-combined: an item matches when its
// status is in Include (or Include is empty) and not in Exclude.
type StatusFilter struct {
	Include map[string]struct{}
	Exclude map[string]struct{}
}

// Parse builds a StatusFilter from raw specs like "failed" or "not:success".
// The aliases map folds alternate spellings onto the canonical status (e.g.
// "failed" -> "failure" for test results). A status appearing both as a
// positive and a negative spec is a configuration error, never silently
// resolved.
func Parse(specs []string, aliases map[string]string) (*StatusFilter, error) {
	f := &StatusFilter{
		Include: make(map[string]struct{}),
		Exclude: make(map[string]struct{}),
	}

	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}

		negate := strings.HasPrefix(spec, notPrefix)
		token := strings.TrimPrefix(spec, notPrefix)
		if canonical, ok := aliases[token]; ok {
			token = canonical
		}
		if token == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("invalid status filter %q", spec), nil)
		}

		if negate {
			f.Exclude[token] = struct{}{}
		} else {
			f.Include[token] = struct{}{}
		}
	}

	for token := range f.Include {
		if _, ok := f.Exclude[token]; ok {
			return nil, errors.NewValidationError(
				fmt.Sprintf("status %q is both included and excluded", token), nil)
		}
	}

	return f, nil
}

// Matches reports whether a status passes the filter. A nil filter matches
// everything.
func (f *StatusFilter) Matches(status string) bool {
	if f == nil {
		return true
	}
	if len(f.Include) > 0 {
		if _, ok := f.Include[status]; !ok {
			return false
		}
	}
	_, excluded := f.Exclude[status]
	return !excluded
}

// Empty reports whether the filter has no specs at all.
func (f *StatusFilter) Empty() bool {
	return f == nil || (len(f.Include) == 0 && len(f.Exclude) == 0)
}

// TestResultAliases maps the job-status spelling "failed" onto the test
// result vocabulary, so the same flag value works for jobs and tests.
var TestResultAliases = map[string]string{
	"failed": "failure",
}
