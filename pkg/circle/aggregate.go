package circle

import (
	"context"
	"fmt"

	"github.com/Peter554/circle-cli/internal/errors"
	"github.com/Peter554/circle-cli/internal/logger"
	"github.com/Peter554/circle-cli/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UniqueBy selects how aggregated failed tests are collapsed
type UniqueBy string

const (
	// UniqueByNone keeps one entry per failing test
	UniqueByNone UniqueBy = ""
	// UniqueByFile collapses to distinct file paths
	UniqueByFile UniqueBy = "file"
	// UniqueByClassname collapses to distinct (file, classname) pairs
	UniqueByClassname UniqueBy = "classname"
)

// ParseUniqueBy validates a unique-by mode
func ParseUniqueBy(s string) (UniqueBy, error) {
	switch UniqueBy(s) {
	case UniqueByNone, UniqueByFile, UniqueByClassname:
		return UniqueBy(s), nil
	default:
		return "", errors.NewValidationError(
			fmt.Sprintf("invalid unique-by mode %q (expected file or classname)", s), nil)
	}
}

// FailedTest is one aggregated failed-test entry
type FailedTest struct {
	File       string `json:"file"`
	Classname  string `json:"classname,omitempty"`
	Name       string `json:"name,omitempty"`
	Message    string `json:"message,omitempty"`
	JobNumbers []int  `json:"job_numbers,omitempty"`
}

// Warning records a job whose test results could not be fetched. Warnings
// are surfaced distinctly from "no failures": an aggregate with warnings is
// incomplete, not clean.
type Warning struct {
	JobNumber int    `json:"job_number"`
	JobName   string `json:"job_name"`
	Message   string `json:"message"`
}

// FailedTestsReport is the aggregated failed-test view over one workflow
type FailedTestsReport struct {
	WorkflowID string       `json:"workflow_id"`
	Tests      []FailedTest `json:"tests"`
	Warnings   []Warning    `json:"warnings,omitempty"`
}

// Complete reports whether every job's tests were available.
func (r *FailedTestsReport) Complete() bool {
	return len(r.Warnings) == 0
}

// jobTestsOutcome is one fan-out fetch's tagged result. Outcomes are
// collected rather than raised so one failed job degrades the aggregate
// instead of aborting it.
type jobTestsOutcome struct {
	job   models.Job
	tests []models.TestMetadata
	err   error
}

// FailedTests aggregates failed tests across every job of a workflow.
// Per-job test fetches run concurrently under the client's shared
// concurrency cap; the merge happens after all fetches complete and follows
// provider job order, never fetch-arrival order. A failed per-job fetch
// becomes a warning; the aggregate only fails when no job succeeded.
func (m *Manager) FailedTests(ctx context.Context, workflowID string, uniqueBy UniqueBy, includeJobs bool) (*FailedTestsReport, error) {
	workflow, err := m.workflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	jobs, err := m.workflowJobs(ctx, workflow)
	if err != nil {
		return nil, err
	}

	// Approval jobs never run and have no job number, nothing to fetch.
	runnable := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.JobNumber > 0 {
			runnable = append(runnable, job)
		}
	}

	outcomes := make([]jobTestsOutcome, len(runnable))
	g, gctx := errgroup.WithContext(ctx)
	for i, job := range runnable {
		i, job := i, job
		g.Go(func() error {
			tests, err := m.jobTests(gctx, job.JobNumber)
			outcomes[i] = jobTestsOutcome{job: job, tests: tests, err: err}
			// Errors are carried in the outcome, never returned: a
			// failed sub-fetch must not cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()

	report := &FailedTestsReport{WorkflowID: workflowID}
	failures := 0
	for _, outcome := range outcomes {
		if outcome.err != nil {
			logger.GetLogger().Debug("Job tests unavailable",
				zap.Int("job", outcome.job.JobNumber), zap.Error(outcome.err))
			report.Warnings = append(report.Warnings, Warning{
				JobNumber: outcome.job.JobNumber,
				JobName:   outcome.job.Name,
				Message:   fmt.Sprintf("tests unavailable: %v", outcome.err),
			})
			failures++
		}
	}
	if len(runnable) > 0 && failures == len(runnable) {
		return nil, errors.NewProviderError(
			fmt.Sprintf("could not fetch tests for any job of workflow %s", workflowID), nil)
	}

	report.Tests = mergeFailedTests(outcomes, uniqueBy, includeJobs)
	return report, nil
}

// mergeFailedTests merges per-job failures into one collection, collapsing
// by the requested uniqueness mode. Entry order is first-seen in job
// iteration order; job-number lists are deduplicated in the same order.
func mergeFailedTests(outcomes []jobTestsOutcome, uniqueBy UniqueBy, includeJobs bool) []FailedTest {
	merged := make([]FailedTest, 0)
	index := make(map[string]int)

	for _, outcome := range outcomes {
		if outcome.err != nil {
			continue
		}
		for _, test := range outcome.tests {
			if !test.Failed() {
				continue
			}

			var key string
			entry := FailedTest{File: test.File}
			switch uniqueBy {
			case UniqueByFile:
				key = test.File
			case UniqueByClassname:
				key = test.File + "\x00" + test.Classname
				entry.Classname = test.Classname
			default:
				key = fmt.Sprintf("%s\x00%s\x00%s\x00%d", test.File, test.Classname, test.Name, outcome.job.JobNumber)
				entry.Classname = test.Classname
				entry.Name = test.Name
				entry.Message = test.Message
			}

			at, seen := index[key]
			if !seen {
				index[key] = len(merged)
				merged = append(merged, entry)
				at = len(merged) - 1
			}
			if includeJobs {
				merged[at].JobNumbers = appendUnique(merged[at].JobNumbers, outcome.job.JobNumber)
			}
		}
	}

	return merged
}

func appendUnique(numbers []int, n int) []int {
	for _, existing := range numbers {
		if existing == n {
			return numbers
		}
	}
	return append(numbers, n)
}
