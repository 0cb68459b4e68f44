package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Peter554/circle-cli/internal/models"
	"github.com/Peter554/circle-cli/pkg/circle"
)

// Formatter handles different output formats
type Formatter struct {
	format string
}

// NewFormatter creates a new formatter instance
func NewFormatter(format string) *Formatter {
	return &Formatter{format: format}
}

func (f *Formatter) formatJSON(v interface{}, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// FormatPipelines formats pipelines and their workflows according to the
// specified format
func (f *Formatter) FormatPipelines(items []circle.PipelineWithWorkflows, w io.Writer) error {
	switch f.format {
	case "json":
		return f.formatJSON(items, w)
	case "pretty":
		return f.formatPipelinesPretty(items, w)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

func (f *Formatter) formatPipelinesPretty(items []circle.PipelineWithWorkflows, w io.Writer) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No pipelines found.")
		return err
	}

	for i, item := range items {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		p := item.Pipeline
		header := fmt.Sprintf("Pipeline #%d", p.Number)
		if _, err := fmt.Fprintf(w, "%s  %s  %s  %s\n",
			Highlight(header),
			p.Branch(),
			shortRevision(p.Revision()),
			p.CreatedAt.Local().Format("2006-01-02 15:04-0700"),
		); err != nil {
			return err
		}

		if len(item.Workflows) == 0 {
			if _, err := fmt.Fprintln(w, "  (no workflows)"); err != nil {
				return err
			}
			continue
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, wf := range item.Workflows {
			if _, err := fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
				wf.Name,
				StatusText(string(wf.Status)),
				formatDuration(wf.Duration()),
				wf.ID,
			); err != nil {
				return err
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	return nil
}

// FormatWorkflows formats a pipeline's workflows according to the specified
// format
func (f *Formatter) FormatWorkflows(pipeline models.Pipeline, workflows []models.Workflow, w io.Writer) error {
	switch f.format {
	case "json":
		return f.formatJSON(circle.PipelineWithWorkflows{Pipeline: pipeline, Workflows: workflows}, w)
	case "pretty":
		return f.formatWorkflowsPretty(pipeline, workflows, w)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

func (f *Formatter) formatWorkflowsPretty(pipeline models.Pipeline, workflows []models.Workflow, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s  %s  %s\n",
		Highlight(fmt.Sprintf("Pipeline #%d", pipeline.Number)),
		pipeline.Branch(),
		shortRevision(pipeline.Revision()),
	); err != nil {
		return err
	}
	if len(workflows) == 0 {
		_, err := fmt.Fprintln(w, "No workflows found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "NAME\tSTATUS\tDURATION\tCREATED\tID"); err != nil {
		return err
	}
	for _, wf := range workflows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			wf.Name,
			StatusText(string(wf.Status)),
			formatDuration(wf.Duration()),
			wf.CreatedAt.Local().Format("2006-01-02 15:04-0700"),
			wf.ID,
		); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// FormatJobs formats jobs grouped by workflow according to the specified
// format
func (f *Formatter) FormatJobs(groups []circle.WorkflowJobs, w io.Writer) error {
	switch f.format {
	case "json":
		return f.formatJSON(groups, w)
	case "pretty":
		return f.formatJobsPretty(groups, w)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

func (f *Formatter) formatJobsPretty(groups []circle.WorkflowJobs, w io.Writer) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, "No workflows found.")
		return err
	}

	for i, group := range groups {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s %s\n",
			Highlight("Workflow "+group.Workflow.Name),
			StatusText(string(group.Workflow.Status)),
		); err != nil {
			return err
		}
		if len(group.Jobs) == 0 {
			if _, err := fmt.Fprintln(w, "  (no jobs matched)"); err != nil {
				return err
			}
			continue
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, job := range group.Jobs {
			if _, err := fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
				jobNumberText(job.JobNumber),
				job.Name,
				StatusText(string(job.Status)),
				formatDuration(job.Duration()),
			); err != nil {
				return err
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	return nil
}

// FormatJobSteps formats a job's details and per-run steps according to the
// specified format
func (f *Formatter) FormatJobSteps(job *circle.JobSteps, w io.Writer) error {
	switch f.format {
	case "json":
		return f.formatJSON(job, w)
	case "pretty":
		return f.formatJobStepsPretty(job, w)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

func (f *Formatter) formatJobStepsPretty(job *circle.JobSteps, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s  %s  parallelism %d\n",
		Highlight(fmt.Sprintf("Job #%d %s", job.Details.Number, job.Details.Name)),
		StatusText(string(job.Details.Status)),
		job.Details.Parallelism,
	); err != nil {
		return err
	}

	if len(job.Runs) == 0 {
		_, err := fmt.Fprintln(w, "No steps matched.")
		return err
	}

	for _, run := range job.Runs {
		if job.Details.Parallelism > 1 {
			if _, err := fmt.Fprintf(w, "Run %d:\n", run.Index); err != nil {
				return err
			}
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, step := range run.Steps {
			if _, err := fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n",
				step.StepIndex,
				step.Name,
				StatusText(step.Action.Status),
				formatMillis(step.Action.RunTime),
			); err != nil {
				return err
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	return nil
}

// FormatOutput formats step output messages. Pretty output writes raw
// message text so logs stay greppable.
func (f *Formatter) FormatOutput(messages []models.OutputMessage, w io.Writer) error {
	switch f.format {
	case "json":
		return f.formatJSON(messages, w)
	case "pretty":
		if len(messages) == 0 {
			_, err := fmt.Fprintln(w, "No output.")
			return err
		}
		for _, msg := range messages {
			text := msg.Message
			if msg.Type == "err" {
				text = Error(text)
			}
			if _, err := fmt.Fprintln(w, text); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// FormatTests formats one job's test results according to the specified
// format
func (f *Formatter) FormatTests(tests []models.TestMetadata, w io.Writer) error {
	switch f.format {
	case "json":
		return f.formatJSON(tests, w)
	case "pretty":
		return f.formatTestsPretty(tests, w)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

func (f *Formatter) formatTestsPretty(tests []models.TestMetadata, w io.Writer) error {
	if len(tests) == 0 {
		_, err := fmt.Fprintln(w, "No tests found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "RESULT\tFILE\tCLASSNAME\tNAME\tTIME"); err != nil {
		return err
	}
	for _, test := range tests {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2fs\n",
			StatusText(string(test.Result)),
			test.File,
			test.Classname,
			test.Name,
			test.RunTime,
		); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// FormatFailedTests formats an aggregated failed-test report. Warnings about
// jobs whose results were unavailable always render, so an incomplete report
// is never mistaken for a clean one.
func (f *Formatter) FormatFailedTests(report *circle.FailedTestsReport, w io.Writer) error {
	switch f.format {
	case "json":
		return f.formatJSON(report, w)
	case "pretty":
		return f.formatFailedTestsPretty(report, w)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

func (f *Formatter) formatFailedTestsPretty(report *circle.FailedTestsReport, w io.Writer) error {
	for _, warning := range report.Warnings {
		if _, err := fmt.Fprintln(w, Warning(fmt.Sprintf("⚠ job #%d (%s): %s",
			warning.JobNumber, warning.JobName, warning.Message))); err != nil {
			return err
		}
	}

	if len(report.Tests) == 0 {
		if report.Complete() {
			_, err := fmt.Fprintln(w, "No failed tests.")
			return err
		}
		_, err := fmt.Fprintln(w, "No failed tests among the jobs that could be checked.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, test := range report.Tests {
		cols := []string{Error(test.File)}
		if test.Classname != "" {
			cols = append(cols, test.Classname)
		}
		if test.Name != "" {
			cols = append(cols, test.Name)
		}
		if test.Message != "" {
			cols = append(cols, firstLine(test.Message))
		}
		if len(test.JobNumbers) > 0 {
			cols = append(cols, "jobs "+joinInts(test.JobNumbers))
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cols, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func jobNumberText(n int) string {
	if n <= 0 {
		return "-"
	}
	return "#" + strconv.Itoa(n)
}

func shortRevision(revision string) string {
	if len(revision) > 7 {
		return revision[:7]
	}
	return revision
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func formatMillis(millis float64) string {
	if millis <= 0 {
		return "-"
	}
	return (time.Duration(millis) * time.Millisecond).Round(time.Millisecond * 10).String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func joinInts(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
