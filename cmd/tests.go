package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Peter554/circle-cli/internal/common"
	"github.com/Peter554/circle-cli/internal/filter"
	"github.com/Peter554/circle-cli/internal/utils"
	"github.com/Peter554/circle-cli/pkg/circle"
)

var testsCmd = &cobra.Command{
	Use:   "tests",
	Short: "Inspect test results",
}

var testsListCmd = &cobra.Command{
	Use:   "list JOB_NUMBER",
	Short: "List a job's test results",
	Long: `List the test results of one job. Results can be filtered by outcome
(--status failed accepts both "failed" and "failure") and by file suffix.`,
	Args: cobra.ExactArgs(1),
	RunE: runTestsList,
}

var testsFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "Aggregate failed tests across a workflow",
	Long: `Collect the failed tests of every job in a workflow into one list.
--unique-by file collapses to distinct files, --unique-by classname to
distinct (file, classname) pairs. Jobs whose results cannot be fetched are
reported as warnings rather than failing the whole command.`,
	RunE: runTestsFailed,
}

var (
	testsStatuses   []string
	testsFileSuffix string

	testsFailedWorkflowID  string
	testsFailedUniqueBy    string
	testsFailedIncludeJobs bool
)

func init() {
	rootCmd.AddCommand(testsCmd)
	testsCmd.AddCommand(testsListCmd)
	testsCmd.AddCommand(testsFailedCmd)

	testsListCmd.Flags().StringArrayVarP(&testsStatuses, "status", "s", nil, "Test result filter, not: prefix excludes (repeatable)")
	testsListCmd.Flags().StringVar(&testsFileSuffix, "file-suffix", "", "Only tests whose file path ends with this suffix")

	testsFailedCmd.Flags().StringVarP(&testsFailedWorkflowID, "workflow", "w", "", "Workflow ID to aggregate over")
	testsFailedCmd.Flags().StringVar(&testsFailedUniqueBy, "unique-by", "", "Collapse failures (file or classname)")
	testsFailedCmd.Flags().BoolVar(&testsFailedIncludeJobs, "include-jobs", false, "List the job numbers each failure occurred in")
	if err := testsFailedCmd.MarkFlagRequired("workflow"); err != nil {
		fmt.Printf("Error marking workflow flag required: %v\n", err)
	}
}

func runTestsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	setup, err := common.NewCommonSetup()
	if err != nil {
		return err
	}

	jobNumber, err := parseJobNumber(args[0])
	if err != nil {
		return err
	}
	resultFilter, err := filter.Parse(testsStatuses, filter.TestResultAliases)
	if err != nil {
		return err
	}

	tests, err := setup.Manager.JobTests(ctx, jobNumber, resultFilter, testsFileSuffix)
	if err != nil {
		return err
	}

	formatter := utils.NewFormatter(setup.Config.Output.Format)
	return formatter.FormatTests(tests, os.Stdout)
}

func runTestsFailed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	setup, err := common.NewCommonSetup()
	if err != nil {
		return err
	}

	uniqueBy, err := circle.ParseUniqueBy(testsFailedUniqueBy)
	if err != nil {
		return err
	}

	report, err := setup.Manager.FailedTests(ctx, testsFailedWorkflowID, uniqueBy, testsFailedIncludeJobs)
	if err != nil {
		return err
	}

	formatter := utils.NewFormatter(setup.Config.Output.Format)
	return formatter.FormatFailedTests(report, os.Stdout)
}
