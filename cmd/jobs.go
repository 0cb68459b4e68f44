package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Peter554/circle-cli/internal/common"
	"github.com/Peter554/circle-cli/internal/filter"
	"github.com/Peter554/circle-cli/internal/utils"
	"github.com/Peter554/circle-cli/pkg/circle"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs grouped by workflow",
	Long: `List the jobs of a pipeline's workflows. Jobs can be filtered by status,
including negated filters such as --status not:success.`,
	RunE: runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show JOB_NUMBER",
	Short: "Show a job's details and steps",
	Long: `Show one job's details with its steps grouped by parallel run index.
Steps can be filtered by status, e.g. --status failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runJobsShow,
}

var jobsOutputCmd = &cobra.Command{
	Use:   "output JOB_NUMBER",
	Short: "Print one step's log output",
	Long: `Print the log output of one step of a job. Parallel jobs require
--index to pick the parallel run.`,
	Args: cobra.ExactArgs(1),
	RunE: runJobsOutput,
}

var (
	jobsPipelineRef string
	jobsWorkflowIDs []string
	jobsStatuses    []string

	jobsShowStatuses []string

	jobsOutputStep  int
	jobsOutputIndex int
)

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsOutputCmd)

	jobsListCmd.Flags().StringVarP(&jobsPipelineRef, "pipeline", "p", "", "Pipeline reference (branch, @any, UUID or number)")
	jobsListCmd.Flags().StringArrayVarP(&jobsWorkflowIDs, "workflow", "w", nil, "Workflow ID (repeatable)")
	jobsListCmd.Flags().StringArrayVarP(&jobsStatuses, "status", "s", nil, "Job status filter, not: prefix excludes (repeatable)")

	jobsShowCmd.Flags().StringArrayVarP(&jobsShowStatuses, "status", "s", nil, "Step status filter, not: prefix excludes (repeatable)")

	jobsOutputCmd.Flags().IntVar(&jobsOutputStep, "step", -1, "Step index to print output for")
	jobsOutputCmd.Flags().IntVar(&jobsOutputIndex, "index", -1, "Parallel run index (required for parallel jobs)")
	if err := jobsOutputCmd.MarkFlagRequired("step"); err != nil {
		fmt.Printf("Error marking step flag required: %v\n", err)
	}
}

func parseJobNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid job number %q", arg)
	}
	return n, nil
}

func runJobsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	setup, err := common.NewCommonSetup()
	if err != nil {
		return err
	}

	statusFilter, err := filter.Parse(jobsStatuses, nil)
	if err != nil {
		return err
	}

	ref := circle.ParsePipelineRef(jobsPipelineRef)
	refGiven := cmd.Flags().Changed("pipeline")
	groups, err := setup.Manager.Jobs(ctx, ref, refGiven, jobsWorkflowIDs, statusFilter)
	if err != nil {
		return err
	}

	formatter := utils.NewFormatter(setup.Config.Output.Format)
	return formatter.FormatJobs(groups, os.Stdout)
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	setup, err := common.NewCommonSetup()
	if err != nil {
		return err
	}

	jobNumber, err := parseJobNumber(args[0])
	if err != nil {
		return err
	}
	stepFilter, err := filter.Parse(jobsShowStatuses, nil)
	if err != nil {
		return err
	}

	job, err := setup.Manager.JobSteps(ctx, jobNumber, stepFilter)
	if err != nil {
		return err
	}

	formatter := utils.NewFormatter(setup.Config.Output.Format)
	return formatter.FormatJobSteps(job, os.Stdout)
}

func runJobsOutput(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	setup, err := common.NewCommonSetup()
	if err != nil {
		return err
	}

	jobNumber, err := parseJobNumber(args[0])
	if err != nil {
		return err
	}

	messages, err := setup.Manager.JobOutput(ctx, jobNumber, jobsOutputStep, jobsOutputIndex)
	if err != nil {
		return err
	}

	formatter := utils.NewFormatter(setup.Config.Output.Format)
	return formatter.FormatOutput(messages, os.Stdout)
}
