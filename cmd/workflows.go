package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/Peter554/circle-cli/internal/common"
	"github.com/Peter554/circle-cli/internal/utils"
	"github.com/Peter554/circle-cli/pkg/circle"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "Inspect workflows",
}

var workflowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the workflows of a pipeline",
	Long: `List all workflows of one pipeline. The pipeline reference may be empty
(latest on the current branch), a branch name, @any, a pipeline UUID or a
pipeline number.`,
	RunE: runWorkflowsList,
}

var workflowsPipelineRef string

func init() {
	rootCmd.AddCommand(workflowsCmd)
	workflowsCmd.AddCommand(workflowsListCmd)

	workflowsListCmd.Flags().StringVarP(&workflowsPipelineRef, "pipeline", "p", "", "Pipeline reference (branch, @any, UUID or number)")
}

func runWorkflowsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	setup, err := common.NewCommonSetup()
	if err != nil {
		return err
	}

	ref := circle.ParsePipelineRef(workflowsPipelineRef)
	result, err := setup.Manager.Workflows(ctx, ref)
	if err != nil {
		return err
	}

	formatter := utils.NewFormatter(setup.Config.Output.Format)
	return formatter.FormatWorkflows(result.Pipeline, result.Workflows, os.Stdout)
}
