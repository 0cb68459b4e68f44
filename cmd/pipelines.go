package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Peter554/circle-cli/internal/common"
	"github.com/Peter554/circle-cli/internal/utils"
)

var pipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "Inspect pipelines",
}

var pipelinesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the latest pipelines and their workflows",
	Long: `List the most recent pipelines for a branch, each with its workflows.
Defaults to the current git branch; pass --branch @any for all branches.`,
	RunE: runPipelinesList,
}

var (
	pipelinesBranch string
	pipelinesLimit  int
)

func init() {
	rootCmd.AddCommand(pipelinesCmd)
	pipelinesCmd.AddCommand(pipelinesListCmd)

	pipelinesListCmd.Flags().StringVarP(&pipelinesBranch, "branch", "b", "", "Branch to list pipelines for (@any for all branches)")
	pipelinesListCmd.Flags().IntVarP(&pipelinesLimit, "limit", "n", 5, "Number of pipelines to list")
}

func runPipelinesList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	setup, err := common.NewCommonSetup()
	if err != nil {
		return err
	}

	if pipelinesLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", pipelinesLimit)
	}

	pipelines, err := setup.Manager.LatestPipelines(ctx, pipelinesBranch, pipelinesLimit)
	if err != nil {
		return err
	}

	formatter := utils.NewFormatter(setup.Config.Output.Format)
	return formatter.FormatPipelines(pipelines, os.Stdout)
}
