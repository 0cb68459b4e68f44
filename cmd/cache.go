package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Peter554/circle-cli/internal/common"
	"github.com/Peter554/circle-cli/internal/utils"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache management commands",
	Long:  `Inspect and maintain the per-project response cache.`,
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache status",
	Long:  `Show the cache location, TTL settings and size for the current project.`,
	RunE:  runCacheStatus,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired cache entries",
	RunE:  runCachePrune,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cache entries for the current project",
	Long: `Remove every cached entry for the current project. Entries of other
projects are untouched.`,
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	setup, err := common.NewCacheSetup()
	if err != nil {
		return err
	}
	cfg := setup.Config

	fmt.Printf("%s\n\n", utils.Highlight("=== Cache Status ==="))
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Base Directory: %s\n", cfg.Cache.Directory)
	fmt.Printf("  Project: %s\n", cfg.ProjectSlug())
	fmt.Printf("  Project Directory: %s\n", setup.FileCache.GetCacheDir())
	fmt.Printf("  TTL Settings:\n")
	fmt.Printf("    Running: %d seconds\n", cfg.Cache.RunningTTL)
	if cfg.Cache.TerminalTTL <= 0 {
		fmt.Printf("    Terminal: forever\n")
	} else {
		fmt.Printf("    Terminal: %d seconds\n", cfg.Cache.TerminalTTL)
	}
	fmt.Println()

	size, err := setup.FileCache.Size()
	if err != nil {
		return fmt.Errorf("failed to calculate cache size: %w", err)
	}
	fmt.Printf("Total Size: %s\n", formatBytes(size))

	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	setup, err := common.NewCacheSetup()
	if err != nil {
		return err
	}

	pruned, err := setup.FileCache.Prune()
	if err != nil {
		return fmt.Errorf("failed to prune cache: %w", err)
	}

	fmt.Printf("Pruned %d expired entries from %s\n", pruned, setup.FileCache.GetCacheDir())
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	setup, err := common.NewCacheSetup()
	if err != nil {
		return err
	}

	removed, err := setup.FileCache.Clear()
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	fmt.Printf("Removed %d entries from %s\n", removed, setup.FileCache.GetCacheDir())
	return nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
