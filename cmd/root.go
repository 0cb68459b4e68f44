package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Peter554/circle-cli/internal/logger"
	"github.com/Peter554/circle-cli/internal/utils"
)

var (
	cfgFile string
	debug   bool
	noColor bool
	rootCmd = &cobra.Command{
		Use:   "circle-cli",
		Short: "Inspect CircleCI pipelines, workflows, jobs and tests",
		Long: `A read-only CLI for inspecting CircleCI state for one project:
pipelines, workflows, jobs, step output and test results, backed by a
persistent per-project cache.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Set color output based on flag
			utils.SetColorOutput(!noColor)
			return logger.InitLogger(debug)
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, utils.Error("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .circle-cli.yaml, then $HOME/.circle-cli.yaml)")
	rootCmd.PersistentFlags().String("token", "", "CircleCI API token")
	rootCmd.PersistentFlags().String("vcs", "", "VCS provider (github or bitbucket)")
	rootCmd.PersistentFlags().String("org", "", "Organisation or user name")
	rootCmd.PersistentFlags().String("repo", "", "Repository name")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Bypass the cache entirely")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (pretty, json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Bind flags to viper
	bindings := map[string]string{
		"token":         "token",
		"vcs":           "vcs",
		"org":           "org",
		"repo":          "repo",
		"no_cache":      "no-cache",
		"output.format": "output",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Printf("Error binding %s flag: %v\n", flag, err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search config in the working directory first, then home, with
		// name ".circle-cli" (without extension).
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".circle-cli")
	}

	// CIRCLE_TOKEN, CIRCLE_ORG, CIRCLE_OUTPUT_FORMAT and friends.
	viper.SetEnvPrefix("circle")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger.GetLogger().Debug("Using config file: " + viper.ConfigFileUsed())
	}
}
