package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Peter554/circle-cli/internal/errors"
	"github.com/Peter554/circle-cli/internal/logger"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config represents the resolved application configuration. The core only
// ever sees this struct; flag/env/file precedence is viper's problem.
type Config struct {
	Token   string       `mapstructure:"token"`
	VCS     string       `mapstructure:"vcs"`
	Org     string       `mapstructure:"org"`
	Repo    string       `mapstructure:"repo"`
	NoCache bool         `mapstructure:"no_cache"`
	Cache   CacheConfig  `mapstructure:"cache"`
	API     APIConfig    `mapstructure:"api"`
	Output  OutputConfig `mapstructure:"output"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	Directory string `mapstructure:"directory"`
	// RunningTTL is the TTL in seconds for entries describing still-running
	// pipelines, workflows and jobs.
	RunningTTL int `mapstructure:"running_ttl"`
	// TerminalTTL is the TTL in seconds for entries describing terminal
	// objects. Zero or negative means cache forever: completed CI history
	// is immutable.
	TerminalTTL int `mapstructure:"terminal_ttl"`
}

// APIConfig represents CircleCI API configuration
type APIConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"` // Maximum in-flight API requests
	Timeout       int `mapstructure:"timeout"`        // Per-request timeout in seconds
}

// OutputConfig represents output configuration
type OutputConfig struct {
	Format string `mapstructure:"format"` // pretty, json
	Color  bool   `mapstructure:"color"`
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	viper.SetDefault("vcs", "github")
	viper.SetDefault("no_cache", false)
	viper.SetDefault("cache.directory", getDefaultCacheDir())
	viper.SetDefault("cache.running_ttl", 10)
	viper.SetDefault("cache.terminal_ttl", 0)
	viper.SetDefault("api.max_concurrent", 5)
	viper.SetDefault("api.timeout", 30)
	viper.SetDefault("output.format", "pretty")
	viper.SetDefault("output.color", true)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigError("failed to parse configuration", err)
	}

	vcs, err := normalizeVCS(config.VCS)
	if err != nil {
		return nil, err
	}
	config.VCS = vcs

	config.Cache.Directory = expandPath(config.Cache.Directory)

	logger.GetLogger().Debug("Configuration loaded",
		zap.String("vcs", config.VCS),
		zap.String("org", config.Org),
		zap.String("repo", config.Repo),
		zap.Bool("no_cache", config.NoCache),
		zap.String("cache_directory", config.Cache.Directory),
		zap.Int("cache_running_ttl", config.Cache.RunningTTL),
		zap.Int("cache_terminal_ttl", config.Cache.TerminalTTL),
		zap.Int("api_max_concurrent", config.API.MaxConcurrent))

	return &config, nil
}

// Validate checks that everything needed to talk to CircleCI is present
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.NewConfigError("missing API token: set CIRCLE_TOKEN, the token config key, or --token", nil)
	}
	if c.Org == "" {
		return errors.NewConfigError("missing organisation: set CIRCLE_ORG, the org config key, or --org", nil)
	}
	if c.Repo == "" {
		return errors.NewConfigError("missing repository: set CIRCLE_REPO, the repo config key, or --repo", nil)
	}
	return nil
}

// ProjectSlug returns the CircleCI project slug, e.g. "github/acme/widgets"
func (c *Config) ProjectSlug() string {
	return fmt.Sprintf("%s/%s/%s", c.VCS, c.Org, c.Repo)
}

// normalizeVCS maps accepted VCS spellings onto the canonical slug prefix
func normalizeVCS(vcs string) (string, error) {
	switch vcs {
	case "github", "gh":
		return "github", nil
	case "bitbucket", "bb":
		return "bitbucket", nil
	default:
		return "", errors.NewConfigError(
			fmt.Sprintf("unsupported vcs %q (expected github or bitbucket)", vcs), nil)
	}
}

// getDefaultCacheDir returns the default cache directory
func getDefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "circle-cli")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".circle-cli/cache"
	}
	return filepath.Join(homeDir, ".circle-cli", "cache")
}

// expandPath expands tilde (~) in file paths
func expandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if len(path) == 1 {
		return homeDir
	}

	if path[1] == '/' {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}
