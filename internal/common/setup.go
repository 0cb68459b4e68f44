package common

import (
	"fmt"
	"time"

	"github.com/Peter554/circle-cli/internal/cache"
	"github.com/Peter554/circle-cli/internal/circleci"
	"github.com/Peter554/circle-cli/internal/config"
	"github.com/Peter554/circle-cli/pkg/circle"
)

// CommonSetup contains all the common components needed by commands
type CommonSetup struct {
	Config    *config.Config
	Client    *circleci.Client
	FileCache *cache.FileCache
	Manager   *circle.Manager
}

// NewCommonSetup initializes all common components needed by commands that
// talk to CircleCI. Validation happens here so every command fails with the
// same message for a missing token or project.
func NewCommonSetup() (*CommonSetup, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := circleci.NewClient(circleci.ClientConfig{
		Token:         cfg.Token,
		MaxConcurrent: int64(cfg.API.MaxConcurrent),
		Timeout:       time.Duration(cfg.API.Timeout) * time.Second,
	})

	project := cache.NewProjectContext(cfg.VCS, cfg.Org, cfg.Repo)
	fileCache := cache.NewFileCache(cfg.Cache.Directory, project)

	var store cache.Store = fileCache
	if cfg.NoCache {
		store = cache.Disabled{}
	}

	manager := circle.NewManager(cfg, client, store)

	return &CommonSetup{
		Config:    cfg,
		Client:    client,
		FileCache: fileCache,
		Manager:   manager,
	}, nil
}

// NewCacheSetup initializes only what cache maintenance commands need. It
// skips token validation: inspecting or clearing the local cache must work
// without credentials.
func NewCacheSetup() (*CommonSetup, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	project := cache.NewProjectContext(cfg.VCS, cfg.Org, cfg.Repo)
	fileCache := cache.NewFileCache(cfg.Cache.Directory, project)

	return &CommonSetup{
		Config:    cfg,
		FileCache: fileCache,
	}, nil
}
