package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Peter554/circle-cli/internal/logger"

	"go.uber.org/zap"
)

// FileCache is a file-based cache scoped to one project's namespace. Each
// entry is one JSON file holding an Item envelope. Expired entries are
// deleted lazily the moment they are read; Prune deletes them eagerly.
type FileCache struct {
	baseDir string
	project *ProjectContext
	config  *CacheConfig
}

// CacheConfig holds configuration for cache file operations
type CacheConfig struct {
	DirPermission  os.FileMode
	FilePermission os.FileMode
}

// DefaultCacheConfig returns default cache configuration
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		DirPermission:  0755,
		FilePermission: 0644,
	}
}

// NewFileCache creates a new file cache for the given project
func NewFileCache(baseDir string, project *ProjectContext) *FileCache {
	return &FileCache{
		baseDir: baseDir,
		project: project,
	}
}

// getCacheDir returns the namespace directory for this project
func (fc *FileCache) getCacheDir() string {
	return filepath.Join(fc.baseDir, fc.project.CacheSubDirectory())
}

// GetCacheDir returns the cache directory (public method for external access)
func (fc *FileCache) GetCacheDir() string {
	return fc.getCacheDir()
}

// keyPath maps a cache key to its file path within the namespace. The file
// name keeps a sanitized readable prefix, with a hash of the raw key
// guaranteeing uniqueness: sanitizing alone is not injective, keys like
// "branch:a/b" and "branch:a_b" would collide.
func (fc *FileCache) keyPath(key string) string {
	hash := sha256.Sum256([]byte(key))
	name := fmt.Sprintf("%s_%x.json", sanitizePathPart(key), hash[:8])
	return filepath.Join(fc.getCacheDir(), name)
}

// Get reads the entry stored under key into target. Missing, expired and
// corrupted entries all come back as a *CacheError; expired and corrupted
// files are removed on the way out so they are not decoded again.
func (fc *FileCache) Get(key string, target interface{}) error {
	cachePath := fc.keyPath(key)

	data, err := os.ReadFile(cachePath)
	if err != nil {
		logger.GetLogger().Debug("Failed to read cache file", zap.String("path", cachePath), zap.Error(err))
		return &CacheError{Operation: "read", Key: key, Err: err}
	}

	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		logger.GetLogger().Debug("Corrupted cache entry, removing", zap.String("key", key), zap.Error(err))
		_ = os.Remove(cachePath)
		return &CacheError{Operation: "unmarshal", Key: key, Err: err}
	}

	if item.Expired() {
		logger.GetLogger().Debug("Cache entry expired, removing", zap.String("key", key))
		_ = os.Remove(cachePath)
		return &CacheError{Operation: "read", Key: key, Err: errExpired}
	}

	if err := json.Unmarshal(item.Data, target); err != nil {
		logger.GetLogger().Debug("Corrupted cache payload, removing", zap.String("key", key), zap.Error(err))
		_ = os.Remove(cachePath)
		return &CacheError{Operation: "unmarshal", Key: key, Err: err}
	}

	return nil
}

// Set stores data under key with the given TTL. TTLNone stores nothing.
func (fc *FileCache) Set(key string, data interface{}, ttl int) error {
	if ttl == TTLNone {
		return nil
	}

	item, err := NewItem(data, ttl)
	if err != nil {
		return &CacheError{Operation: "marshal", Key: key, Err: err}
	}

	jsonData, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return &CacheError{Operation: "marshal", Key: key, Err: err}
	}

	cachePath := fc.keyPath(key)
	if err := os.MkdirAll(filepath.Dir(cachePath), fc.getConfig().DirPermission); err != nil {
		return &CacheError{Operation: "mkdir", Key: key, Err: err}
	}

	if err := os.WriteFile(cachePath, jsonData, fc.getConfig().FilePermission); err != nil {
		return &CacheError{Operation: "write", Key: key, Err: err}
	}

	return nil
}

// Delete removes the entry stored under key
func (fc *FileCache) Delete(key string) error {
	if err := os.Remove(fc.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return &CacheError{Operation: "delete", Key: key, Err: err}
	}
	return nil
}

// Size returns the total size in bytes of this project's cache namespace
func (fc *FileCache) Size() (int64, error) {
	var totalSize int64
	err := filepath.Walk(fc.getCacheDir(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files that can't be accessed
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil && !os.IsNotExist(err) {
		return 0, err
	}
	return totalSize, nil
}

// Prune eagerly deletes all currently-expired entries in this project's
// namespace and returns how many were removed. Entries that are still fresh
// are left untouched; unreadable entries are skipped.
func (fc *FileCache) Prune() (int, error) {
	cacheDir := fc.getCacheDir()
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, &CacheError{Operation: "prune", Key: cacheDir, Err: err}
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		entryPath := filepath.Join(cacheDir, entry.Name())

		data, err := os.ReadFile(entryPath)
		if err != nil {
			logger.GetLogger().Debug("Skipping unreadable cache entry", zap.String("path", entryPath), zap.Error(err))
			continue
		}

		var item Item
		if err := json.Unmarshal(data, &item); err != nil {
			logger.GetLogger().Debug("Skipping corrupted cache entry", zap.String("path", entryPath), zap.Error(err))
			continue
		}

		if !item.Expired() {
			continue
		}

		if err := os.Remove(entryPath); err != nil {
			logger.GetLogger().Debug("Failed to remove expired cache entry", zap.String("path", entryPath), zap.Error(err))
			continue
		}
		removed++
	}

	return removed, nil
}

// Clear deletes every entry in this project's namespace and returns how many
// were removed. Other projects' namespaces are not touched.
func (fc *FileCache) Clear() (int, error) {
	cacheDir := fc.getCacheDir()
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.GetLogger().Debug("Cache directory does not exist", zap.String("dir", cacheDir))
			return 0, nil
		}
		return 0, &CacheError{Operation: "clear", Key: cacheDir, Err: err}
	}

	removed := 0
	for _, entry := range entries {
		entryPath := filepath.Join(cacheDir, entry.Name())
		if entry.IsDir() {
			if err := os.RemoveAll(entryPath); err != nil {
				return removed, &CacheError{Operation: "clear", Key: entryPath, Err: err}
			}
			continue
		}
		if err := os.Remove(entryPath); err != nil {
			return removed, &CacheError{Operation: "clear", Key: entryPath, Err: err}
		}
		removed++
	}

	logger.GetLogger().Debug("Cache cleared", zap.String("dir", cacheDir), zap.Int("removed", removed))
	return removed, nil
}

// getConfig returns cache configuration (with defaults if not set)
func (fc *FileCache) getConfig() *CacheConfig {
	if fc.config == nil {
		fc.config = DefaultCacheConfig()
	}
	return fc.config
}
