package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Peter554/circle-cli/internal/logger"

	"go.uber.org/zap"
)

var (
	errCacheDisabled = errors.New("cache disabled")
	errExpired       = errors.New("cache expired")
)

// CacheError represents a structured cache error
type CacheError struct {
	Operation string
	Key       string
	Err       error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s failed for key %s: %v", e.Operation, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// Item is the envelope persisted for every cache entry. The TTL is decided
// at write time from the fetched object and never re-evaluated.
type Item struct {
	Data     json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cached_at"`
	TTL      int             `json:"ttl"`
}

// Expired checks if the cache item has expired. An entry is expired at
// exactly CachedAt+TTL, not one instant later.
func (it *Item) Expired() bool {
	if it.TTL == TTLForever {
		return false
	}
	return time.Since(it.CachedAt).Seconds() >= float64(it.TTL)
}

// NewItem creates a new cache item holding the JSON encoding of data
func NewItem(data interface{}, ttl int) (*Item, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Item{
		Data:     raw,
		CachedAt: time.Now(),
		TTL:      ttl,
	}, nil
}

// GetOrFetch returns the cached value under key if present and fresh,
// otherwise calls fetch, stores the result with the TTL chosen by ttlFor
// from the freshly fetched value, and returns it. Cache failures of any kind
// (including corrupted entries) degrade to a fetch; a failed cache write is
// logged and the fetched value is still returned.
func GetOrFetch[T any](s Store, key string, fetch func() (T, error), ttlFor func(T) int) (T, error) {
	var cached T
	if err := s.Get(key, &cached); err == nil {
		logger.GetLogger().Debug("Cache hit", zap.String("key", key))
		return cached, nil
	} else {
		logger.GetLogger().Debug("Cache miss", zap.String("key", key), zap.Error(err))
	}

	value, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}

	if err := s.Set(key, value, ttlFor(value)); err != nil {
		logger.GetLogger().Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}

	return value, nil
}
