package cache

// TTL values, in seconds. Positive values expire that many seconds after the
// write. TTLForever never expires (completed CI history is immutable).
// TTLNone is never written at all.
const (
	TTLForever = -1
	TTLNone    = 0
)

// Store defines the interface for cache operations. Implementations must be
// safe for concurrent use within one process.
type Store interface {
	// Get reads the value stored under key into target. Any failure
	// (missing, expired, corrupted) is returned as a *CacheError and must
	// be treated as a cache miss by callers.
	Get(key string, target interface{}) error

	// Set stores data under key with the given TTL. A TTL of TTLNone
	// stores nothing.
	Set(key string, data interface{}, ttl int) error

	// Delete removes the entry stored under key, if any.
	Delete(key string) error
}

// Disabled is a Store that never hits and never persists. Used for the
// no-cache mode: every lookup misses, so no stale value can ever be served.
type Disabled struct{}

func (Disabled) Get(key string, target interface{}) error {
	return &CacheError{Operation: "read", Key: key, Err: errCacheDisabled}
}

func (Disabled) Set(key string, data interface{}, ttl int) error { return nil }

func (Disabled) Delete(key string) error { return nil }
