// Package cache provides a generic, thread-safe LRU cache with optional entry
// expiry, always-on statistics and optional Prometheus metrics.
package cache

import (
	"github.com/c360/semlink/errors"
)

// Cache represents a generic cache interface.
// The cache is parameterized by value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found, zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry was created, false if updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed and was deleted.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns the keys currently in the cache, most recently used first.
	Keys() []string

	// Stats returns cache statistics, nil for a disabled cache.
	Stats() *Statistics

	// Close releases resources held by the cache.
	Close() error
}

// EvictCallback is called when an entry is evicted from the cache.
type EvictCallback[V any] func(key string, value V)

// validateKey returns a classified error for keys the cache cannot hold.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
