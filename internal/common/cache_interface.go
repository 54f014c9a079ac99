package common

import "time"

// CacheInterface defines the contract for cache implementations. Values are
// stored as JSON so every backend hands back an independent copy.
type CacheInterface interface {
	// Set stores a value in cache with the given key and duration
	Set(key string, value interface{}, duration time.Duration)

	// Get decodes the cached value for key into dst and reports whether it was found
	Get(key string, dst interface{}) bool

	// Delete removes a value from cache by key
	Delete(key string)

	// Close closes any underlying connections (for Redis, etc.)
	Close() error
}
