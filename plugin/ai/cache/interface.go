// Package cache provides the bounded, time-limited cache used for transcripts.
package cache

// CacheService defines the cache operations consumed by the transcript store.
type CacheService[V any] interface {
	// Get retrieves a value from cache.
	// Returns: value, whether it exists and is younger than the TTL
	Get(key string) (V, bool)

	// Set stores a value in cache, refreshing its age.
	Set(key string, value V)

	// Delete removes a single entry.
	Delete(key string) bool

	// Stats returns a usage snapshot.
	Stats() Stats
}

// Ensure LRUCache implements CacheService
var _ CacheService[string] = (*LRUCache[string])(nil)
