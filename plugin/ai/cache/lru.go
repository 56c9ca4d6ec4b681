package cache

import (
	"container/list"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultMaxSize is the default number of entries kept by the cache.
	DefaultMaxSize = 50
	// DefaultTTL is the default maximum age of an entry.
	DefaultTTL = 24 * time.Hour
)

// LRUCache implements a bounded cache with LRU eviction and lazy TTL expiry.
// The recency list doubles as insertion order, so the back of the list is
// both the oldest and the least recently used entry.
type LRUCache[V any] struct {
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex

	cache map[string]*entry[V]
	order *list.List // Doubly linked list for LRU ordering, front is most recent

	hits   int64
	misses int64
}

type entry[V any] struct {
	key       string
	value     V
	createdAt time.Time
	element   *list.Element
}

// Stats is a point-in-time snapshot of cache usage.
type Stats struct {
	Size    int    `json:"size"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	HitRate string `json:"hit_rate"`
}

// Option customizes an LRUCache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// NewLRUCache creates a new LRU cache.
func NewLRUCache[V any](maxSize int, ttl time.Duration, opts ...Option) *LRUCache[V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &LRUCache[V]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     o.now,
		cache:   make(map[string]*entry[V]),
		order:   list.New(),
	}
}

// Get retrieves a value from the cache.
// An entry older than the TTL is evicted and reported as a miss.
func (c *LRUCache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache[key]
	if !ok {
		c.misses++
		return zero, false
	}

	if c.now().Sub(e.createdAt) > c.ttl {
		c.removeEntry(e)
		c.misses++
		slog.Debug("cache entry expired", "key", key)
		return zero, false
	}

	c.order.MoveToFront(e.element)
	c.hits++
	return e.value, true
}

// Set stores a value in the cache, refreshing its age and recency.
func (c *LRUCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, c.now())
}

// SetAt stores a value whose age counts from createdAt instead of now.
// A createdAt in the future is treated as now.
func (c *LRUCache[V]) SetAt(key string, value V, createdAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now := c.now(); createdAt.IsZero() || createdAt.After(now) {
		createdAt = now
	}
	c.setLocked(key, value, createdAt)
}

// Now returns the cache's current time.
func (c *LRUCache[V]) Now() time.Time {
	return c.now()
}

// TTL returns the maximum entry age.
func (c *LRUCache[V]) TTL() time.Duration {
	return c.ttl
}

// setLocked must be called with lock held.
func (c *LRUCache[V]) setLocked(key string, value V, createdAt time.Time) {
	// Update existing entry
	if e, ok := c.cache[key]; ok {
		e.value = value
		e.createdAt = createdAt
		c.order.MoveToFront(e.element)
		return
	}

	if len(c.cache) >= c.maxSize {
		c.evictOldest()
	}

	e := &entry[V]{
		key:       key,
		value:     value,
		createdAt: createdAt,
	}
	e.element = c.order.PushFront(e)
	c.cache[key] = e
}

// Delete removes a single key. It reports whether the key was present.
func (c *LRUCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache[key]
	if !ok {
		return false
	}
	c.removeEntry(e)
	return true
}

// Len returns the number of entries in the cache, expired ones included.
func (c *LRUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Clear removes all entries from the cache. Hit and miss counters are kept.
func (c *LRUCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*entry[V])
	c.order.Init()
}

// Stats returns the entry count, cumulative hits and misses, and the hit rate.
func (c *LRUCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Size:    len(c.cache),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: formatHitRate(c.hits, c.misses),
	}
}

// CleanupExpired removes all expired entries.
// Returns the number of entries removed.
func (c *LRUCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry[V])
		if now.Sub(e.createdAt) > c.ttl {
			c.removeEntry(e)
			removed++
		}
		el = prev
	}
	return removed
}

// evictOldest removes the least recently used entry.
// Must be called with lock held.
func (c *LRUCache[V]) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}

	e := oldest.Value.(*entry[V])
	c.removeEntry(e)
	slog.Debug("cache LRU eviction", "key", e.key)
}

// removeEntry removes an entry from the cache.
// Must be called with lock held.
func (c *LRUCache[V]) removeEntry(e *entry[V]) {
	c.order.Remove(e.element)
	delete(c.cache, e.key)
}

func formatHitRate(hits, misses int64) string {
	total := hits + misses
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(hits)/float64(total)*100)
}
