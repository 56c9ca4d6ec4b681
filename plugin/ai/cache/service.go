package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ServiceConfig configures the cache service.
type ServiceConfig struct {
	MaxSize         int           // Maximum number of entries (default: 50)
	TTL             time.Duration // Maximum entry age (default: 24h)
	CleanupInterval time.Duration // Interval for expired entry sweeps, 0 disables the sweep
}

// DefaultServiceConfig returns default cache service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxSize:         DefaultMaxSize,
		TTL:             DefaultTTL,
		CleanupInterval: time.Hour,
	}
}

// Service wraps an LRUCache with an optional background sweep that frees
// slots held by expired entries. Reads stay TTL-checked either way.
type Service[V any] struct {
	*LRUCache[V]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cleanupInterval time.Duration
}

// NewService creates a new cache service.
func NewService[V any](cfg ServiceConfig, opts ...Option) *Service[V] {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Service[V]{
		LRUCache:        NewLRUCache[V](cfg.MaxSize, cfg.TTL, opts...),
		ctx:             ctx,
		cancel:          cancel,
		cleanupInterval: cfg.CleanupInterval,
	}

	if s.cleanupInterval > 0 {
		s.wg.Add(1)
		go s.cleanupLoop()
	}

	return s
}

// Close stops the cache service.
func (s *Service[V]) Close() {
	s.cancel()
	s.wg.Wait()
}

// cleanupLoop periodically removes expired entries.
func (s *Service[V]) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if removed := s.CleanupExpired(); removed > 0 {
				slog.Debug("cache sweep removed expired entries", "removed", removed)
			}
		}
	}
}

// Ensure Service implements CacheService
var _ CacheService[string] = (*Service[string])(nil)
