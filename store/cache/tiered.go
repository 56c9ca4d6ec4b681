package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	aicache "github.com/hrygo/vidsage/plugin/ai/cache"
)

// Fetcher loads a transcript from its source (L3).
type Fetcher func(ctx context.Context, videoID string) (*TranscriptResult, error)

// Source tells which tier answered a lookup.
type Source string

const (
	SourceL1    Source = "memory"
	SourceL2    Source = "redis"
	SourceFetch Source = "fetch"
)

// DefaultFetchTimeout bounds a shared transcript fetch.
const DefaultFetchTimeout = 30 * time.Second

// TieredCacheConfig holds the configuration for the tiered cache.
type TieredCacheConfig struct {
	L1MaxItems      int           // Max transcripts in memory
	L1TTL           time.Duration // Max age of a transcript in either tier
	CleanupInterval time.Duration // Background sweep of L1, 0 disables it
	FetchTimeout    time.Duration // default: 30s
}

// DefaultTieredConfig returns the default tiered cache configuration.
func DefaultTieredConfig() *TieredCacheConfig {
	return &TieredCacheConfig{
		L1MaxItems:      aicache.DefaultMaxSize,
		L1TTL:           aicache.DefaultTTL,
		CleanupInterval: time.Hour,
		FetchTimeout:    DefaultFetchTimeout,
	}
}

// TieredCache checks memory, then Redis, then the fetcher.
// Concurrent misses for the same video share one fetch.
type TieredCache struct {
	l1           *aicache.Service[*TranscriptResult]
	l2           RedisCacheInterface
	fetcher      Fetcher
	fetchTimeout time.Duration
	group        singleflight.Group
}

// NewTieredCache creates a tiered cache. l2 may be nil.
func NewTieredCache(config *TieredCacheConfig, l2 RedisCacheInterface, fetcher Fetcher, opts ...aicache.Option) (*TieredCache, error) {
	if fetcher == nil {
		return nil, errors.New("transcript fetcher is required")
	}
	if config == nil {
		config = DefaultTieredConfig()
	}
	if l2 == nil {
		l2 = NewNilRedisCache()
	}
	fetchTimeout := config.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}

	return &TieredCache{
		l1: aicache.NewService[*TranscriptResult](aicache.ServiceConfig{
			MaxSize:         config.L1MaxItems,
			TTL:             config.L1TTL,
			CleanupInterval: config.CleanupInterval,
		}, opts...),
		l2:           l2,
		fetcher:      fetcher,
		fetchTimeout: fetchTimeout,
	}, nil
}

// Get returns the transcript for videoID, fetching it on a miss.
// The shared fetch outlives a caller that gives up; each caller only waits on its own ctx.
func (t *TieredCache) Get(ctx context.Context, videoID string) (*TranscriptResult, Source, error) {
	if value, ok := t.l1.Get(videoID); ok {
		return value, SourceL1, nil
	}

	if value, ok := t.promote(ctx, videoID); ok {
		return value, SourceL2, nil
	}

	ch := t.group.DoChan(videoID, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.fetchTimeout)
		defer cancel()

		value, err := t.fetcher(fetchCtx, videoID)
		if err != nil {
			return nil, err
		}
		t.store(fetchCtx, videoID, value)
		return value, nil
	})

	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, "", errors.Wrapf(res.Err, "fetch transcript %s", videoID)
		}
		if res.Shared {
			slog.Debug("transcript fetch shared", "video_id", videoID)
		}
		return res.Val.(*TranscriptResult), SourceFetch, nil
	}
}

// Peek returns a cached transcript without fetching.
func (t *TieredCache) Peek(ctx context.Context, videoID string) (*TranscriptResult, bool) {
	if value, ok := t.l1.Get(videoID); ok {
		return value, true
	}
	return t.promote(ctx, videoID)
}

// Set stores a transcript in both tiers.
func (t *TieredCache) Set(ctx context.Context, videoID string, value *TranscriptResult) {
	t.store(ctx, videoID, value)
}

// store stamps FetchedAt when missing and writes both tiers. The in-memory
// entry ages from FetchedAt.
func (t *TieredCache) store(ctx context.Context, videoID string, value *TranscriptResult) {
	if value.FetchedAt.IsZero() {
		value.FetchedAt = t.l1.Now()
	}
	t.l1.SetAt(videoID, value, value.FetchedAt)
	t.l2.Set(ctx, videoID, value)
}

// promote copies a Redis hit into memory without resetting its age. A hit
// older than the memory TTL is dropped from Redis and reported as a miss.
func (t *TieredCache) promote(ctx context.Context, videoID string) (*TranscriptResult, bool) {
	value, ok := t.l2.Get(ctx, videoID)
	if !ok {
		return nil, false
	}
	if !value.FetchedAt.IsZero() && t.l1.Now().Sub(value.FetchedAt) > t.l1.TTL() {
		slog.Debug("stale transcript in redis", "video_id", videoID, "fetched_at", value.FetchedAt)
		t.l2.Delete(ctx, videoID)
		return nil, false
	}
	t.l1.SetAt(videoID, value, value.FetchedAt)
	return value, true
}

// Delete removes a transcript from both tiers.
func (t *TieredCache) Delete(ctx context.Context, videoID string) {
	t.l1.Delete(videoID)
	t.l2.Delete(ctx, videoID)
}

// Clear empties both tiers. L1 counters are kept.
func (t *TieredCache) Clear(ctx context.Context) {
	t.l1.Clear()
	t.l2.Clear(ctx)
}

// Stats reports the in-memory tier.
func (t *TieredCache) Stats() aicache.Stats {
	return t.l1.Stats()
}

// Close stops the L1 sweep and closes the L2 connection.
func (t *TieredCache) Close() error {
	t.l1.Close()
	return t.l2.Close()
}
