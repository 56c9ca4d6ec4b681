package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisCacheInterface is the optional shared L2 tier.
// The tiered cache works with L1 alone when Redis is not configured.
type RedisCacheInterface interface {
	Get(ctx context.Context, videoID string) (*TranscriptResult, bool)
	Set(ctx context.Context, videoID string, value *TranscriptResult)
	Delete(ctx context.Context, videoID string)
	Clear(ctx context.Context)
	Close() error
}

// RedisCacheConfig holds the Redis connection configuration.
type RedisCacheConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	DefaultTTL   time.Duration
	PoolSize     int
	MinIdleConns int
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() *RedisCacheConfig {
	return &RedisCacheConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "vidsage:",
		DefaultTTL:   24 * time.Hour,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// RedisCache keeps JSON-encoded transcripts in Redis under a key prefix.
// Redis failures degrade to misses; they never fail the caller.
type RedisCache struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, config *RedisCacheConfig) (*RedisCache, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	slog.Info("redis cache connected", "addr", config.Addr, "prefix", config.KeyPrefix)

	return &RedisCache{
		client:     client,
		keyPrefix:  config.KeyPrefix,
		defaultTTL: config.DefaultTTL,
	}, nil
}

func (r *RedisCache) Get(ctx context.Context, videoID string) (*TranscriptResult, bool) {
	data, err := r.client.Get(ctx, r.fullKey(videoID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("failed to get cached transcript", "video_id", videoID, "error", err)
		}
		return nil, false
	}

	var value TranscriptResult
	if err := json.Unmarshal(data, &value); err != nil {
		slog.Warn("failed to decode cached transcript", "video_id", videoID, "error", err)
		return nil, false
	}
	return &value, true
}

func (r *RedisCache) Set(ctx context.Context, videoID string, value *TranscriptResult) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("failed to encode transcript", "video_id", videoID, "error", err)
		return
	}
	if err := r.client.Set(ctx, r.fullKey(videoID), data, r.defaultTTL).Err(); err != nil {
		slog.Warn("failed to cache transcript", "video_id", videoID, "error", err)
	}
}

func (r *RedisCache) Delete(ctx context.Context, videoID string) {
	if err := r.client.Del(ctx, r.fullKey(videoID)).Err(); err != nil {
		slog.Warn("failed to delete cached transcript", "video_id", videoID, "error", err)
	}
}

// Clear removes every key under the prefix.
func (r *RedisCache) Clear(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 100).Iterator()

	var keys []string
	var removed int64
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			removed += r.deleteKeys(ctx, keys)
			keys = keys[:0]
		}
	}
	if len(keys) > 0 {
		removed += r.deleteKeys(ctx, keys)
	}
	if err := iter.Err(); err != nil {
		slog.Warn("failed to scan cached transcripts", "error", err)
	}
	slog.Debug("cached transcripts cleared", "removed", removed)
}

// deleteKeys removes one batch and returns how many keys were deleted.
func (r *RedisCache) deleteKeys(ctx context.Context, keys []string) int64 {
	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		slog.Warn("failed to clear cached transcripts", "keys", len(keys), "error", err)
		return 0
	}
	return n
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) fullKey(videoID string) string {
	return r.keyPrefix + "transcript:" + videoID
}

// NilRedisCache is the no-op L2 used when Redis is disabled.
type NilRedisCache struct{}

// NewNilRedisCache creates a no-op Redis cache.
func NewNilRedisCache() *NilRedisCache {
	return &NilRedisCache{}
}

func (n *NilRedisCache) Get(context.Context, string) (*TranscriptResult, bool) { return nil, false }

func (n *NilRedisCache) Set(context.Context, string, *TranscriptResult) {}

func (n *NilRedisCache) Delete(context.Context, string) {}

func (n *NilRedisCache) Clear(context.Context) {}

func (n *NilRedisCache) Close() error { return nil }

var (
	_ RedisCacheInterface = (*RedisCache)(nil)
	_ RedisCacheInterface = (*NilRedisCache)(nil)
)
