package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rc, err := NewRedisCache(context.Background(), &RedisCacheConfig{
		Addr:       mr.Addr(),
		KeyPrefix:  "test:",
		DefaultTTL: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return mr, rc
}

func TestRedisCache_SetGet(t *testing.T) {
	mr, rc := setupTestRedis(t)
	ctx := context.Background()

	_, ok := rc.Get(ctx, "abc")
	assert.False(t, ok)

	want := &TranscriptResult{VideoID: "abc", Text: "hello world", CharCount: 11, LanguageCode: "en"}
	rc.Set(ctx, "abc", want)

	assert.True(t, mr.Exists("test:transcript:abc"))
	assert.Equal(t, time.Hour, mr.TTL("test:transcript:abc"))

	got, ok := rc.Get(ctx, "abc")
	require.True(t, ok)
	assert.Equal(t, want.Text, got.Text)
	assert.Equal(t, want.CharCount, got.CharCount)
	assert.Equal(t, want.LanguageCode, got.LanguageCode)
}

func TestRedisCache_Expiry(t *testing.T) {
	mr, rc := setupTestRedis(t)
	ctx := context.Background()

	rc.Set(ctx, "abc", &TranscriptResult{VideoID: "abc", Text: "x"})
	mr.FastForward(2 * time.Hour)

	_, ok := rc.Get(ctx, "abc")
	assert.False(t, ok)
}

func TestRedisCache_CorruptValueIsMiss(t *testing.T) {
	mr, rc := setupTestRedis(t)

	require.NoError(t, mr.Set("test:transcript:bad", "{not json"))
	_, ok := rc.Get(context.Background(), "bad")
	assert.False(t, ok)
}

func TestRedisCache_DeleteAndClear(t *testing.T) {
	mr, rc := setupTestRedis(t)
	ctx := context.Background()

	rc.Set(ctx, "a", &TranscriptResult{VideoID: "a"})
	rc.Set(ctx, "b", &TranscriptResult{VideoID: "b"})
	require.NoError(t, mr.Set("other:key", "keep"))

	rc.Delete(ctx, "a")
	assert.False(t, mr.Exists("test:transcript:a"))
	assert.True(t, mr.Exists("test:transcript:b"))

	rc.Clear(ctx)
	assert.False(t, mr.Exists("test:transcript:b"))
	assert.True(t, mr.Exists("other:key"), "keys outside the prefix survive")
}

func TestRedisCache_ClearBatches(t *testing.T) {
	mr, rc := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		rc.Set(ctx, fmt.Sprintf("v%03d", i), &TranscriptResult{VideoID: "v"})
	}
	rc.Clear(ctx)
	assert.Empty(t, mr.Keys())
}

func TestRedisCache_DeleteKeysReportsFailure(t *testing.T) {
	mr, rc := setupTestRedis(t)
	ctx := context.Background()

	rc.Set(ctx, "a", &TranscriptResult{VideoID: "a"})
	rc.Set(ctx, "b", &TranscriptResult{VideoID: "b"})
	assert.EqualValues(t, 2, rc.deleteKeys(ctx, []string{"test:transcript:a", "test:transcript:b", "test:transcript:missing"}))

	mr.Close()
	assert.Zero(t, rc.deleteKeys(ctx, []string{"test:transcript:a"}))
	rc.Clear(ctx)
}

func TestRedisCache_ServerDownIsMiss(t *testing.T) {
	mr, rc := setupTestRedis(t)
	mr.Close()

	ctx := context.Background()
	rc.Set(ctx, "a", &TranscriptResult{VideoID: "a"})
	_, ok := rc.Get(ctx, "a")
	assert.False(t, ok)
}

func TestNewRedisCache_ConnectFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisCache(context.Background(), &RedisCacheConfig{Addr: addr})
	assert.ErrorContains(t, err, "failed to connect to Redis")
}
