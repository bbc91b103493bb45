// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Body  string `json:"body"`
	Count int    `json:"count"`
}

// setupMiniRedis creates a test Redis server using miniredis.
func setupMiniRedis[V any](t *testing.T, prefix string) (*miniredis.Miniredis, *RedisCache[V]) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, newRedisWithClient[V](client, prefix, zerolog.Nop())
}

func TestRedisCache_SetGet(t *testing.T) {
	_, c := setupMiniRedis[doc](t, "")

	c.Set("test-key", doc{Body: "<tv/>", Count: 2}, 5*time.Minute)

	val, found := c.Get("test-key")
	require.True(t, found)
	assert.Equal(t, doc{Body: "<tv/>", Count: 2}, val)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestRedisCache_Bytes(t *testing.T) {
	_, c := setupMiniRedis[[]byte](t, "")

	c.Set("xml", []byte(`<tv a="1"></tv>`), time.Minute)
	v, ok := c.Get("xml")
	require.True(t, ok)
	assert.Equal(t, []byte(`<tv a="1"></tv>`), v)
}

func TestRedisCache_GetMissing(t *testing.T) {
	_, c := setupMiniRedis[string](t, "")

	val, found := c.Get("nonexistent")
	assert.False(t, found)
	assert.Empty(t, val)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestRedisCache_Expiration(t *testing.T) {
	mr, c := setupMiniRedis[string](t, "")

	c.Set("k", "v", 100*time.Millisecond)
	_, ok := c.Get("k")
	require.True(t, ok)

	mr.FastForward(200 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestRedisCache_PrefixAndClear(t *testing.T) {
	mr, c := setupMiniRedis[string](t, "m3u2xmltv:")
	require.NoError(t, mr.Set("other", "keep"))

	c.Set("a", "1", time.Minute)
	c.Set("b", "2", time.Minute)
	assert.True(t, mr.Exists("m3u2xmltv:a"))

	c.Clear()
	assert.False(t, mr.Exists("m3u2xmltv:a"))
	assert.False(t, mr.Exists("m3u2xmltv:b"))
	assert.True(t, mr.Exists("other"), "keys outside the prefix survive")
}

func TestRedisCache_Delete(t *testing.T) {
	_, c := setupMiniRedis[string](t, "")
	c.Set("k", "v", time.Minute)
	c.Delete("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestRedisCache_CorruptValue(t *testing.T) {
	mr, c := setupMiniRedis[doc](t, "")
	require.NoError(t, mr.Set("bad", "not json"))

	_, ok := c.Get("bad")
	assert.False(t, ok)
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedis[string](RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	assert.NoError(t, c.HealthCheck(context.Background()))

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedis[string](RedisConfig{Addr: addr}, zerolog.Nop())
	assert.Error(t, err)
}

func TestLoader_WithRedis(t *testing.T) {
	_, c := setupMiniRedis[[]byte](t, "")
	l := NewLoader[[]byte](c)

	v, outcome, err := l.GetOrLoad(context.Background(), "xmltv", time.Minute, func(context.Context) ([]byte, error) {
		return []byte("<tv></tv>"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, outcome)
	assert.Equal(t, []byte("<tv></tv>"), v)

	_, outcome, err = l.GetOrLoad(context.Background(), "xmltv", time.Minute, func(context.Context) ([]byte, error) {
		t.Fatal("should be served from redis")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeHit, outcome)
}
