package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCache(client)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisTestCache(t)

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute))

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Miss is nil/nil.
	got, err = c.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisTestCache(t)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCacheDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisTestCache(t)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCacheStats(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisTestCache(t)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "absent")

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(1), s.Sets)
}
