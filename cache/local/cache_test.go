package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *LocalCache {
	c, err := NewCache(Config{GCInterval: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetSet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	err := c.Set(ctx, "key1", "value1", 0)
	require.NoError(t, err)

	v, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", v)
}

func TestGetMissing(t *testing.T) {
	c := newTestCache(t)
	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ttl", "v", 20*time.Millisecond))
	_, err := c.Get(ctx, "ttl")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	_, err = c.Get(ctx, "ttl")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelAndExists(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.LPush(ctx, "l", "x"))
	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = c.Exists(ctx, "l")
	assert.True(t, ok)

	require.NoError(t, c.Del(ctx, "k", "l"))
	ok, _ = c.Exists(ctx, "k")
	assert.False(t, ok)
	ok, _ = c.Exists(ctx, "l")
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.LPush(ctx, "hist", "a"))
	require.NoError(t, c.LPush(ctx, "hist", "b", "c"))

	all, err := c.LRange(ctx, "hist", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, all)

	require.NoError(t, c.LTrim(ctx, "hist", 0, 1))
	all, _ = c.LRange(ctx, "hist", 0, -1)
	assert.Equal(t, []string{"c", "b"}, all)

	none, err := c.LRange(ctx, "hist", 5, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBounds(t *testing.T) {
	lo, hi, ok := bounds(5, 0, -1)
	assert.True(t, ok)
	assert.Equal(t, int64(0), lo)
	assert.Equal(t, int64(4), hi)

	lo, hi, ok = bounds(5, -2, 100)
	assert.True(t, ok)
	assert.Equal(t, int64(3), lo)
	assert.Equal(t, int64(4), hi)

	_, _, ok = bounds(0, 0, -1)
	assert.False(t, ok)
	_, _, ok = bounds(3, 2, 1)
	assert.False(t, ok)
}

func TestCloseIdempotent(t *testing.T) {
	c, err := NewCache(Config{})
	require.NoError(t, err)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
