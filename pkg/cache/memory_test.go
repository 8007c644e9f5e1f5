package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Symbol string    `json:"symbol"`
	Values []float64 `json:"values"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	in := sample{Symbol: "NVDA", Values: []float64{1, 2, 3}}
	require.NoError(t, mc.Set(ctx, "k", in, time.Minute))

	out, err := GetTyped[sample](ctx, mc, "k")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// the cached copy is isolated from the caller's slice
	in.Values[0] = 99
	out, err = GetTyped[sample](ctx, mc, "k")
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.Values[0])
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "k", "v", time.Minute))
	ok, _ := mc.Exists(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	var v string
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
	ok, _ = mc.Exists(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Second); return now }

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	var n int
	require.NoError(t, mc.Get(ctx, "a", &n))
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &n), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &n))
	assert.Equal(t, 1, n)
}

func TestMemoryCacheDelete(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Minute))
	require.NoError(t, mc.Delete(ctx, "k"))
	var n int
	assert.ErrorIs(t, mc.Get(ctx, "k", &n), ErrCacheMiss)
}
