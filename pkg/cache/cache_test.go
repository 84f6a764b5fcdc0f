package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Days    []int     `json:"days"`
	Revenue []float64 `json:"revenue"`
}

func TestMemoryCacheRoundTripReturnsCopies(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(4))
	defer mc.Close()

	in := sample{Days: []int{1, 2, 3}, Revenue: []float64{15000, 45000, 90000}}
	require.NoError(t, mc.Set(ctx, "k", in, 0))

	var out sample
	require.NoError(t, mc.Get(ctx, "k", &out))
	assert.Equal(t, in, out)

	out.Revenue[0] = -1
	var again sample
	require.NoError(t, mc.Get(ctx, "k", &again))
	assert.Equal(t, 15000.0, again.Revenue[0])
}

func TestMemoryCacheMissAndEviction(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))

	var v int
	assert.ErrorIs(t, mc.Get(ctx, "absent", &v), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	require.NoError(t, mc.Get(ctx, "a", &v)) // a becomes most recent
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryTTL(20 * time.Millisecond))
	require.NoError(t, mc.Set(ctx, "k", "v", 0))

	require.Eventually(t, func() bool {
		var s string
		return errors.Is(mc.Get(ctx, "k", &s), ErrCacheMiss)
	}, time.Second, 10*time.Millisecond)
}

// flakyStore is a ByteStore backed by a MemoryCache that can be told to fail.
type flakyStore struct {
	*MemoryCache
	fail bool
}

func (f *flakyStore) SetBytes(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if f.fail {
		return errors.New("remote down")
	}
	return f.MemoryCache.SetBytes(ctx, key, data, ttl)
}

func TestLayeredCachePromotesFromRemote(t *testing.T) {
	ctx := context.Background()
	remote := &flakyStore{MemoryCache: NewMemoryCache()}
	l1 := NewMemoryCache()
	lc := NewLayeredCache(l1, remote)

	require.NoError(t, remote.MemoryCache.Set(ctx, "k", sample{Days: []int{7}}, 0))
	assert.Equal(t, 0, l1.Len())

	var out sample
	require.NoError(t, lc.Get(ctx, "k", &out))
	assert.Equal(t, []int{7}, out.Days)
	assert.Equal(t, 1, l1.Len())

	require.NoError(t, lc.Delete(ctx, "k"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &out), ErrCacheMiss)
}

func TestLayeredCacheKeepsLocalCopyWhenRemoteFails(t *testing.T) {
	ctx := context.Background()
	remote := &flakyStore{MemoryCache: NewMemoryCache(), fail: true}
	lc := NewLayeredCache(NewMemoryCache(), remote)

	assert.Error(t, lc.Set(ctx, "k", 42, time.Minute))

	var v int
	require.NoError(t, lc.Get(ctx, "k", &v))
	assert.Equal(t, 42, v)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "forecast:v1:abc", GenerateKeyWithParams("forecast", "v1", "abc"))
	assert.Len(t, HashKey([]byte("x")), 64)
	assert.Equal(t, HashKey([]byte("x")), HashKey([]byte("x")))
}
