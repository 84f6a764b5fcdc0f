package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// LayeredCache implements a two-level cache: an in-process LRU in front of
// a shared store (Redis in production).
type LayeredCache struct {
	mem    *MemoryCache
	remote ByteStore
}

// NewLayeredCache puts mem in front of remote.
func NewLayeredCache(mem *MemoryCache, remote ByteStore) *LayeredCache {
	return &LayeredCache{mem: mem, remote: remote}
}

// Set writes through to both tiers. The local tier is written even when the
// remote write fails.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_ = lc.mem.SetBytes(ctx, key, data, expiration)
	return lc.remote.SetBytes(ctx, key, data, expiration)
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if data, err := lc.mem.GetBytes(ctx, key); err == nil {
		return json.Unmarshal(data, dest)
	}

	data, err := lc.remote.GetBytes(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return ErrCacheMiss
		}
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return err
	}

	// promote
	_ = lc.mem.SetBytes(ctx, key, data, 0)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.remote.Close()
}
