package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is an in-process LRU holding JSON-encoded values, so callers
// always get their own copy back.
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize: 1000,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &MemoryCache{
		lru: expirable.NewLRU[string, []byte](cfg.MaxSize, nil, cfg.TTL),
	}
}

// Set ignores expiration; entries live for the configured TTL.
func (mc *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return mc.SetBytes(ctx, key, data, expiration)
}

func (mc *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := mc.GetBytes(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (mc *MemoryCache) SetBytes(_ context.Context, key string, data []byte, _ time.Duration) error {
	mc.lru.Add(key, data)
	return nil
}

func (mc *MemoryCache) GetBytes(_ context.Context, key string) ([]byte, error) {
	data, ok := mc.lru.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return data, nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		mc.lru.Remove(key)
	}
	return nil
}

// Len reports the number of live entries.
func (mc *MemoryCache) Len() int {
	return mc.lru.Len()
}

// Close drops all entries.
func (mc *MemoryCache) Close() error {
	mc.lru.Purge()
	return nil
}
