package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service is a JSON value cache.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// ByteStore is the raw layer underneath Service. Layered copies encoded
// values between tiers through it.
type ByteStore interface {
	SetBytes(ctx context.Context, key string, data []byte, expiration time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
