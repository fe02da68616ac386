package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is a keyed string cache with per-entry TTL. Implementations must be
// safe for concurrent use. It backs the channel-to-webhook lookup so repeated
// sends to a channel do not re-query the transport, and is deliberately
// bounded: every entry expires.
type Cache interface {
	// Get fetches the value for key. Misses return ErrMiss; a non-nil
	// error other than ErrMiss indicates a transport or backend failure.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key for the given TTL. A zero or negative TTL
	// means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes one or more keys and returns the number removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Close releases any resources held by the cache.
	Close() error
}

// ErrMiss signals a cache miss in a typed way, so callers can distinguish
// misses from backend errors.
var ErrMiss = errors.New("cache: miss")
