package cache

import (
	"fmt"

	"plurald/internal/config"
)

// NewCacheFromConfig creates a Cache implementation based on the cache config type.
func NewCacheFromConfig(cfg config.CacheConfig) (Cache, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryCache(), nil
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis_url required for redis cache")
		}
		return NewRedisCache(cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}
