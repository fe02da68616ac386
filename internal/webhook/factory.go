package webhook

import (
	"fmt"
	"time"

	"plurald/internal/cache"
	"plurald/internal/config"
	"plurald/internal/proxy"
)

// NewExecutorFromConfig creates an Executor implementation based on the webhook config type.
func NewExecutorFromConfig(cfg config.WebhookConfig, cacheCfg config.CacheConfig, c cache.Cache, logger proxy.Logger) (proxy.Executor, error) {
	switch cfg.Type {
	case "discord":
		if cfg.BotToken == "" {
			return nil, fmt.Errorf("bot_token required for discord webhook executor")
		}
		ttl := time.Duration(cacheCfg.TTLSeconds) * time.Second
		return NewDiscordExecutor(cfg.BotToken, cfg.APIBase, c, ttl, logger), nil
	case "memory":
		return NewMemoryExecutor(), nil
	default:
		return nil, fmt.Errorf("unknown webhook type: %s", cfg.Type)
	}
}
