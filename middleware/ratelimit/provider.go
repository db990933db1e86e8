package ratelimit

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func ProvideRateLimitStore(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service) (Store, error) {
	switch cfg.RateLimit.Store {
	case "", "memory":
		store := NewMemoryStore()
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				store.Close()
				return nil
			},
		})
		return store, nil
	case "redis":
		client := NewRedisClient(cfg.RateLimit)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("failed to reach redis at %s: %w", cfg.RateLimit.RedisAddr, err)
				}
				return nil
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
		if logger != nil {
			logger.Info("rate limit counters shared through redis", zap.String("addr", cfg.RateLimit.RedisAddr))
		}
		return NewRedisStore(client, cfg.RateLimit.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit store: %s", cfg.RateLimit.Store)
	}
}

// NewFromConfig builds the limiter for credential endpoints. It is a no-op
// when rate limiting is disabled.
func NewFromConfig(cfg *config.Config, store Store, logger *logging.Service) echo.MiddlewareFunc {
	if !cfg.RateLimit.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return Middleware(&Config{
		Store:        store,
		Rate:         cfg.RateLimit.Requests,
		Period:       cfg.RateLimit.Period,
		CountMode:    cfg.RateLimit.CountMode,
		KeyGenerator: RouteKeyGenerator,
		Logger:       logger,
	})
}

var Module = fx.Options(
	fx.Provide(ProvideRateLimitStore),
)
