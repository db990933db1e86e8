package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/zap"
)

type Config struct {
	Store          Store
	Rate           int
	Period         time.Duration
	CountMode      config.CountingMode
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context) error
	Logger         *logging.Service
}

// Middleware limits each key to Rate counted requests per Period. When the
// store cannot be reached the request is let through.
func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}

	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}

	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}

	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = DefaultKeyGenerator
	}

	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}

	if cfg.CountMode == "" {
		cfg.CountMode = config.CountAll
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := cfg.KeyGenerator(c)
			resetTime := time.Now().Add(cfg.Period)

			count, existingResetTime, err := cfg.Store.Get(ctx, key)
			if err != nil {
				cfg.logStoreError(key, err)
				return next(c)
			}
			if !existingResetTime.IsZero() {
				resetTime = existingResetTime
			}

			if count >= cfg.Rate {
				setHeaders(c, cfg.Rate, 0, resetTime)
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter(resetTime)))
				return cfg.OnLimitReached(c)
			}

			if cfg.CountMode == config.CountAll {
				newCount, err := cfg.Store.Increment(ctx, key, resetTime)
				if err != nil {
					cfg.logStoreError(key, err)
					return next(c)
				}
				setHeaders(c, cfg.Rate, cfg.Rate-newCount, resetTime)
				return next(c)
			}

			setHeaders(c, cfg.Rate, cfg.Rate-count-1, resetTime)

			err = next(c)
			if cfg.shouldCount(responseStatus(c, err)) {
				if _, incErr := cfg.Store.Increment(ctx, key, resetTime); incErr != nil {
					cfg.logStoreError(key, incErr)
				}
			}

			return err
		}
	}
}

func (cfg *Config) shouldCount(status int) bool {
	switch cfg.CountMode {
	case config.CountFailures:
		return status >= http.StatusBadRequest
	case config.CountSuccess:
		return status < http.StatusBadRequest
	default:
		return true
	}
}

func (cfg *Config) logStoreError(key string, err error) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("rate limit store unavailable, request allowed", zap.String("key", key), zap.Error(err))
	}
}

// responseStatus is the status the client will see. Handler errors have not
// been written yet when the middleware regains control.
func responseStatus(c echo.Context, err error) int {
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he.Code
		}
		return http.StatusInternalServerError
	}
	return c.Response().Status
}

func setHeaders(c echo.Context, limit, remaining int, resetTime time.Time) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
}

func retryAfter(resetTime time.Time) int {
	secs := int(time.Until(resetTime).Round(time.Second) / time.Second)
	return max(secs, 1)
}

func DefaultKeyGenerator(c echo.Context) string {
	realIP := c.RealIP()

	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}

	return "rate_limit:" + realIP
}

// RouteKeyGenerator counts each route separately per client IP, so attempts
// at /login do not use up the allowance of /forgot.
func RouteKeyGenerator(c echo.Context) string {
	return DefaultKeyGenerator(c) + ":" + c.Request().Method + ":" + c.Path()
}

func DefaultOnLimitReached(c echo.Context) error {
	return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests.")
}

func WithConfig(cfg *Config) echo.MiddlewareFunc {
	return Middleware(cfg)
}
