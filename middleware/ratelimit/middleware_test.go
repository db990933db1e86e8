package ratelimit

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/testutils"
	"go.uber.org/fx/fxtest"
)

func newEcho(mw echo.MiddlewareFunc, status int) *echo.Echo {
	e := echo.New()
	handler := func(c echo.Context) error {
		if status >= http.StatusBadRequest {
			return echo.NewHTTPError(status, "nope")
		}
		return c.String(status, "ok")
	}
	e.POST("/login", handler, mw)
	e.POST("/forgot", handler, mw)
	return e
}

func do(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	t.Run("blocks after the limit", func(t *testing.T) {
		e := newEcho(Middleware(&Config{Rate: 2, Period: time.Minute}), http.StatusOK)

		assert.Equal(t, http.StatusOK, do(e, "/login").Code)

		rec := do(e, "/login")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

		rec = do(e, "/login")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.JSONEq(t, `{"message":"Too many requests."}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("count failures only", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()
		cfg := &Config{Store: store, Rate: 1, Period: time.Minute, CountMode: config.CountFailures}

		ok := newEcho(Middleware(cfg), http.StatusOK)
		for range 3 {
			assert.Equal(t, http.StatusOK, do(ok, "/login").Code)
		}

		failing := newEcho(Middleware(cfg), http.StatusUnauthorized)
		assert.Equal(t, http.StatusUnauthorized, do(failing, "/login").Code)
		assert.Equal(t, http.StatusTooManyRequests, do(failing, "/login").Code)
		assert.Equal(t, http.StatusTooManyRequests, do(ok, "/login").Code)
	})

	t.Run("count success only", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()
		cfg := &Config{Store: store, Rate: 1, Period: time.Minute, CountMode: config.CountSuccess}

		failing := newEcho(Middleware(cfg), http.StatusBadRequest)
		for range 3 {
			assert.Equal(t, http.StatusBadRequest, do(failing, "/login").Code)
		}

		ok := newEcho(Middleware(cfg), http.StatusOK)
		assert.Equal(t, http.StatusOK, do(ok, "/login").Code)
		assert.Equal(t, http.StatusTooManyRequests, do(ok, "/login").Code)
	})

	t.Run("routes are counted separately", func(t *testing.T) {
		e := newEcho(Middleware(&Config{Rate: 1, Period: time.Minute, KeyGenerator: RouteKeyGenerator}), http.StatusOK)

		assert.Equal(t, http.StatusOK, do(e, "/login").Code)
		assert.Equal(t, http.StatusTooManyRequests, do(e, "/login").Code)
		assert.Equal(t, http.StatusOK, do(e, "/forgot").Code)
	})

	t.Run("custom limit reached handler", func(t *testing.T) {
		e := newEcho(Middleware(&Config{
			Rate: 1,
			OnLimitReached: func(c echo.Context) error {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "slow down"})
			},
		}), http.StatusOK)

		do(e, "/login")
		rec := do(e, "/login")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("store outage lets requests through", func(t *testing.T) {
		client := newFakeRedis()
		client.err = errors.New("connection refused")
		e := newEcho(Middleware(&Config{Store: NewRedisStore(client, "rl:"), Rate: 1}), http.StatusOK)

		for range 3 {
			assert.Equal(t, http.StatusOK, do(e, "/login").Code)
		}
	})
}

func TestKeyGenerators(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/login")

	assert.Equal(t, "rate_limit:192.0.2.1", DefaultKeyGenerator(c))
	assert.Equal(t, "rate_limit:192.0.2.1:POST:/login", RouteKeyGenerator(c))

	req = httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ""
	c = e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "rate_limit:fallback", DefaultKeyGenerator(c))
}

func TestNewFromConfig(t *testing.T) {
	cfg := testutils.GetTestConfig()
	lc := fxtest.NewLifecycle(t)

	store, err := ProvideRateLimitStore(lc, cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	t.Run("disabled", func(t *testing.T) {
		e := newEcho(NewFromConfig(cfg, store, nil), http.StatusOK)
		for range 20 {
			assert.Equal(t, http.StatusOK, do(e, "/login").Code)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		enabled := *cfg
		enabled.RateLimit.Enabled = true
		enabled.RateLimit.Requests = 2

		e := newEcho(NewFromConfig(&enabled, store, nil), http.StatusOK)
		do(e, "/login")
		do(e, "/login")
		assert.Equal(t, http.StatusTooManyRequests, do(e, "/login").Code)
	})

	t.Run("unknown store", func(t *testing.T) {
		bad := *cfg
		bad.RateLimit.Store = "memcached"

		_, err := ProvideRateLimitStore(fxtest.NewLifecycle(t), &bad, nil)
		assert.Error(t, err)
	})

	lc.RequireStart()
	lc.RequireStop()
}
