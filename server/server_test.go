package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authority/services/logging"
	"github.com/tech-arch1tect/authority/services/metrics"
	"github.com/tech-arch1tect/authority/testutils"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	cfg := testutils.GetTestConfig()

	t.Run("with logger", func(t *testing.T) {
		logger := logging.NewFromZap(zap.NewNop())
		server := New(cfg, logger)

		require.NotNil(t, server)
		assert.Same(t, cfg, server.cfg)
		assert.Same(t, logger, server.logger)
		assert.NotNil(t, server.echo)
		assert.NotNil(t, server.echo.IPExtractor)
	})

	t.Run("without logger", func(t *testing.T) {
		server := New(cfg, nil)

		require.NotNil(t, server)
		assert.Nil(t, server.logger)
		assert.Same(t, server.echo, server.Echo())
	})
}

func TestServer_Routes(t *testing.T) {
	server := New(testutils.GetTestConfig(), nil)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	server.Get("/get", handler)
	server.Post("/post", handler)
	server.Delete("/delete", handler)
	server.Group("/api").GET("/grouped", handler)

	for _, tt := range []struct{ method, path string }{
		{http.MethodGet, "/get"},
		{http.MethodPost, "/post"},
		{http.MethodDelete, "/delete"},
		{http.MethodGet, "/api/grouped"},
	} {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, tt.path)
		assert.Equal(t, "ok", rec.Body.String(), tt.path)
	}
}

func TestServer_RecoversFromPanics(t *testing.T) {
	server := New(testutils.GetTestConfig(), nil)
	server.Get("/boom", func(c echo.Context) error {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestConfigureTrustedProxies(t *testing.T) {
	tests := []struct {
		name     string
		proxies  []string
		remote   string
		expected string
	}{
		{
			name:     "no trusted proxies ignores the header",
			remote:   "10.0.0.1:1234",
			expected: "10.0.0.1",
		},
		{
			name:     "trusted single address",
			proxies:  []string{"10.0.0.1"},
			remote:   "10.0.0.1:1234",
			expected: "203.0.113.9",
		},
		{
			name:     "trusted range",
			proxies:  []string{"10.0.0.0/8"},
			remote:   "10.1.2.3:1234",
			expected: "203.0.113.9",
		},
		{
			name:     "untrusted peer",
			proxies:  []string{"192.168.0.0/16"},
			remote:   "10.0.0.1:1234",
			expected: "10.0.0.1",
		},
		{
			name:     "invalid entry is skipped",
			proxies:  []string{"not-an-ip", "10.0.0.1"},
			remote:   "10.0.0.1:1234",
			expected: "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			configureTrustedProxies(e, tt.proxies, nil)
			require.NotNil(t, e.IPExtractor)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			req.Header.Set(echo.HeaderXForwardedFor, "203.0.113.9")

			assert.Equal(t, tt.expected, e.IPExtractor(req))
		})
	}
}

func TestConfigureTrustedProxies_LogsInvalidEntries(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	configureTrustedProxies(echo.New(), []string{"bogus"}, logging.NewFromZap(zap.New(core)))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ignoring invalid trusted proxy", logs.All()[0].Message)
}

func TestShortenHandlerName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "short handler name",
			input:    "handler.GetUser",
			expected: "handler.GetUser",
		},
		{
			name:     "handler with slash",
			input:    "github.com/user/repo/handler.GetUser",
			expected: "user/repo/handler.GetUser",
		},
		{
			name:     "very long handler name",
			input:    strings.Repeat("a", 100),
			expected: strings.Repeat("a", 77) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shortenHandlerName(tt.input))
		})
	}
}

func TestRegisterMetrics(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		cfg.Metrics.Enabled = true

		reg := metrics.NewRegistry()
		metrics.NewCollector(reg).RecordLogin("success")

		server := New(cfg, nil)
		RegisterMetrics(server, cfg, reg)

		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "go_goroutines")
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := testutils.GetTestConfig()

		server := New(cfg, nil)
		RegisterMetrics(server, cfg, metrics.NewRegistry())

		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_Shutdown(t *testing.T) {
	server := New(testutils.GetTestConfig(), nil)
	assert.NoError(t, server.Shutdown(context.Background()))
}
