package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/zap"
)

type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	logger *logging.Service
}

func New(cfg *config.Config, logger *logging.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	configureTrustedProxies(e, cfg.Server.TrustedProxies, logger)

	e.Use(middleware.Recover())
	e.Use(logging.RequestLogger(logger, cfg.Metrics.Path))

	return &Server{
		echo:   e,
		cfg:    cfg,
		logger: logger,
	}
}

// configureTrustedProxies reads the client IP from X-Forwarded-For only when
// the request comes from one of the listed proxies.
func configureTrustedProxies(e *echo.Echo, proxies []string, logger *logging.Service) {
	if len(proxies) == 0 {
		e.IPExtractor = echo.ExtractIPDirect()
		return
	}

	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, proxy := range proxies {
		proxy = strings.TrimSpace(proxy)
		if proxy == "" {
			continue
		}

		if !strings.Contains(proxy, "/") {
			if ip := net.ParseIP(proxy); ip != nil && ip.To4() != nil {
				proxy += "/32"
			} else {
				proxy += "/128"
			}
		}

		_, ipNet, err := net.ParseCIDR(proxy)
		if err != nil {
			if logger != nil {
				logger.Warn("ignoring invalid trusted proxy", zap.String("proxy", proxy), zap.Error(err))
			}
			continue
		}
		options = append(options, echo.TrustIPRange(ipNet))
	}

	e.IPExtractor = echo.ExtractIPFromXFFHeader(options...)
}

func (s *Server) Start() {
	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
	if s.logger != nil {
		s.logger.Info("starting server", zap.String("addr", addr), zap.Int("routes", len(s.echo.Routes())))
		s.logRoutes()
	}

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if s.logger != nil {
			s.logger.Error("server stopped", zap.Error(err))
		}
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("shutting down server")
	}
	return s.echo.Shutdown(ctx)
}

func (s *Server) logRoutes() {
	for _, r := range s.echo.Routes() {
		s.logger.Debug("route",
			zap.String("method", r.Method),
			zap.String("path", r.Path),
			zap.String("handler", shortenHandlerName(r.Name)))
	}
}

func shortenHandlerName(name string) string {
	if i := strings.Index(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if len(name) > 80 {
		name = name[:77] + "..."
	}
	return name
}

func (s *Server) Get(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.GET(path, handler, m...)
}

func (s *Server) Post(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.POST(path, handler, m...)
}

func (s *Server) Delete(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.DELETE(path, handler, m...)
}

func (s *Server) Group(prefix string, m ...echo.MiddlewareFunc) *echo.Group {
	return s.echo.Group(prefix, m...)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
