package server

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/metrics"
	"go.uber.org/fx"
)

func NewProvider() fx.Option {
	return fx.Options(
		fx.Provide(New),
		fx.Invoke(RegisterMetrics),
		fx.Invoke(func(lc fx.Lifecycle, srv *Server) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go srv.Start()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return srv.Shutdown(ctx)
				},
			})
		}),
	)
}

// RegisterMetrics exposes the registry at the configured path.
func RegisterMetrics(srv *Server, cfg *config.Config, reg *prometheus.Registry) {
	if !cfg.Metrics.Enabled {
		return
	}
	srv.Get(cfg.Metrics.Path, echo.WrapHandler(metrics.Handler(reg)))
}
