// Package authority assembles the session and token authority: login,
// refresh token rotation, device sessions, registration and password
// recovery behind an echo server.
package authority

import (
	"github.com/tech-arch1tect/authority/app"
	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/internal/options"
	"go.uber.org/fx"
)

type App = app.App

func New(opts ...options.Option) (*App, error) {
	return app.New(opts...)
}

func WithConfig(cfg *config.Config) options.Option {
	return options.WithConfig(cfg)
}

// WithModels migrates extra application models next to the auth tables.
func WithModels(models ...any) options.Option {
	return options.WithModels(models...)
}

func WithFxOptions(opts ...fx.Option) options.Option {
	return options.WithFxOptions(opts...)
}
