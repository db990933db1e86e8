package options

import (
	"github.com/tech-arch1tect/authority/config"
	"go.uber.org/fx"
)

type Options struct {
	Config    *config.Config
	Models    []any
	FxOptions []fx.Option
}

type Option func(*Options)

func WithConfig(cfg *config.Config) Option {
	return func(opts *Options) {
		opts.Config = cfg
	}
}

func WithModels(models ...any) Option {
	return func(opts *Options) {
		opts.Models = append(opts.Models, models...)
	}
}

func WithFxOptions(fxOpts ...fx.Option) Option {
	return func(opts *Options) {
		opts.FxOptions = append(opts.FxOptions, fxOpts...)
	}
}
