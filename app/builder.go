package app

import (
	"context"
	"fmt"

	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/database"
	"github.com/tech-arch1tect/authority/handlers/authhttp"
	"github.com/tech-arch1tect/authority/internal/options"
	"github.com/tech-arch1tect/authority/middleware/ratelimit"
	"github.com/tech-arch1tect/authority/server"
	"github.com/tech-arch1tect/authority/services/auth"
	"github.com/tech-arch1tect/authority/services/jwt"
	"github.com/tech-arch1tect/authority/services/logging"
	"github.com/tech-arch1tect/authority/services/mail"
	"github.com/tech-arch1tect/authority/services/metrics"
	"github.com/tech-arch1tect/authority/services/password"
	"github.com/tech-arch1tect/authority/services/permissions"
	"github.com/tech-arch1tect/authority/services/revocation"
	"github.com/tech-arch1tect/authority/services/users"
	"github.com/tech-arch1tect/authority/session"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type AppBuilder struct {
	config    *config.Config
	models    []any
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		models:    make([]any, 0),
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

// New builds an App from functional options.
func New(opts ...options.Option) (*App, error) {
	o := &options.Options{}
	for _, opt := range opts {
		opt(o)
	}

	b := NewApp().WithModels(o.Models...).WithFxOptions(o.FxOptions...)
	if o.Config != nil {
		b.WithConfig(o.Config)
	}
	return b.Build()
}

// Models lists the tables the authority owns.
func Models() []any {
	return append(permissions.Models(),
		&users.User{},
		&session.UserSession{},
		&revocation.ConsumedToken{},
	)
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

// WithModels migrates extra application models alongside the auth tables.
func (b *AppBuilder) WithModels(models ...any) *AppBuilder {
	b.models = append(b.models, models...)
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	if b.config == nil {
		if err := b.WithAutoConfig().validate(); err != nil {
			return nil, err
		}
	} else if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := b.createLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	services, err := b.buildServices(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build services: %w", err)
	}

	app := &App{
		config:   b.config,
		logger:   logger,
		services: services,
		db:       services.database,
	}

	fxOptions := b.buildFxOptions(services, logger)
	fxOptions = append(fxOptions, fx.Populate(&app.server, &app.controller, &app.permissions))

	app.fx = fx.New(fxOptions...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to assemble application: %w", err)
	}

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, fmt.Errorf("%s", msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %v", b.errors)
	}
	return nil
}

func (b *AppBuilder) createLogger() (*logging.Service, error) {
	if b.config == nil {
		return nil, fmt.Errorf("config required for logger creation")
	}

	return logging.NewLoggingService(b.config)
}

type ServiceContainer struct {
	database *gorm.DB
}

func (b *AppBuilder) buildServices(logger *logging.Service) (*ServiceContainer, error) {
	models := append(Models(), b.models...)

	db, err := database.ProvideDatabase(*b.config, database.WithModels(models...), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &ServiceContainer{database: db}, nil
}

func (b *AppBuilder) buildFxOptions(services *ServiceContainer, logger *logging.Service) []fx.Option {
	options := []fx.Option{
		fx.Supply(b.config),
		fx.Supply(logger),
		fx.Supply(services.database),
		fx.NopLogger,
	}

	// hooks stop in reverse order, so the database closes after everything
	// that uses it
	options = append(options, b.buildLifecycleHooks(services)...)

	options = append(options,
		metrics.Module,
		jwt.Module,
		password.Module,
		users.Module,
		permissions.Module,
		session.Module,
		revocation.Module,
		mail.Module,
		auth.Module,
		ratelimit.Module,
		server.NewProvider(),
		authhttp.Module,
	)

	options = append(options, b.fxOptions...)

	return options
}

func (b *AppBuilder) buildLifecycleHooks(services *ServiceContainer) []fx.Option {
	return []fx.Option{
		fx.Invoke(func(lc fx.Lifecycle, logger *logging.Service) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					_ = logger.Sync()
					return nil
				},
			})
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					sqlDB, err := services.database.DB()
					if err != nil {
						return err
					}
					return sqlDB.Close()
				},
			})
		}),
	}
}
