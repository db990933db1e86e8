package session

import (
	"context"

	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/fx"
)

func NewCleanerFromConfig(store *Store, cfg *config.Config, logger *logging.Service) *Cleaner {
	return NewCleaner(store, cfg.Auth.SessionCleanupInterval, logger)
}

func registerCleaner(lc fx.Lifecycle, cleaner *Cleaner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			cleaner.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			cleaner.Stop()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewStore),
	fx.Provide(NewCleanerFromConfig),
	fx.Invoke(registerCleaner),
)
