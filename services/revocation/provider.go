package revocation

import (
	"context"
	"fmt"

	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OptionalDB struct {
	fx.In
	DB *gorm.DB `optional:"true"`
}

func ProvideStore(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service, optDB OptionalDB) (Store, error) {
	if logger != nil {
		logger.Info("initializing consumed token store",
			zap.String("store_type", cfg.Revocation.Store),
			zap.Bool("database_available", optDB.DB != nil))
	}

	switch cfg.Revocation.Store {
	case "memory":
		if optDB.DB == nil {
			return NewMemoryStore(), nil
		}

		if err := optDB.DB.AutoMigrate(&ConsumedToken{}); err != nil {
			return nil, fmt.Errorf("failed to migrate consumed tokens table: %w", err)
		}

		store := NewMemoryStoreWithDB(optDB.DB, logger)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return store.LoadFromDatabase(ctx)
			},
		})
		return store, nil
	case "redis":
		client := NewRedisClient(cfg.Revocation)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("failed to reach redis at %s: %w", cfg.Revocation.RedisAddr, err)
				}
				return nil
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
		return NewRedisStore(client, cfg.Revocation.RedisPrefix, logger), nil
	default:
		return nil, fmt.Errorf("unsupported revocation store type: %s", cfg.Revocation.Store)
	}
}

func ProvideService(lc fx.Lifecycle, cfg *config.Config, store Store, logger *logging.Service) *Service {
	svc := NewService(store, logger)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			svc.StartCleanupWorker(cfg.Revocation.CleanupPeriod)
			return nil
		},
		OnStop: func(context.Context) error {
			svc.StopCleanupWorker()
			return nil
		},
	})

	return svc
}

var Module = fx.Options(
	fx.Provide(ProvideStore),
	fx.Provide(ProvideService),
)
