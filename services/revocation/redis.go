package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/zap"
)

type redisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore shares the ledger between instances. Keys expire together with
// the token they describe, so no cleanup pass is needed.
type RedisStore struct {
	client redisClient
	prefix string
	logger *logging.Service
	now    func() time.Time
}

func NewRedisClient(cfg config.RevocationConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func NewRedisStore(client redisClient, prefix string, logger *logging.Service) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
}

func (r *RedisStore) Consume(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(r.now())
	if ttl < time.Second {
		ttl = time.Second
	}

	ok, err := r.client.SetNX(ctx, r.prefix+jti, 1, ttl).Result()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("failed to record consumed token in redis", zap.String("jti", jti), zap.Error(err))
		}
		return false, fmt.Errorf("failed to record consumed token: %w", err)
	}

	return ok, nil
}

func (r *RedisStore) IsConsumed(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up consumed token: %w", err)
	}

	return n > 0, nil
}

func (r *RedisStore) CleanupExpired(context.Context) error {
	return nil
}
