package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/authority/config"
)

// incrementScript bumps the counter and pins the window end on the first hit
// only, so later hits do not slide the window.
const incrementScript = `
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIREAT', KEYS[1], ARGV[1])
end
return n
`

type redisClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
	Get(ctx context.Context, key string) *redis.StringCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore shares counters between instances behind a load balancer.
type RedisStore struct {
	client redisClient
	prefix string
	now    func() time.Time
}

func NewRedisClient(cfg config.RateLimitConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func NewRedisStore(client redisClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisStore) Get(ctx context.Context, key string) (int, time.Time, error) {
	count, err := r.client.Get(ctx, r.prefix+key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, time.Time{}, nil
		}
		return 0, time.Time{}, fmt.Errorf("failed to read rate limit counter: %w", err)
	}

	ttl, err := r.client.PTTL(ctx, r.prefix+key).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to read rate limit window: %w", err)
	}
	if ttl <= 0 {
		return 0, time.Time{}, nil
	}

	return count, r.now().Add(ttl), nil
}

func (r *RedisStore) Increment(ctx context.Context, key string, resetTime time.Time) (int, error) {
	n, err := r.client.Eval(ctx, incrementScript, []string{r.prefix + key}, resetTime.UnixMilli()).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	return n, nil
}

func (r *RedisStore) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit counter: %w", err)
	}

	return nil
}
