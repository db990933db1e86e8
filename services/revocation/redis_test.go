package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	keys map[string]time.Duration
	err  error
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ any, expiration time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStore_Consume(t *testing.T) {
	ctx := context.Background()
	client := &fakeRedis{keys: map[string]time.Duration{}}
	store := NewRedisStore(client, "authority:consumed:", nil)
	now := time.Now()
	store.now = func() time.Time { return now }

	ok, err := store.Consume(ctx, "jti-1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, client.keys["authority:consumed:jti-1"])

	ok, err = store.Consume(ctx, "jti-1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	consumed, err := store.IsConsumed(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, consumed)

	assert.NoError(t, store.CleanupExpired(ctx))
}

func TestRedisStore_ExpiredTokenGetsMinimalTTL(t *testing.T) {
	client := &fakeRedis{keys: map[string]time.Duration{}}
	store := NewRedisStore(client, "p:", nil)

	_, err := store.Consume(context.Background(), "jti", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.Second, client.keys["p:jti"])
}

func TestRedisStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(&fakeRedis{err: errors.New("connection refused")}, "p:", nil)

	_, err := store.Consume(ctx, "jti", time.Now().Add(time.Hour))
	assert.Error(t, err)

	_, err = store.IsConsumed(ctx, "jti")
	assert.Error(t, err)
}
