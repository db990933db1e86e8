package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCleaner_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	now := time.Now()

	_, err := store.Create(ctx, 1, "expired", nil, now.Add(-time.Second))
	require.NoError(t, err)
	_, err = store.Create(ctx, 1, "live", nil, now.Add(time.Hour))
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	cleaner := NewCleaner(store, time.Hour, logging.NewFromZap(zap.New(core)))
	cleaner.now = func() time.Time { return now }

	require.NoError(t, cleaner.CleanupExpired(ctx))

	count, err := store.CountAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	entries := logs.FilterMessage("cleaned up expired sessions").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["count"])
}

func TestCleaner_StartStop(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	_, err := store.Create(ctx, 1, "expired", nil, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	cleaner := NewCleaner(store, 10*time.Millisecond, nil)
	cleaner.Start()
	defer cleaner.Stop()

	assert.Eventually(t, func() bool {
		count, err := store.CountAll(ctx, 1)
		return err == nil && count == 0
	}, time.Second, 10*time.Millisecond)
}

func TestCleaner_DisabledWithZeroInterval(t *testing.T) {
	cleaner := NewCleaner(setupStore(t), 0, nil)

	cleaner.Start()
	assert.Nil(t, cleaner.stop)
	cleaner.Stop()
}
