package session

import (
	"context"
	"sync"
	"time"

	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/zap"
)

// Cleaner periodically deletes sessions whose refresh token has expired. The
// token is already unusable by then, the row is just garbage.
type Cleaner struct {
	store    *Store
	interval time.Duration
	logger   *logging.Service
	now      func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewCleaner(store *Store, interval time.Duration, logger *logging.Service) *Cleaner {
	return &Cleaner{
		store:    store,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

func (c *Cleaner) CleanupExpired(ctx context.Context) error {
	count, err := c.store.DeleteExpired(ctx, c.now())
	if err != nil {
		if c.logger != nil {
			c.logger.Error("failed to cleanup expired sessions", zap.Error(err))
		}
		return err
	}

	if c.logger != nil {
		if count > 0 {
			c.logger.Info("cleaned up expired sessions", zap.Int64("count", count))
		} else {
			c.logger.Debug("no expired sessions found to cleanup")
		}
	}

	return nil
}

// Start launches the worker. A non-positive interval disables it.
func (c *Cleaner) Start() {
	if c.interval <= 0 || c.stop != nil {
		return
	}

	c.stop = make(chan struct{})
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = c.CleanupExpired(context.Background())
			case <-c.stop:
				return
			}
		}
	}()

	if c.logger != nil {
		c.logger.Info("started session cleanup worker", zap.Duration("interval", c.interval))
	}
}

func (c *Cleaner) Stop() {
	if c.stop == nil {
		return
	}

	close(c.stop)
	c.wg.Wait()
	c.stop = nil
}
