package revocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/zap"
)

var ErrTokenConsumed = errors.New("token has already been used")

type Service struct {
	store  Store
	logger *logging.Service

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewService(store Store, logger *logging.Service) *Service {
	return &Service{store: store, logger: logger}
}

// Consume redeems a single-use token. A second redemption of the same jti
// fails with ErrTokenConsumed.
func (s *Service) Consume(ctx context.Context, jti string, expiresAt time.Time) error {
	first, err := s.store.Consume(ctx, jti, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}

	if !first {
		if s.logger != nil {
			s.logger.Warn("single-use token replayed", zap.String("jti", jti))
		}
		return ErrTokenConsumed
	}

	return nil
}

func (s *Service) IsConsumed(ctx context.Context, jti string) (bool, error) {
	return s.store.IsConsumed(ctx, jti)
}

func (s *Service) StartCleanupWorker(period time.Duration) {
	if period <= 0 || s.stop != nil {
		return
	}

	s.stop = make(chan struct{})
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.store.CleanupExpired(context.Background()); err != nil && s.logger != nil {
					s.logger.Error("consumed token cleanup failed", zap.Error(err))
				}
			case <-s.stop:
				return
			}
		}
	}()

	if s.logger != nil {
		s.logger.Info("started consumed token cleanup worker", zap.Duration("period", period))
	}
}

func (s *Service) StopCleanupWorker() {
	if s.stop == nil {
		return
	}

	close(s.stop)
	s.wg.Wait()
	s.stop = nil
}
