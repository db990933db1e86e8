package revocation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store interface {
	// Consume marks jti as used. It reports false when jti was already
	// consumed.
	Consume(ctx context.Context, jti string, expiresAt time.Time) (bool, error)

	IsConsumed(ctx context.Context, jti string) (bool, error)

	CleanupExpired(ctx context.Context) error
}

// MemoryStore keeps consumed jtis in a map. With a database attached, every
// consumption is written through and the database decides who was first, so
// several instances sharing one database agree.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
	db     *gorm.DB
	logger *logging.Service
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

func NewMemoryStoreWithDB(db *gorm.DB, logger *logging.Service) *MemoryStore {
	store := NewMemoryStore()
	store.db = db
	store.logger = logger
	return store
}

func (m *MemoryStore) Consume(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if exp, ok := m.tokens[jti]; ok && m.now().Before(exp) {
		return false, nil
	}

	if m.db != nil {
		result := m.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&ConsumedToken{JTI: jti, ExpiresAt: expiresAt})
		if result.Error != nil {
			if m.logger != nil {
				m.logger.Error("failed to persist consumed token", zap.String("jti", jti), zap.Error(result.Error))
			}
			return false, fmt.Errorf("failed to persist consumed token: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			m.tokens[jti] = expiresAt
			return false, nil
		}
	}

	m.tokens[jti] = expiresAt

	if m.logger != nil {
		m.logger.Debug("token consumed", zap.String("jti", jti), zap.Time("expires_at", expiresAt))
	}

	return true, nil
}

func (m *MemoryStore) IsConsumed(ctx context.Context, jti string) (bool, error) {
	m.mu.RLock()
	exp, ok := m.tokens[jti]
	m.mu.RUnlock()

	if ok {
		return m.now().Before(exp), nil
	}

	if m.db == nil {
		return false, nil
	}

	var count int64
	err := m.db.WithContext(ctx).Model(&ConsumedToken{}).
		Where("jti = ? AND expires_at > ?", jti, m.now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up consumed token: %w", err)
	}

	return count > 0, nil
}

func (m *MemoryStore) CleanupExpired(ctx context.Context) error {
	now := m.now()

	m.mu.Lock()
	expired := 0
	for jti, exp := range m.tokens {
		if !now.Before(exp) {
			delete(m.tokens, jti)
			expired++
		}
	}
	remaining := len(m.tokens)
	m.mu.Unlock()

	var deleted int64
	if m.db != nil {
		result := m.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&ConsumedToken{})
		if result.Error != nil {
			if m.logger != nil {
				m.logger.Error("failed to clean expired consumed tokens from database", zap.Error(result.Error))
			}
			return fmt.Errorf("failed to clean expired consumed tokens: %w", result.Error)
		}
		deleted = result.RowsAffected
	}

	if m.logger != nil && (expired > 0 || deleted > 0) {
		m.logger.Info("cleaned up expired consumed tokens",
			zap.Int("memory_count", expired),
			zap.Int64("database_count", deleted),
			zap.Int("remaining", remaining))
	}

	return nil
}

// LoadFromDatabase warms the in-memory map with unexpired rows.
func (m *MemoryStore) LoadFromDatabase(ctx context.Context) error {
	if m.db == nil {
		return nil
	}

	var rows []ConsumedToken
	if err := m.db.WithContext(ctx).Where("expires_at > ?", m.now()).Find(&rows).Error; err != nil {
		if m.logger != nil {
			m.logger.Error("failed to load consumed tokens from database", zap.Error(err))
		}
		return fmt.Errorf("failed to load consumed tokens: %w", err)
	}

	m.mu.Lock()
	for _, row := range rows {
		m.tokens[row.JTI] = row.ExpiresAt
	}
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info("consumed tokens loaded from database", zap.Int("count", len(rows)))
	}

	return nil
}
