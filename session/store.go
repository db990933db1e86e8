package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrStaleRefreshToken = errors.New("refresh token no longer matches the session")
)

type Store struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewStore(db *gorm.DB, logger *logging.Service) *Store {
	return &Store{db: db, logger: logger}
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func (s *Store) Create(ctx context.Context, userID uint, refreshToken string, device *string, expiresAt time.Time) (*UserSession, error) {
	sess := &UserSession{
		UserID:           userID,
		RefreshTokenHash: HashToken(refreshToken),
		Device:           device,
		ExpiresAt:        expiresAt,
	}

	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("session created", zap.Uint("session_id", sess.ID), zap.Uint("user_id", userID))
	}

	return sess, nil
}

// FindByRefreshToken resolves the session currently holding refreshToken. A
// rotated-away, revoked or unknown token all yield ErrSessionNotFound.
func (s *Store) FindByRefreshToken(ctx context.Context, refreshToken string) (*UserSession, error) {
	var sess UserSession
	err := s.db.WithContext(ctx).Where("refresh_token_hash = ?", HashToken(refreshToken)).First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return &sess, nil
}

func (s *Store) Read(ctx context.Context, id uint) (*UserSession, error) {
	var sess UserSession
	err := s.db.WithContext(ctx).First(&sess, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	return &sess, nil
}

// ReadAll returns one zero-based page of a user's sessions, oldest first.
func (s *Store) ReadAll(ctx context.Context, userID uint, page, pageSize int) ([]UserSession, error) {
	sessions := []UserSession{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Offset(page * pageSize).
		Limit(pageSize).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}

	return sessions, nil
}

func (s *Store) CountAll(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&UserSession{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	return count, nil
}

// Rotate replaces the refresh token of session id, but only while the session
// still holds oldToken. When another caller rotated first, nothing is written
// and ErrStaleRefreshToken is returned.
func (s *Store) Rotate(ctx context.Context, id uint, oldToken, newToken string, device *string, expiresAt time.Time) error {
	updates := map[string]any{
		"refresh_token_hash": HashToken(newToken),
		"expires_at":         expiresAt,
	}
	if device != nil {
		updates["device"] = *device
	}

	result := s.db.WithContext(ctx).
		Model(&UserSession{}).
		Where("id = ? AND refresh_token_hash = ?", id, HashToken(oldToken)).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to rotate session: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		if s.logger != nil {
			s.logger.Warn("refresh token rotation lost to a concurrent refresh", zap.Uint("session_id", id))
		}
		return ErrStaleRefreshToken
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&UserSession{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteForUser deletes session id only when it belongs to userID.
func (s *Store) DeleteForUser(ctx context.Context, id, userID uint) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&UserSession{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (s *Store) DeleteAllForUser(ctx context.Context, userID uint) (int64, error) {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&UserSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", result.Error)
	}

	if s.logger != nil {
		s.logger.Info("all sessions deleted", zap.Uint("user_id", userID), zap.Int64("count", result.RowsAffected))
	}

	return result.RowsAffected, nil
}

// DeleteExpired removes sessions whose refresh token expired before now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&UserSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", result.Error)
	}

	return result.RowsAffected, nil
}
