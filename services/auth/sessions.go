package auth

import (
	"context"
	"errors"

	"github.com/tech-arch1tect/authority/services/metrics"
	"github.com/tech-arch1tect/authority/session"
	"go.uber.org/zap"
)

type SessionsPage struct {
	Sessions []session.UserSession `json:"sessions"`
	NumPages int64                 `json:"num_pages"`
}

// Sessions lists the caller's sessions, oldest first. page is zero-based and
// pageSize is clamped to [1, MaxPageSize].
func (c *Controller) Sessions(ctx context.Context, auth *Auth, page, pageSize int) (*SessionsPage, error) {
	page = max(page, 0)
	pageSize = min(max(pageSize, 1), c.config.Auth.MaxPageSize)

	sessions, err := c.sessions.ReadAll(ctx, auth.UserID, page, pageSize)
	if err != nil {
		c.logError("failed to fetch sessions", err, zap.Uint("user_id", auth.UserID))
		return nil, internal("Could not fetch sessions.")
	}

	count, err := c.sessions.CountAll(ctx, auth.UserID)
	if err != nil {
		c.logError("failed to count sessions", err, zap.Uint("user_id", auth.UserID))
		return nil, internal("Could not fetch sessions.")
	}

	numPages := count / int64(pageSize)
	if count%int64(pageSize) != 0 {
		numPages++
	}

	return &SessionsPage{Sessions: sessions, NumPages: numPages}, nil
}

// DestroySession deletes one of the caller's sessions. A session owned by
// someone else is reported as not found.
func (c *Controller) DestroySession(ctx context.Context, auth *Auth, id uint) error {
	if err := c.sessions.DeleteForUser(ctx, id, auth.UserID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return notFound("Session not found.")
		}
		c.logError("failed to delete session", err, zap.Uint("session_id", id))
		return internal("Internal error.")
	}

	c.metrics.RecordLogout(metrics.ScopeSession, 1)

	return nil
}

// DestroySessions logs the caller out everywhere.
func (c *Controller) DestroySessions(ctx context.Context, auth *Auth) error {
	n, err := c.sessions.DeleteAllForUser(ctx, auth.UserID)
	if err != nil {
		c.logError("failed to delete sessions", err, zap.Uint("user_id", auth.UserID))
		return internal("Could not delete sessions.")
	}

	if c.logger != nil {
		c.logger.Info("all sessions destroyed", zap.Uint("user_id", auth.UserID), zap.Int64("sessions", n))
	}
	c.metrics.RecordLogout(metrics.ScopeAll, n)

	return nil
}
