package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/jwt"
	"github.com/tech-arch1tect/authority/services/logging"
	"github.com/tech-arch1tect/authority/services/metrics"
	"github.com/tech-arch1tect/authority/services/password"
	"github.com/tech-arch1tect/authority/services/permissions"
	"github.com/tech-arch1tect/authority/services/users"
	"github.com/tech-arch1tect/authority/session"
	"go.uber.org/zap"
)

// maxTTLSeconds is the longest access token lifetime a Duration can hold.
const maxTTLSeconds = math.MaxInt64 / int64(time.Second)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	Read(ctx context.Context, id uint) (*users.User, error)
	Create(ctx context.Context, email, hash string) (*users.User, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
	Activate(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type SessionStore interface {
	Create(ctx context.Context, userID uint, refreshToken string, device *string, expiresAt time.Time) (*session.UserSession, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*session.UserSession, error)
	ReadAll(ctx context.Context, userID uint, page, pageSize int) ([]session.UserSession, error)
	CountAll(ctx context.Context, userID uint) (int64, error)
	Rotate(ctx context.Context, id uint, oldToken, newToken string, device *string, expiresAt time.Time) error
	Delete(ctx context.Context, id uint) error
	DeleteForUser(ctx context.Context, id, userID uint) error
	DeleteAllForUser(ctx context.Context, userID uint) (int64, error)
}

type PermissionStore interface {
	FetchRoles(ctx context.Context, userID uint) ([]string, error)
	FetchPermissions(ctx context.Context, userID uint) ([]permissions.Permission, error)
	DeleteAllForUser(ctx context.Context, userID uint) error
}

type Notifier interface {
	SendRegistered(ctx context.Context, to, activationToken string) error
	SendActivated(ctx context.Context, to string) error
	SendRecoverExistent(ctx context.Context, to, resetToken string) error
	SendRecoverNonexistent(ctx context.Context, to string) error
	SendPasswordChanged(ctx context.Context, to string) error
	SendPasswordReset(ctx context.Context, to string) error
}

// TokenLedger redeems single-use tokens.
type TokenLedger interface {
	Consume(ctx context.Context, jti string, expiresAt time.Time) error
}

type Recorder interface {
	RecordLogin(result string)
	RecordRefresh(result string)
	RecordLogout(scope string, sessions int64)
	RecordRegistration()
	RecordActivation()
	RecordPasswordUpdate(kind string)
}

type Deps struct {
	Config      *config.Config
	Users       UserStore
	Sessions    SessionStore
	Permissions PermissionStore
	Tokens      *jwt.Service
	Hasher      *password.Hasher
	Notifier    Notifier
	Ledger      TokenLedger
	Metrics     Recorder
	Logger      *logging.Service
}

// Controller implements the session and token protocol. It holds no mutable
// state and is safe for concurrent use.
type Controller struct {
	config      *config.Config
	users       UserStore
	sessions    SessionStore
	permissions PermissionStore
	tokens      *jwt.Service
	hasher      *password.Hasher
	notifier    Notifier
	ledger      TokenLedger
	metrics     Recorder
	logger      *logging.Service
	now         func() time.Time
}

func NewController(deps Deps) *Controller {
	rec := deps.Metrics
	if rec == nil {
		rec = (*metrics.Collector)(nil)
	}

	return &Controller{
		config:      deps.Config,
		users:       deps.Users,
		sessions:    deps.Sessions,
		permissions: deps.Permissions,
		tokens:      deps.Tokens,
		hasher:      deps.Hasher,
		notifier:    deps.Notifier,
		ledger:      deps.Ledger,
		metrics:     rec,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

// SetClock replaces the time source of the controller and its token service.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
	c.tokens.SetClock(now)
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type LoginInput struct {
	Email    string
	Password string
	Device   *string
	// TTL is the requested access token lifetime in seconds.
	TTL *int64
}

func (c *Controller) Login(ctx context.Context, in LoginInput) (*TokenPair, error) {
	if err := c.checkDevice(in.Device); err != nil {
		return nil, err
	}

	user, err := c.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			c.metrics.RecordLogin(metrics.ResultInvalidCredentials)
			return nil, unauthorized("Invalid credentials.")
		}
		c.logError("failed to look up user for login", err)
		c.metrics.RecordLogin(metrics.ResultError)
		return nil, internal(msgInternal)
	}

	if !user.Activated {
		c.metrics.RecordLogin(metrics.ResultInactive)
		return nil, badRequest("Account has not been activated.")
	}

	if !c.hasher.Verify(user.HashPassword, in.Password) {
		if c.logger != nil {
			c.logger.Info("login failed: wrong password", zap.Uint("user_id", user.ID))
		}
		c.metrics.RecordLogin(metrics.ResultInvalidCredentials)
		return nil, unauthorized("Invalid credentials.")
	}

	c.upgradeHash(ctx, user, in.Password)

	ttl := c.config.JWT.AccessExpiry
	if in.TTL != nil {
		ttl = time.Duration(min(max(*in.TTL, 1), maxTTLSeconds)) * time.Second
	}

	pair, err := c.CreateUserSession(ctx, user.ID, in.Device, ttl)
	if err != nil {
		c.metrics.RecordLogin(metrics.ResultError)
		return nil, err
	}

	if c.logger != nil {
		c.logger.Info("user logged in", zap.Uint("user_id", user.ID))
	}
	c.metrics.RecordLogin(metrics.ResultSuccess)

	return pair, nil
}

// CreateUserSession mints an access/refresh pair for an already authenticated
// user and persists the new session. Every way of signing in ends here.
func (c *Controller) CreateUserSession(ctx context.Context, userID uint, device *string, accessTTL time.Duration) (*TokenPair, error) {
	if err := c.checkDevice(device); err != nil {
		return nil, err
	}

	access, refresh, err := c.issuePair(ctx, userID, accessTTL)
	if err != nil {
		return nil, err
	}

	if _, err := c.sessions.Create(ctx, userID, refresh, device, c.now().Add(c.config.JWT.RefreshExpiry)); err != nil {
		c.logError("failed to create session", err, zap.Uint("user_id", userID))
		return nil, internal("Could not create session.")
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new pair, rotating the session to
// the new refresh token. Roles and permissions are read again.
func (c *Controller) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		c.metrics.RecordRefresh(metrics.ResultInvalidSession)
		return nil, unauthorized("Invalid session.")
	}

	claims, err := c.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		c.metrics.RecordRefresh(metrics.ResultInvalidToken)
		return nil, unauthorized("Invalid token.")
	}

	sess, err := c.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.metrics.RecordRefresh(metrics.ResultInvalidSession)
			return nil, unauthorized("Invalid session.")
		}
		c.logError("failed to look up session", err)
		c.metrics.RecordRefresh(metrics.ResultError)
		return nil, internal(msgInternal)
	}

	if sess.UserID != claims.Subject {
		if c.logger != nil {
			c.logger.Warn("refresh token subject does not own the session",
				zap.Uint("session_id", sess.ID),
				zap.Uint("subject", claims.Subject))
		}
		c.metrics.RecordRefresh(metrics.ResultInvalidSession)
		return nil, unauthorized("Invalid session.")
	}

	access, refresh, err := c.issuePair(ctx, sess.UserID, c.config.JWT.AccessExpiry)
	if err != nil {
		c.metrics.RecordRefresh(metrics.ResultError)
		return nil, err
	}

	err = c.sessions.Rotate(ctx, sess.ID, refreshToken, refresh, nil, c.now().Add(c.config.JWT.RefreshExpiry))
	if err != nil {
		if errors.Is(err, session.ErrStaleRefreshToken) {
			c.metrics.RecordRefresh(metrics.ResultStale)
			return nil, unauthorized("Invalid session.")
		}
		c.logError("failed to rotate session", err, zap.Uint("session_id", sess.ID))
		c.metrics.RecordRefresh(metrics.ResultError)
		return nil, internal("Could not update session.")
	}

	c.metrics.RecordRefresh(metrics.ResultSuccess)

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout ends the session holding refreshToken. The token does not have to be
// unexpired, only current.
func (c *Controller) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return unauthorized("Invalid session.")
	}

	sess, err := c.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return unauthorized("Invalid session.")
		}
		c.logError("failed to look up session", err)
		return internal(msgInternal)
	}

	if err := c.sessions.Delete(ctx, sess.ID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return unauthorized("Invalid session.")
		}
		c.logError("failed to delete session", err, zap.Uint("session_id", sess.ID))
		return internal("Could not delete session.")
	}

	if c.logger != nil {
		c.logger.Info("user logged out", zap.Uint("user_id", sess.UserID), zap.Uint("session_id", sess.ID))
	}
	c.metrics.RecordLogout(metrics.ScopeSession, 1)

	return nil
}

// Authenticate resolves an Authorization header value to the caller's Auth.
// Every failure is reported the same way, without saying what was wrong.
func (c *Controller) Authenticate(authorization string) (*Auth, error) {
	if authorization == "" {
		return nil, unauthorized("Authorization header required")
	}

	const prefix = "Bearer "
	if len(authorization) <= len(prefix) || !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return nil, unauthorized("Invalid access token")
	}

	claims, err := c.tokens.VerifyAccessToken(strings.TrimSpace(authorization[len(prefix):]))
	if err != nil {
		return nil, unauthorized("Invalid access token")
	}

	return AuthFromClaims(claims), nil
}

// Check succeeds for any authenticated caller.
func (c *Controller) Check(context.Context, *Auth) error {
	return nil
}

func (c *Controller) issuePair(ctx context.Context, userID uint, accessTTL time.Duration) (string, string, error) {
	roles, err := c.permissions.FetchRoles(ctx, userID)
	if err != nil {
		c.logError("failed to fetch roles", err, zap.Uint("user_id", userID))
		return "", "", internal(msgInternal)
	}

	perms, err := c.permissions.FetchPermissions(ctx, userID)
	if err != nil {
		c.logError("failed to fetch permissions", err, zap.Uint("user_id", userID))
		return "", "", internal(msgInternal)
	}

	access, err := c.tokens.IssueAccessToken(userID, roles, perms, accessTTL)
	if err != nil {
		return "", "", internal(msgInternal)
	}

	refresh, err := c.tokens.IssueRefreshToken(userID)
	if err != nil {
		return "", "", internal(msgInternal)
	}

	return access, refresh, nil
}

func (c *Controller) checkDevice(device *string) error {
	if device != nil && len(*device) > c.config.Auth.MaxDeviceLength {
		return badRequest(fmt.Sprintf("'device' cannot be longer than %d characters.", c.config.Auth.MaxDeviceLength))
	}
	return nil
}

// upgradeHash re-hashes a verified password stored with outdated parameters.
// Failure only costs the upgrade.
func (c *Controller) upgradeHash(ctx context.Context, user *users.User, plain string) {
	if !c.hasher.NeedsRehash(user.HashPassword) {
		return
	}

	hash, err := c.hasher.Hash(plain)
	if err == nil {
		err = c.users.UpdatePassword(ctx, user.ID, hash)
	}

	if c.logger != nil {
		if err != nil {
			c.logger.Warn("failed to upgrade password hash", zap.Uint("user_id", user.ID), zap.Error(err))
		} else {
			c.logger.Info("password hash upgraded", zap.Uint("user_id", user.ID))
		}
	}
}

func (c *Controller) logError(msg string, err error, fields ...zap.Field) {
	if c.logger != nil {
		c.logger.Error(msg, append(fields, zap.Error(err))...)
	}
}
