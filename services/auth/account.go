package auth

import (
	"context"
	"errors"
	"time"

	"github.com/tech-arch1tect/authority/services/jwt"
	"github.com/tech-arch1tect/authority/services/metrics"
	"github.com/tech-arch1tect/authority/services/revocation"
	"github.com/tech-arch1tect/authority/services/users"
	"go.uber.org/zap"
)

// Messages returned to clients on success.
const (
	MsgRegistered       = "Registered! Check your email to activate your account."
	MsgActivated        = "Activated!"
	MsgAlreadyActivated = "Already activated!"
	MsgCheckEmail       = "Please check your email."
	MsgPasswordChanged  = "Password changed."
	MsgPasswordReset    = "Password reset"
)

// Register creates an inactive account and mails its activation link. An
// earlier registration that was never activated is discarded.
func (c *Controller) Register(ctx context.Context, email, plain string) error {
	email = users.NormalizeEmail(email)
	if email == "" {
		return badRequest("Missing email")
	}
	if plain == "" {
		return badRequest("Missing password")
	}

	existing, err := c.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Activated {
			return badRequest("Already registered.")
		}
		if err := c.discardUser(ctx, existing.ID); err != nil {
			c.logError("failed to discard unactivated user", err, zap.Uint("user_id", existing.ID))
			return internal(msgInternal)
		}
	case !errors.Is(err, users.ErrUserNotFound):
		c.logError("failed to look up user for registration", err)
		return internal(msgInternal)
	}

	hash, err := c.hasher.Hash(plain)
	if err != nil {
		c.logError("failed to hash password", err)
		return internal(msgInternal)
	}

	user, err := c.users.Create(ctx, email, hash)
	if err != nil {
		c.logError("failed to create user", err, zap.String("email", email))
		return internal(msgInternal)
	}

	token, err := c.tokens.IssueActivationToken(user.ID)
	if err != nil {
		c.logError("failed to issue activation token", err, zap.Uint("user_id", user.ID))
		return internal(msgInternal)
	}

	c.notify(ctx, "register", user.Email, func(ctx context.Context) error {
		return c.notifier.SendRegistered(ctx, user.Email, token)
	})
	c.metrics.RecordRegistration()

	return nil
}

// Activate flips the account named by an activation token to active.
// Activating twice succeeds with a different message.
func (c *Controller) Activate(ctx context.Context, token string) (string, error) {
	claims, err := c.tokens.VerifyActivationToken(token)
	if err != nil {
		return "", unauthorized("Invalid token.")
	}

	user, err := c.users.Read(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return "", badRequest("Invalid token.")
		}
		c.logError("failed to read user for activation", err, zap.Uint("user_id", claims.Subject))
		return "", internal("Could not activate user.")
	}

	if user.Activated {
		return MsgAlreadyActivated, nil
	}

	if err := c.users.Activate(ctx, user.ID); err != nil {
		c.logError("failed to activate user", err, zap.Uint("user_id", user.ID))
		return "", internal("Could not activate user.")
	}

	c.notify(ctx, "activated", user.Email, func(ctx context.Context) error {
		return c.notifier.SendActivated(ctx, user.Email)
	})
	c.metrics.RecordActivation()

	return MsgActivated, nil
}

// ForgotPassword mails reset instructions, or a register invitation when the
// address is unknown. It never fails.
func (c *Controller) ForgotPassword(ctx context.Context, email string) error {
	email = users.NormalizeEmail(email)
	if email == "" {
		return nil
	}

	user, err := c.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, users.ErrUserNotFound) {
			c.logError("failed to look up user for password recovery", err)
			return nil
		}
		c.notify(ctx, "recover_nonexistent", email, func(ctx context.Context) error {
			return c.notifier.SendRecoverNonexistent(ctx, email)
		})
		return nil
	}

	token, err := c.tokens.IssueResetToken(user.ID)
	if err != nil {
		c.logError("failed to issue reset token", err, zap.Uint("user_id", user.ID))
		return nil
	}

	c.notify(ctx, "recover_existent", user.Email, func(ctx context.Context) error {
		return c.notifier.SendRecoverExistent(ctx, user.Email, token)
	})

	return nil
}

func (c *Controller) ChangePassword(ctx context.Context, auth *Auth, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return badRequest("Missing password")
	}
	if oldPassword == newPassword {
		return badRequest("The new password must be different")
	}

	user, err := c.users.Read(ctx, auth.UserID)
	if err != nil {
		c.logError("failed to read user for password change", err, zap.Uint("user_id", auth.UserID))
		return internal("Could not find user")
	}

	if !user.Activated {
		return badRequest("Account has not been activated")
	}

	if !c.hasher.Verify(user.HashPassword, oldPassword) {
		return unauthorized("Invalid credentials")
	}

	if err := c.setPassword(ctx, user, newPassword); err != nil {
		return err
	}

	c.notify(ctx, "password_changed", user.Email, func(ctx context.Context) error {
		return c.notifier.SendPasswordChanged(ctx, user.Email)
	})
	c.metrics.RecordPasswordUpdate(metrics.KindChange)

	return nil
}

// ResetPassword sets a new password using a reset token. Each reset token
// works once.
func (c *Controller) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return badRequest("Missing password")
	}

	claims, err := c.tokens.VerifyResetToken(token)
	if err != nil {
		return unauthorized("Invalid token.")
	}

	user, err := c.users.Read(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return badRequest("Invalid token.")
		}
		c.logError("failed to read user for password reset", err, zap.Uint("user_id", claims.Subject))
		return internal("Could not update password")
	}

	if !user.Activated {
		return badRequest("Account has not been activated")
	}

	if err := c.consume(ctx, claims); err != nil {
		return err
	}

	if err := c.setPassword(ctx, user, newPassword); err != nil {
		return err
	}

	c.notify(ctx, "password_reset", user.Email, func(ctx context.Context) error {
		return c.notifier.SendPasswordReset(ctx, user.Email)
	})
	c.metrics.RecordPasswordUpdate(metrics.KindReset)

	return nil
}

func (c *Controller) consume(ctx context.Context, claims *jwt.Claims) error {
	if c.ledger == nil {
		return nil
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	err := c.ledger.Consume(ctx, claims.ID, expiresAt)
	if err == nil {
		return nil
	}
	if errors.Is(err, revocation.ErrTokenConsumed) {
		if c.logger != nil {
			c.logger.Warn("reset token replayed", zap.Uint("user_id", claims.Subject))
		}
		return unauthorized("Invalid token.")
	}

	c.logError("failed to consume reset token", err, zap.Uint("user_id", claims.Subject))
	return internal("Could not update password")
}

func (c *Controller) setPassword(ctx context.Context, user *users.User, plain string) error {
	hash, err := c.hasher.Hash(plain)
	if err != nil {
		c.logError("failed to hash password", err, zap.Uint("user_id", user.ID))
		return internal("Could not update password")
	}

	if err := c.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		c.logError("failed to update password", err, zap.Uint("user_id", user.ID))
		return internal("Could not update password")
	}

	if c.logger != nil {
		c.logger.Info("password updated", zap.Uint("user_id", user.ID))
	}

	return nil
}

func (c *Controller) discardUser(ctx context.Context, userID uint) error {
	if err := c.permissions.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}
	return c.users.Delete(ctx, userID)
}

// notify delivers one email. The state change it reports has already been
// committed, so a delivery failure is only logged.
func (c *Controller) notify(ctx context.Context, kind, to string, send func(context.Context) error) {
	if c.notifier == nil {
		return
	}

	if err := send(ctx); err != nil && c.logger != nil {
		c.logger.Error("failed to send email",
			zap.String("template", kind),
			zap.String("to", to),
			zap.Error(err))
	}
}
