package jwt

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authority/services/auth"
)

const AuthKey = "_auth"

type Authenticator interface {
	Authenticate(authorization string) (*auth.Auth, error)
}

// RequireAuth rejects requests without a valid access token and stores the
// caller's *auth.Auth in the context.
func RequireAuth(authenticator Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, err := authenticator.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				e := auth.AsError(err)
				return echo.NewHTTPError(e.Status, e.Message)
			}

			c.Set(AuthKey, a)

			return next(c)
		}
	}
}

// RequirePermission must run after RequireAuth. The caller needs every listed
// permission.
func RequirePermission(perms ...string) echo.MiddlewareFunc {
	return guard(func(a *auth.Auth) bool { return a.HasAllPermissions(perms) })
}

func RequireAnyPermission(perms ...string) echo.MiddlewareFunc {
	return guard(func(a *auth.Auth) bool { return a.HasAnyPermission(perms) })
}

// RequireRole must run after RequireAuth. The caller needs every listed role.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return guard(func(a *auth.Auth) bool { return a.HasAllRoles(roles) })
}

func RequireAnyRole(roles ...string) echo.MiddlewareFunc {
	return guard(func(a *auth.Auth) bool { return a.HasAnyRoles(roles) })
}

func guard(allowed func(*auth.Auth) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a := GetAuth(c)
			if a == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}
			if !allowed(a) {
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}

			return next(c)
		}
	}
}

func GetAuth(c echo.Context) *auth.Auth {
	if a, ok := c.Get(AuthKey).(*auth.Auth); ok {
		return a
	}
	return nil
}

func GetUserID(c echo.Context) uint {
	if a := GetAuth(c); a != nil {
		return a.UserID
	}
	return 0
}
