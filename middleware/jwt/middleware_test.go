package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authority/services/auth"
	jwtservice "github.com/tech-arch1tect/authority/services/jwt"
	"github.com/tech-arch1tect/authority/services/permissions"
	"github.com/tech-arch1tect/authority/testutils"
)

type tokenAuthenticator struct {
	tokens *jwtservice.Service
}

func (a tokenAuthenticator) Authenticate(header string) (*auth.Auth, error) {
	const prefix = "Bearer "
	if header == "" {
		return nil, &auth.Error{Status: http.StatusUnauthorized, Message: "Authorization header required"}
	}
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return nil, &auth.Error{Status: http.StatusUnauthorized, Message: "Invalid access token"}
	}

	claims, err := a.tokens.VerifyAccessToken(header[len(prefix):])
	if err != nil {
		return nil, &auth.Error{Status: http.StatusUnauthorized, Message: "Invalid access token"}
	}
	return auth.AuthFromClaims(claims), nil
}

func setup(t *testing.T) (*echo.Echo, *jwtservice.Service) {
	t.Helper()
	return echo.New(), jwtservice.NewService(testutils.GetTestConfig(), nil)
}

func serve(e *echo.Echo, mw []echo.MiddlewareFunc, header string) *httptest.ResponseRecorder {
	handler := func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]uint{"user_id": GetUserID(c)})
	}

	e.GET("/test", handler, mw...)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	e, tokens := setup(t)
	mw := []echo.MiddlewareFunc{RequireAuth(tokenAuthenticator{tokens})}

	t.Run("missing authorization header", func(t *testing.T) {
		rec := serve(e, mw, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"Authorization header required"}`, rec.Body.String())
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := serve(e, mw, "Bearer invalid.jwt.token")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"Invalid access token"}`, rec.Body.String())
	})

	t.Run("refresh token is rejected", func(t *testing.T) {
		refresh, err := tokens.IssueRefreshToken(7)
		require.NoError(t, err)

		rec := serve(e, mw, "Bearer "+refresh)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		access, err := tokens.IssueAccessToken(7, nil, nil, time.Minute)
		require.NoError(t, err)

		rec := serve(e, mw, "Bearer "+access)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id":7}`, rec.Body.String())
	})
}

func TestRequirePermission(t *testing.T) {
	e, tokens := setup(t)

	access, err := tokens.IssueAccessToken(7, []string{"support"}, []permissions.Permission{
		{Permission: "sessions.read", FromRole: "support"},
		{Permission: "users.read"},
	}, time.Minute)
	require.NoError(t, err)
	header := "Bearer " + access
	authn := RequireAuth(tokenAuthenticator{tokens})

	tests := []struct {
		name string
		mw   echo.MiddlewareFunc
		want int
	}{
		{"all permissions held", RequirePermission("sessions.read", "users.read"), http.StatusOK},
		{"one permission missing", RequirePermission("sessions.read", "users.delete"), http.StatusForbidden},
		{"any permission", RequireAnyPermission("users.delete", "users.read"), http.StatusOK},
		{"no permission matches", RequireAnyPermission("users.delete"), http.StatusForbidden},
		{"role held", RequireRole("support"), http.StatusOK},
		{"role missing", RequireRole("support", "admin"), http.StatusForbidden},
		{"any role", RequireAnyRole("admin", "support"), http.StatusOK},
		{"no role matches", RequireAnyRole("admin"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := serve(e, []echo.MiddlewareFunc{authn, tt.mw}, header)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("guard without authentication", func(t *testing.T) {
		rec := serve(e, []echo.MiddlewareFunc{RequireRole("support")}, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGetAuth(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.Nil(t, GetAuth(c))
	assert.Zero(t, GetUserID(c))

	c.Set(AuthKey, auth.NewAuth(3, nil, nil))
	assert.Equal(t, uint(3), GetUserID(c))
}
