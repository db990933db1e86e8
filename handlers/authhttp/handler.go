// Package authhttp binds the auth controller to echo: JSON bodies in and out,
// the refresh token in an http-only cookie, errors as {"message": ...}.
package authhttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authority/config"
	jwtmw "github.com/tech-arch1tect/authority/middleware/jwt"
	"github.com/tech-arch1tect/authority/services/auth"
	"github.com/tech-arch1tect/authority/services/logging"
	"github.com/tech-arch1tect/authority/session"
)

const defaultPageSize = 10

type LoginRequest struct {
	Email    string  `json:"email" example:"a@x.com"`
	Password string  `json:"password"`
	Device   *string `json:"device,omitempty" doc:"Label shown in the session list, at most 256 characters"`
	TTL      *int64  `json:"ttl,omitempty" doc:"Access token lifetime in seconds, at least 1"`
}

type RegisterRequest struct {
	Email    string `json:"email" example:"a@x.com"`
	Password string `json:"password"`
}

type ForgotRequest struct {
	Email string `json:"email" example:"a@x.com"`
}

type ChangeRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type ResetRequest struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Handler struct {
	ctrl   *auth.Controller
	config *config.Config
	logger *logging.Service
}

func NewHandler(ctrl *auth.Controller, cfg *config.Config, logger *logging.Service) *Handler {
	return &Handler{ctrl: ctrl, config: cfg, logger: logger}
}

// RegisterRoutes mounts the auth endpoints on g. limiter guards the
// credential endpoints and may be nil.
func (h *Handler) RegisterRoutes(g *echo.Group, limiter echo.MiddlewareFunc) {
	guarded := []echo.MiddlewareFunc{}
	if limiter != nil {
		guarded = append(guarded, limiter)
	}
	requireAuth := jwtmw.RequireAuth(h.ctrl)

	g.POST("/login", h.Login, guarded...)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.POST("/register", h.Register, guarded...)
	g.GET("/activate", h.Activate)
	g.POST("/forgot", h.Forgot, guarded...)
	g.POST("/reset", h.Reset, guarded...)

	g.POST("/check", h.Check, requireAuth)
	g.POST("/change", h.Change, requireAuth)
	g.GET("/sessions", h.Sessions, requireAuth)
	g.DELETE("/sessions/:id", h.DestroySession, requireAuth)
	g.DELETE("/sessions", h.DestroySessions, requireAuth)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	if req.Device == nil {
		req.Device = h.deviceFromUserAgent(c)
	}

	pair, err := h.ctrl.Login(c.Request().Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Device:   req.Device,
		TTL:      req.TTL,
	})
	if err != nil {
		return renderError(err)
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, TokenResponse{AccessToken: pair.AccessToken})
}

func (h *Handler) Refresh(c echo.Context) error {
	pair, err := h.ctrl.Refresh(c.Request().Context(), h.refreshCookie(c))
	if err != nil {
		return renderError(err)
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, TokenResponse{AccessToken: pair.AccessToken})
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.ctrl.Logout(c.Request().Context(), h.refreshCookie(c)); err != nil {
		return renderError(err)
	}

	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusOK)
}

func (h *Handler) Check(c echo.Context) error {
	if err := h.ctrl.Check(c.Request().Context(), jwtmw.GetAuth(c)); err != nil {
		return renderError(err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handler) Sessions(c echo.Context) error {
	page, pageSize := 0, defaultPageSize
	err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("page_size", &pageSize).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid pagination parameters.")
	}

	result, err := h.ctrl.Sessions(c.Request().Context(), jwtmw.GetAuth(c), page, pageSize)
	if err != nil {
		return renderError(err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *Handler) DestroySession(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Session not found.")
	}

	if err := h.ctrl.DestroySession(c.Request().Context(), jwtmw.GetAuth(c), uint(id)); err != nil {
		return renderError(err)
	}

	return c.NoContent(http.StatusOK)
}

func (h *Handler) DestroySessions(c echo.Context) error {
	if err := h.ctrl.DestroySessions(c.Request().Context(), jwtmw.GetAuth(c)); err != nil {
		return renderError(err)
	}

	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusOK)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	if err := h.ctrl.Register(c.Request().Context(), req.Email, req.Password); err != nil {
		return renderError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: auth.MsgRegistered})
}

func (h *Handler) Activate(c echo.Context) error {
	msg, err := h.ctrl.Activate(c.Request().Context(), c.QueryParam("activation_token"))
	if err != nil {
		return renderError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: msg})
}

func (h *Handler) Forgot(c echo.Context) error {
	var req ForgotRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	if err := h.ctrl.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return renderError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: auth.MsgCheckEmail})
}

func (h *Handler) Change(c echo.Context) error {
	var req ChangeRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	if err := h.ctrl.ChangePassword(c.Request().Context(), jwtmw.GetAuth(c), req.OldPassword, req.NewPassword); err != nil {
		return renderError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: auth.MsgPasswordChanged})
}

func (h *Handler) Reset(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	if err := h.ctrl.ResetPassword(c.Request().Context(), req.ResetToken, req.NewPassword); err != nil {
		return renderError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: auth.MsgPasswordReset})
}

// deviceFromUserAgent labels a session whose client did not name itself.
func (h *Handler) deviceFromUserAgent(c echo.Context) *string {
	label := session.DeviceLabel(c.Request().UserAgent())
	if label == "" {
		return nil
	}

	if limit := h.config.Auth.MaxDeviceLength; len(label) > limit {
		label = label[:limit]
	}
	return &label
}

func (h *Handler) refreshCookie(c echo.Context) string {
	cookie, err := c.Cookie(h.config.Auth.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *Handler) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(h.cookie(token, int(h.config.JWT.RefreshExpiry/time.Second)))
}

func (h *Handler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(h.cookie("", -1))
}

func (h *Handler) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.config.Auth.CookieName,
		Value:    value,
		Path:     h.config.Auth.CookiePath,
		MaxAge:   maxAge,
		Secure:   h.config.Auth.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func renderError(err error) error {
	e := auth.AsError(err)
	return echo.NewHTTPError(e.Status, e.Message)
}

func invalidBody() error {
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body.")
}
