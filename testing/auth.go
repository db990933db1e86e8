package e2etesting

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authority/testutils"
)

// AuthHelper drives the auth endpoints of an E2EApp over HTTP.
type AuthHelper struct {
	App    *E2EApp
	Client *HTTPClient
}

func NewAuthHelper(e2eApp *E2EApp) *AuthHelper {
	return &AuthHelper{App: e2eApp, Client: e2eApp.Client()}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHelper) Register(email, password string) (*Response, error) {
	return h.Client.Post(h.App.Path("/register"), credentials{Email: email, Password: password})
}

func (h *AuthHelper) Activate(token string) (*Response, error) {
	return h.Client.Get(h.App.Path("/activate?activation_token=" + url.QueryEscape(token)))
}

func (h *AuthHelper) Login(email, password string) (*Response, error) {
	return h.Client.Post(h.App.Path("/login"), credentials{Email: email, Password: password})
}

func (h *AuthHelper) Refresh() (*Response, error) {
	return h.Client.Post(h.App.Path("/refresh"), nil)
}

func (h *AuthHelper) Logout() (*Response, error) {
	return h.Client.Post(h.App.Path("/logout"), nil)
}

// LatestToken extracts the token from the link in the most recent email.
func (h *AuthHelper) LatestToken(t *testing.T) string {
	t.Helper()

	msg, ok := h.App.Mailer.Last()
	require.True(t, ok, "no email was sent")

	token, err := testutils.ExtractToken(msg.Text)
	require.NoError(t, err)
	return token
}

// SignUp registers and activates email, then logs in and returns the access
// token. The refresh cookie stays in the helper's cookie jar.
func (h *AuthHelper) SignUp(t *testing.T, email, password string) string {
	t.Helper()

	resp, err := h.Register(email, password)
	require.NoError(t, err)
	resp.AssertStatus(t, http.StatusOK)

	resp, err = h.Activate(h.LatestToken(t))
	require.NoError(t, err)
	resp.AssertStatus(t, http.StatusOK)

	resp, err = h.Login(email, password)
	require.NoError(t, err)
	resp.AssertStatus(t, http.StatusOK)

	var body struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, resp.GetJSON(&body))
	return body.AccessToken
}
