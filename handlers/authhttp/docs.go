package authhttp

import (
	"net/http"

	"github.com/tech-arch1tect/authority/openapi"
	"github.com/tech-arch1tect/authority/services/auth"
)

const (
	tagAuth     = "auth"
	tagSessions = "sessions"
	bearer      = "bearerAuth"
	refresh     = "refreshCookie"
)

// Document describes the routes mounted by RegisterRoutes under prefix.
func Document(o *openapi.OpenAPI, prefix, cookieName string) {
	o.Tag(tagAuth, "Sign-in, registration and password management").
		Tag(tagSessions, "Signed-in devices of the caller").
		BearerAuth(bearer, "Access token returned by login and refresh").
		CookieAuth(refresh, cookieName, "Refresh token, set by login and refresh")

	setCookie := map[string]string{"Set-Cookie": "Rotated refresh token (HttpOnly, SameSite=Strict)"}
	var msg MessageResponse

	o.Document(http.MethodPost, prefix+"/login").
		Summary("Sign in").
		OperationID("login").
		Tags(tagAuth).
		NoSecurity().
		Body(LoginRequest{}, "Credentials").
		ResponseWithHeaders(http.StatusOK, TokenResponse{}, "Signed in", setCookie).
		Response(http.StatusBadRequest, msg, "Inactive account or device label too long").
		Response(http.StatusUnauthorized, msg, "Invalid credentials").
		Response(http.StatusTooManyRequests, msg, "Too many attempts").
		Build()

	o.Document(http.MethodPost, prefix+"/refresh").
		Summary("Exchange the refresh cookie for a new token pair").
		OperationID("refresh").
		Tags(tagAuth).
		Security(refresh).
		ResponseWithHeaders(http.StatusOK, TokenResponse{}, "New access token", setCookie).
		Response(http.StatusUnauthorized, msg, "Invalid token or session").
		Build()

	o.Document(http.MethodPost, prefix+"/logout").
		Summary("End the session of the refresh cookie").
		OperationID("logout").
		Tags(tagAuth).
		Security(refresh).
		Response(http.StatusOK, nil, "Signed out, cookie cleared").
		Response(http.StatusUnauthorized, msg, "Invalid session").
		Build()

	o.Document(http.MethodPost, prefix+"/check").
		Summary("Succeeds for a valid access token").
		OperationID("check").
		Tags(tagAuth).
		Security(bearer).
		Response(http.StatusOK, nil, "Token is valid").
		Response(http.StatusUnauthorized, msg, "Missing or invalid access token").
		Build()

	o.Document(http.MethodPost, prefix+"/register").
		Summary("Create an account and mail its activation link").
		OperationID("register").
		Tags(tagAuth).
		NoSecurity().
		Body(RegisterRequest{}, "New account").
		Response(http.StatusOK, MessageResponse{Message: auth.MsgRegistered}, "Registered").
		Response(http.StatusBadRequest, msg, "Already registered or missing fields").
		Build()

	o.Document(http.MethodGet, prefix+"/activate").
		Summary("Activate an account").
		OperationID("activate").
		Tags(tagAuth).
		NoSecurity().
		QueryParam("activation_token", "Token from the registration email").Required().
		Response(http.StatusOK, msg, "Activated, or already active").
		Response(http.StatusBadRequest, msg, "Account no longer exists").
		Response(http.StatusUnauthorized, msg, "Invalid token").
		Build()

	o.Document(http.MethodPost, prefix+"/forgot").
		Summary("Mail password reset instructions").
		Description("Answers the same way whether or not the address has an account.").
		OperationID("forgotPassword").
		Tags(tagAuth).
		NoSecurity().
		Body(ForgotRequest{}, "Account address").
		Response(http.StatusOK, msg, "Instructions sent").
		Build()

	o.Document(http.MethodPost, prefix+"/change").
		Summary("Change the caller's password").
		OperationID("changePassword").
		Tags(tagAuth).
		Security(bearer).
		Body(ChangeRequest{}, "Old and new password").
		Response(http.StatusOK, msg, "Password changed").
		Response(http.StatusBadRequest, msg, "Missing or unchanged password").
		Response(http.StatusUnauthorized, msg, "Wrong old password").
		Build()

	o.Document(http.MethodPost, prefix+"/reset").
		Summary("Set a new password with a reset token").
		OperationID("resetPassword").
		Tags(tagAuth).
		NoSecurity().
		Body(ResetRequest{}, "Reset token and new password").
		Response(http.StatusOK, msg, "Password reset").
		Response(http.StatusBadRequest, msg, "Missing password or inactive account").
		Response(http.StatusUnauthorized, msg, "Invalid or already used token").
		Build()

	o.Document(http.MethodGet, prefix+"/sessions").
		Summary("List the caller's sessions").
		OperationID("listSessions").
		Tags(tagSessions).
		Security(bearer).
		QueryParam("page", "Zero-based page number").TypeInt().Min(0).Default(0).
		QueryParam("page_size", "Sessions per page").TypeInt().Min(1).Default(defaultPageSize).
		Response(http.StatusOK, auth.SessionsPage{}, "One page of sessions").
		Build()

	o.Document(http.MethodDelete, prefix+"/sessions/:id").
		Summary("End one of the caller's sessions").
		OperationID("destroySession").
		Tags(tagSessions).
		Security(bearer).
		PathParam("id", "Session id").TypeInt().
		Response(http.StatusOK, nil, "Session ended").
		Response(http.StatusNotFound, msg, "No such session of the caller").
		Build()

	o.Document(http.MethodDelete, prefix+"/sessions").
		Summary("End every session of the caller").
		OperationID("destroySessions").
		Tags(tagSessions).
		Security(bearer).
		Response(http.StatusOK, nil, "All sessions ended").
		Build()
}
