package jwt

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tech-arch1tect/authority/services/permissions"
)

const (
	TokenTypeAccess     = "access_token"
	TokenTypeRefresh    = "refresh_token"
	TokenTypeActivation = "activation_token"
	TokenTypeReset      = "reset_token"
)

// Claims is the payload shared by every token kind. Refresh, activation and
// reset tokens carry nothing else; TokenType is what keeps them apart.
type Claims struct {
	Subject   uint             `json:"sub"`
	TokenType string           `json:"token_type"`
	ID        string           `json:"jti"`
	Issuer    string           `json:"iss,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
}

type AccessClaims struct {
	Claims
	Roles       []string                 `json:"roles"`
	Permissions []permissions.Permission `json:"permissions"`
}

// TypedClaims is implemented by every claims shape this package issues.
type TypedClaims interface {
	jwt.Claims
	GetTokenType() string
}

func (c Claims) GetTokenType() string {
	return c.TokenType
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.ExpiresAt, nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.IssuedAt, nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

func (c Claims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

func (c Claims) GetSubject() (string, error) {
	return strconv.FormatUint(uint64(c.Subject), 10), nil
}

func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
