package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/logging"
	"github.com/tech-arch1tect/authority/services/permissions"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken     = errors.New("invalid JWT token")
	ErrExpiredToken     = errors.New("JWT token has expired")
	ErrMalformedToken   = errors.New("malformed JWT token")
	ErrInvalidSignature = errors.New("invalid JWT token signature")
	ErrWrongTokenType   = errors.New("JWT token has the wrong token type")
	ErrInvalidIssuer    = errors.New("JWT token has an unexpected issuer")
)

// Sign encodes claims as a compact HS256 token.
func Sign(claims jwt.Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Verify decodes tokenString into claims, checking signature, expiry and that
// the token_type matches tokenType.
func Verify(tokenString string, claims TypedClaims, tokenType string, secret []byte, opts ...jwt.ParserOption) error {
	parserOpts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}, opts...)

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, parserOpts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			return ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return ErrInvalidIssuer
		default:
			return ErrInvalidToken
		}
	}

	if !token.Valid {
		return ErrInvalidToken
	}

	if !strings.EqualFold(claims.GetTokenType(), tokenType) {
		return ErrWrongTokenType
	}

	return nil
}

type Service struct {
	config *config.Config
	logger *logging.Service
	now    func() time.Time
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source used for issuing and verifying.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// IssueAccessToken mints an access token valid for ttl, never less than one
// second.
func (s *Service) IssueAccessToken(userID uint, roles []string, perms []permissions.Permission, ttl time.Duration) (string, error) {
	if ttl < time.Second {
		ttl = time.Second
	}

	if roles == nil {
		roles = []string{}
	}
	if perms == nil {
		perms = []permissions.Permission{}
	}

	claims := AccessClaims{
		Claims:      s.newClaims(userID, TokenTypeAccess, ttl),
		Roles:       roles,
		Permissions: perms,
	}

	return s.sign(claims, TokenTypeAccess)
}

func (s *Service) IssueRefreshToken(userID uint) (string, error) {
	return s.sign(s.newClaims(userID, TokenTypeRefresh, s.config.JWT.RefreshExpiry), TokenTypeRefresh)
}

func (s *Service) IssueActivationToken(userID uint) (string, error) {
	return s.sign(s.newClaims(userID, TokenTypeActivation, s.config.JWT.ActivationExpiry), TokenTypeActivation)
}

func (s *Service) IssueResetToken(userID uint) (string, error) {
	return s.sign(s.newClaims(userID, TokenTypeReset, s.config.JWT.ResetExpiry), TokenTypeReset)
}

func (s *Service) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.verify(tokenString, claims, TokenTypeAccess); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Service) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return s.verifyClaims(tokenString, TokenTypeRefresh)
}

func (s *Service) VerifyActivationToken(tokenString string) (*Claims, error) {
	return s.verifyClaims(tokenString, TokenTypeActivation)
}

func (s *Service) VerifyResetToken(tokenString string) (*Claims, error) {
	return s.verifyClaims(tokenString, TokenTypeReset)
}

func (s *Service) newClaims(userID uint, tokenType string, ttl time.Duration) Claims {
	now := s.now()
	return Claims{
		Subject:   userID,
		TokenType: tokenType,
		ID:        uuid.NewString(),
		Issuer:    s.config.JWT.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *Service) sign(claims jwt.Claims, tokenType string) (string, error) {
	tokenString, err := Sign(claims, []byte(s.config.JWT.SecretKey))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to sign JWT token", zap.String("token_type", tokenType), zap.Error(err))
		}
		return "", fmt.Errorf("failed to generate %s: %w", tokenType, err)
	}

	return tokenString, nil
}

func (s *Service) verifyClaims(tokenString, tokenType string) (*Claims, error) {
	claims := &Claims{}
	if err := s.verify(tokenString, claims, tokenType); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Service) verify(tokenString string, claims TypedClaims, tokenType string) error {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.config.JWT.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.JWT.Issuer))
	}

	err := Verify(tokenString, claims, tokenType, []byte(s.config.JWT.SecretKey), opts...)
	if err != nil && s.logger != nil {
		s.logger.Debug("JWT token validation failed", zap.String("expected_type", tokenType), zap.Error(err))
	}
	return err
}
