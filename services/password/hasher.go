// Package password hashes and verifies user passwords with argon2id. The
// server secret is mixed into every hash, so a copy of the users table alone
// is not enough to mount an offline guessing attack.
package password

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrMismatchedHash      = errors.New("password does not match hash")
	ErrInvalidHash         = errors.New("the encoded hash is not in the correct format")
	ErrIncompatibleAlgo    = errors.New("unsupported password hash algorithm")
	ErrIncompatibleVersion = errors.New("incompatible version of argon2")
)

type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type Hasher struct {
	secret []byte
	params Params
	logger *logging.Service
}

func NewHasher(cfg *config.Config, logger *logging.Service) *Hasher {
	return &Hasher{
		secret: []byte(cfg.JWT.SecretKey),
		params: Params{
			Memory:      cfg.Auth.Argon2Memory,
			Iterations:  cfg.Auth.Argon2Iterations,
			Parallelism: cfg.Auth.Argon2Parallelism,
			SaltLength:  cfg.Auth.Argon2SaltLength,
			KeyLength:   cfg.Auth.Argon2KeyLength,
		},
		logger: logger,
	}
}

// Hash returns a PHC-formatted argon2id hash with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey(h.pepper(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. Every failure, including
// a malformed hash, is reported as a mismatch.
func (h *Hasher) Verify(encoded, password string) bool {
	return h.Compare(encoded, password) == nil
}

// Compare returns nil on a match and ErrMismatchedHash otherwise.
func (h *Hasher) Compare(encoded, password string) error {
	if isBcrypt(encoded) {
		if err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)); err != nil {
			return ErrMismatchedHash
		}
		return nil
	}

	params, salt, key, err := decodeHash(encoded)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("stored password hash could not be decoded", zap.Error(err))
		}
		return ErrMismatchedHash
	}

	other := argon2.IDKey(h.pepper(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	if subtle.ConstantTimeCompare(key, other) != 1 {
		return ErrMismatchedHash
	}
	return nil
}

// NeedsRehash is true for legacy bcrypt hashes and for argon2id hashes made
// with parameters other than the current ones.
func (h *Hasher) NeedsRehash(encoded string) bool {
	if isBcrypt(encoded) {
		return true
	}

	params, _, _, err := decodeHash(encoded)
	if err != nil {
		return true
	}

	return params.Memory != h.params.Memory ||
		params.Iterations != h.params.Iterations ||
		params.Parallelism != h.params.Parallelism ||
		params.KeyLength != h.params.KeyLength
}

func (h *Hasher) pepper(password string) []byte {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(password))
	return mac.Sum(nil)
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") || strings.HasPrefix(encoded, "$2b$") || strings.HasPrefix(encoded, "$2y$")
}

func decodeHash(encoded string) (Params, []byte, []byte, error) {
	var p Params

	vals := strings.Split(encoded, "$")
	if len(vals) != 6 {
		return p, nil, nil, ErrInvalidHash
	}

	if vals[1] != "argon2id" {
		return p, nil, nil, ErrIncompatibleAlgo
	}

	var version int
	if _, err := fmt.Sscanf(vals[2], "v=%d", &version); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return p, nil, nil, ErrIncompatibleVersion
	}

	if _, err := fmt.Sscanf(vals[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.Strict().DecodeString(vals[4])
	if err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	p.SaltLength = uint32(len(salt))

	key, err := base64.RawStdEncoding.Strict().DecodeString(vals[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	p.KeyLength = uint32(len(key))

	return p, salt, key, nil
}
