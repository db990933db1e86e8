package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authority/testutils"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher() *Hasher {
	return NewHasher(testutils.GetTestConfig(), nil)
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := newTestHasher()

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))
	assert.True(t, h.Verify(hash, "correct horse"))
	assert.False(t, h.Verify(hash, "correct horse "))
	assert.False(t, h.Verify(hash, ""))
}

func TestHasher_FreshSaltPerCall(t *testing.T) {
	h := newTestHasher()

	first, err := h.Hash("pw1")
	require.NoError(t, err)
	second, err := h.Hash("pw1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify(first, "pw1"))
	assert.True(t, h.Verify(second, "pw1"))
}

func TestHasher_SecretIsMixedIn(t *testing.T) {
	h := newTestHasher()
	hash, err := h.Hash("pw1")
	require.NoError(t, err)

	cfg := testutils.GetTestConfig()
	cfg.JWT.SecretKey = "z9y8x7w6v5u4t3s2r1q0p9o8n7m6l5k4j3i2h1g0"
	other := NewHasher(cfg, nil)

	assert.False(t, other.Verify(hash, "pw1"))
}

func TestHasher_EmptyPassword(t *testing.T) {
	_, err := newTestHasher().Hash("")

	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestHasher_MalformedHashIsMismatch(t *testing.T) {
	h := newTestHasher()

	tests := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=16,t=1,p=1$c2FsdHNhbHQ$aGFzaA",
		"$argon2id$v=18$m=16,t=1,p=1$c2FsdHNhbHQ$aGFzaA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHQ$aGFzaA",
		"$argon2id$v=19$m=16,t=1,p=1$not base64!$aGFzaA",
		"$argon2id$v=19$m=16,t=1,p=1$c2FsdHNhbHQ$",
	}

	for _, encoded := range tests {
		t.Run(encoded, func(t *testing.T) {
			assert.False(t, h.Verify(encoded, "pw1"))
			assert.True(t, h.NeedsRehash(encoded))
		})
	}
}

func TestHasher_LegacyBcrypt(t *testing.T) {
	h := newTestHasher()

	legacy, err := bcrypt.GenerateFromPassword([]byte("pw1"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, h.Verify(string(legacy), "pw1"))
	assert.False(t, h.Verify(string(legacy), "pw2"))
	assert.True(t, h.NeedsRehash(string(legacy)))
}

func TestHasher_NeedsRehash(t *testing.T) {
	h := newTestHasher()
	hash, err := h.Hash("pw1")
	require.NoError(t, err)

	assert.False(t, h.NeedsRehash(hash))

	cfg := testutils.GetTestConfig()
	cfg.Auth.Argon2Iterations++
	stronger := NewHasher(cfg, nil)

	assert.True(t, stronger.NeedsRehash(hash))
	assert.True(t, stronger.Verify(hash, "pw1"))
}

func TestHasher_Compare(t *testing.T) {
	h := newTestHasher()
	hash, err := h.Hash("pw1")
	require.NoError(t, err)

	assert.NoError(t, h.Compare(hash, "pw1"))
	assert.ErrorIs(t, h.Compare(hash, "pw2"), ErrMismatchedHash)
	assert.ErrorIs(t, h.Compare("garbage", "pw1"), ErrMismatchedHash)
}
