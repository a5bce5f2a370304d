package password

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/credential-service/internal/core/domain"
)

func testConfig() Config {
	return Config{MemoryKB: 8 * 1024, Iterations: 1, Parallelism: 1}
}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(testConfig())
	require.NoError(t, err)
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("pw123")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"), encoded)
	assert.NotContains(t, encoded, "pw123")
	assert.True(t, h.Verify("pw123", encoded))
}

func TestHash_SaltedPerCall(t *testing.T) {
	h := newTestHasher(t)

	first, err := h.Hash("same-password")
	require.NoError(t, err)
	second, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("same-password", first))
	assert.True(t, h.Verify("same-password", second))
}

func TestVerify_WrongPassword(t *testing.T) {
	h := newTestHasher(t)

	for _, tc := range []struct{ stored, attempt string }{
		{"pw", "pw2"},
		{"correct horse", "Correct horse"},
		{"ünïcødé-пароль", "unicode-parol"},
		{"", " "},
	} {
		encoded, err := h.Hash(tc.stored)
		require.NoError(t, err)
		assert.False(t, h.Verify(tc.attempt, encoded), "attempt %q against %q", tc.attempt, tc.stored)
	}
}

func TestVerify_MalformedHashes(t *testing.T) {
	h := newTestHasher(t)
	valid, err := h.Hash("pw")
	require.NoError(t, err)
	parts := strings.Split(valid, "$")

	cases := map[string]string{
		"empty":             "",
		"plaintext":         "pw",
		"unknown algorithm": strings.Replace(valid, "argon2id", "argon2i", 1),
		"scrypt tag":        "$scrypt$ln=16,r=8,p=1$c2FsdA$a2V5",
		"bad version":       strings.Replace(valid, "v=19", "v=16", 1),
		"missing param":     "$argon2id$v=19$m=8192,t=1$" + parts[4] + "$" + parts[5],
		"low memory":        strings.Replace(valid, "m=8192", "m=8", 1),
		"bad salt":          "$argon2id$v=19$m=8192,t=1,p=1$!!!$" + parts[5],
		"truncated":         strings.Join(parts[:5], "$"),
	}
	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, h.Verify("pw", encoded))
		})
	}
}

func TestVerify_ParametersReadFromHash(t *testing.T) {
	weak := newTestHasher(t)
	encoded, err := weak.Hash("upgrade-me")
	require.NoError(t, err)

	stronger, err := NewHasher(Config{MemoryKB: 16 * 1024, Iterations: 2, Parallelism: 2})
	require.NoError(t, err)

	assert.True(t, stronger.Verify("upgrade-me", encoded))
}

func TestVerify_LegacyBcrypt(t *testing.T) {
	h := newTestHasher(t)
	legacy, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, h.Verify("old-password", string(legacy)))
	assert.False(t, h.Verify("new-password", string(legacy)))
}

func TestHash_TooLong(t *testing.T) {
	h := newTestHasher(t)

	_, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.ErrorIs(t, err, domain.ErrPasswordTooLong)

	// the bound is in bytes, not runes
	_, err = h.Hash(strings.Repeat("é", MaxPasswordBytes/2+1))
	assert.ErrorIs(t, err, domain.ErrPasswordTooLong)

	encoded, err := h.Hash(strings.Repeat("a", MaxPasswordBytes))
	require.NoError(t, err)
	assert.False(t, h.Verify(strings.Repeat("a", MaxPasswordBytes+1), encoded))
}

func TestHash_RandomFailure(t *testing.T) {
	h := newTestHasher(t)
	h.rand = failingReader{}

	_, err := h.Hash("pw")
	assert.Error(t, err)
}

func TestNewHasher_RejectsWeakConfig(t *testing.T) {
	for _, cfg := range []Config{
		{MemoryKB: 1024, Iterations: 1, Parallelism: 1},
		{MemoryKB: 8192, Iterations: 0, Parallelism: 1},
		{MemoryKB: 8192, Iterations: 1, Parallelism: 0},
	} {
		_, err := NewHasher(cfg)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }
