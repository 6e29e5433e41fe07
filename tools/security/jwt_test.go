package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	token, hash, exp, err := Generate(opts, "user-123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, strings.HasPrefix(hash, "sha256:"))
	assert.True(t, exp.After(time.Now()))

	claims, err := Verify(opts, token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject())
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	token, _, _, err := Generate(opts, "user-123")
	require.NoError(t, err)

	_, err = Verify(opts, token+"x")
	assert.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, _, err := Generate(DefaultOptions([]byte("secret-a")), "user-123")
	require.NoError(t, err)

	_, err = Verify(DefaultOptions([]byte("secret-b")), token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	// TTL <= 0 falls back to the 30d default, so use a tiny positive one.
	opts.TTL = time.Millisecond
	token, _, _, err := Generate(opts, "user-123")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = Verify(opts, token)
	assert.Error(t, err)
}

func TestUnsupportedAlg(t *testing.T) {
	opts := Options{Secret: []byte("test-secret"), Alg: "RS256"}

	_, _, _, err := Generate(opts, "user-123")
	assert.Error(t, err)

	_, err = Verify(opts, "whatever")
	assert.Error(t, err)
}

func TestHashTokenStable(t *testing.T) {
	a := HashToken("token-value")
	b := HashToken("token-value")
	c := HashToken("other-value")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong-pass"))
	assert.False(t, CheckPassword("not-a-bcrypt-hash", "s3cret-pass"))
}
