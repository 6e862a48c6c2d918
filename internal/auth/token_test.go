package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens(t *testing.T, secret string) *Tokens {
	t.Helper()

	tokens, err := NewTokens(Config{Secret: secret})
	require.NoError(t, err)
	return tokens
}

func TestIssueVerify(t *testing.T) {
	tokens := newTestTokens(t, "test-secret")

	raw, err := tokens.Issue("alice")
	require.NoError(t, err)

	username, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	username, err = tokens.VerifyHeader(HeaderValue(raw))
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestNewTokens_RequiresSecret(t *testing.T) {
	_, err := NewTokens(Config{})
	require.Error(t, err)
}

func TestDefaultTTL(t *testing.T) {
	tokens := newTestTokens(t, "test-secret")
	assert.Equal(t, 240*time.Hour, tokens.ttl)
}

func TestVerify_Expired(t *testing.T) {
	tokens := newTestTokens(t, "test-secret")
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }

	raw, err := tokens.Issue("alice")
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(DefaultTTL - time.Minute) }
	_, err = tokens.Verify(raw)
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(DefaultTTL + time.Minute) }
	_, err = tokens.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	raw, err := newTestTokens(t, "secret-a").Issue("alice")
	require.NoError(t, err)

	_, err = newTestTokens(t, "secret-b").Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_UnexpectedSigningMethod(t *testing.T) {
	tokens := newTestTokens(t, "test-secret")

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_MissingExpiry(t *testing.T) {
	tokens := newTestTokens(t, "test-secret")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"})
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyHeader_Malformed(t *testing.T) {
	tokens := newTestTokens(t, "test-secret")
	raw, err := tokens.Issue("alice")
	require.NoError(t, err)

	for _, header := range []string{"", "Bearer ", raw, "Basic " + raw, "Bearer garbage"} {
		_, err := tokens.VerifyHeader(header)
		assert.ErrorIs(t, err, ErrInvalidToken, "header %q", header)
	}
}
