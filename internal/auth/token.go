// Package auth issues and verifies the bearer tokens handed out at login.
package auth

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// Header and scheme used to carry tokens.
const (
	HeaderName  = "Authorization"
	TokenPrefix = "Bearer "
)

// DefaultTTL is the token lifetime used when Config.TTL is zero.
const DefaultTTL = 10 * 24 * time.Hour

// ErrInvalidToken is returned for missing, malformed, forged or expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// Config holds token signing parameters.
type Config struct {
	Secret string
	TTL    time.Duration
}

// Tokens issues and verifies HS256 JWTs whose subject is the username.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates Tokens. The secret must not be empty.
func NewTokens(cfg Config) (*Tokens, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Tokens{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token for username.
func (t *Tokens) Issue(username string) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify parses a raw token and returns its subject.
func (t *Tokens) Verify(raw string) (string, error) {
	claims := new(jwt.RegisteredClaims)
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" {
		return "", errors.Wrap(ErrInvalidToken, "empty subject")
	}
	return claims.Subject, nil
}

// VerifyHeader verifies an Authorization header value of the form
// "Bearer <token>".
func (t *Tokens) VerifyHeader(header string) (string, error) {
	raw, ok := strings.CutPrefix(header, TokenPrefix)
	if !ok || raw == "" {
		return "", errors.Wrap(ErrInvalidToken, "missing bearer token")
	}
	return t.Verify(raw)
}

// HeaderValue formats a token for the Authorization header.
func HeaderValue(token string) string {
	return TokenPrefix + token
}
