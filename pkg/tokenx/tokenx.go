// Package tokenx issues and verifies signed, time-limited tokens that bind a
// user identity to a workflow purpose. Tokens are stateless: the issue time is
// baked into the signed payload and the maximum age is supplied by the
// verifier, so there is nothing to persist and expiry is the only built-in
// invalidation mechanism.
package tokenx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose namespaces a token to a single workflow. A token minted for one
// purpose must never verify under another.
type Purpose string

const (
	PurposePasswordReset Purpose = "password_reset"
	PurposeEmailVerify   Purpose = "email_verify"
)

// DefaultMaxAge is the verification window used when no explicit max age is
// given.
const DefaultMaxAge = 30 * time.Minute

// leeway tolerates small clock drift between issuer and verifier.
const leeway = time.Minute

// ErrInvalidToken is the uniform failure signal for verification. It
// deliberately does not distinguish a tampered signature from an expired
// token from a purpose mismatch.
var ErrInvalidToken = errors.New("tokenx: invalid or expired token")

// ErrMissingSecret reports a misconfigured signing secret. This is fatal at
// startup, never a user-facing outcome.
var ErrMissingSecret = errors.New("tokenx: signing secret is empty")

type claims struct {
	jwt.RegisteredClaims

	// Purpose is the workflow namespace the token was minted for.
	Purpose string `json:"pur"`
}

// Service signs and verifies tokens with a single shared secret.
type Service struct {
	secret []byte
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, letting tests control issue and
// verification times without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service signing with the given secret. An empty secret is a
// configuration error.
func New(secret []byte, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}

	s := &Service{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue produces a URL-safe signed token binding userID and purpose, with the
// current time recorded as the issue time.
func (s *Service) Issue(userID string, purpose Purpose) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
		Purpose: string(purpose),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Verify checks signature integrity, purpose, and that no more than maxAge
// has elapsed since issuance. It returns the bound user id on success and
// ErrInvalidToken on any failure. A non-positive maxAge falls back to
// DefaultMaxAge.
func (s *Service) Verify(token string, purpose Purpose, maxAge time.Duration) (string, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	var c claims
	parsed, err := parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	if c.Purpose != string(purpose) || c.Subject == "" || c.IssuedAt == nil {
		return "", ErrInvalidToken
	}

	age := s.now().Sub(c.IssuedAt.Time)
	if age > maxAge || age < -leeway {
		return "", ErrInvalidToken
	}

	return c.Subject, nil
}
