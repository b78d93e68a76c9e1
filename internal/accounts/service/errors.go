package service

import (
	"errors"
	"fmt"

	"github.com/milongahq/accounts/pkg/tokenx"
)

// ValidationError reports a malformed or disallowed input field. No store
// mutation has happened when one is returned.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Rule)
}

// ConflictError reports a uniqueness violation on username or email.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already taken", e.Field)
}

var (
	// ErrInvalidCredentials is the uniform login failure. It never reveals
	// whether the account exists or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid username and/or password")

	// ErrEmailNotVerified is deliberately distinct from ErrInvalidCredentials:
	// the credentials were right but the email is still unverified.
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrInvalidToken is the uniform invalid-or-expired token outcome.
	ErrInvalidToken = tokenx.ErrInvalidToken

	// ErrAccountNotFound reports a token whose target account no longer
	// exists (e.g. reaped while the link sat in an inbox).
	ErrAccountNotFound = errors.New("account no longer exists")
)
