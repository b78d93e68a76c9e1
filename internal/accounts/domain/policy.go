package domain

import "slices"

// Policy captures the per-site account rules. The booking site and the blog
// ran the same lifecycle with diverging validation bounds and session
// behavior; the divergence is data here, not duplicated code.
type Policy struct {
	UsernameMinLen int
	UsernameMaxLen int
	// UsernameRequireLetterAndDigit demands at least one letter and one digit
	// in the username (booking site rule).
	UsernameRequireLetterAndDigit bool

	// PasswordMaxLen of 0 means no upper bound. Minimum length and character
	// class rules are fixed across policies.
	PasswordMaxLen int

	FirstNameMaxLen int
	LastNameMaxLen  int

	// Roles a user may hold. Input is lowercased before membership checks.
	Roles []string

	// AutoLoginOnRegister grants a session immediately after registration
	// instead of requiring a verified login first.
	AutoLoginOnRegister bool

	// RequireVerifiedLogin blocks login until the email has been verified.
	RequireVerifiedLogin bool

	// SingleUseTokens invalidates a reset/verify token on first successful
	// consumption. Off by default: a token stays usable until it expires,
	// matching the behavior both sites shipped with.
	SingleUseTokens bool
}

// BookingPolicy is the dance-event booking site ruleset.
func BookingPolicy() Policy {
	return Policy{
		UsernameMinLen:                8,
		UsernameMaxLen:                16,
		UsernameRequireLetterAndDigit: true,
		PasswordMaxLen:                0,
		FirstNameMaxLen:               25,
		LastNameMaxLen:                50,
		Roles:                         []string{"follower", "leader", "both"},
		AutoLoginOnRegister:           true,
		RequireVerifiedLogin:          false,
	}
}

// BlogPolicy is the blog ruleset.
func BlogPolicy() Policy {
	return Policy{
		UsernameMinLen:       4,
		UsernameMaxLen:       20,
		PasswordMaxLen:       16,
		FirstNameMaxLen:      25,
		LastNameMaxLen:       25,
		Roles:                []string{"follower", "leader", "both"},
		AutoLoginOnRegister:  false,
		RequireVerifiedLogin: true,
	}
}

// HasRole reports whether role is a member of the policy's role set.
func (p Policy) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}
