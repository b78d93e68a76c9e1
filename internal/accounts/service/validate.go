package service

import (
	"net/mail"
	"unicode"
	"unicode/utf8"

	"github.com/milongahq/accounts/internal/accounts/domain"
)

// Pure input validators. No state, no I/O; uniqueness checks against the
// store are layered on top by AccountService.

// ValidateUsername checks shape only: presence, policy length bounds, and the
// letter-and-digit rule when the policy demands it.
func ValidateUsername(p domain.Policy, username string) *ValidationError {
	if username == "" {
		return &ValidationError{Field: "username", Rule: "required"}
	}
	// Length bounds count characters, not bytes.
	if n := utf8.RuneCountInString(username); n < p.UsernameMinLen || n > p.UsernameMaxLen {
		return &ValidationError{Field: "username", Rule: "length"}
	}

	if p.UsernameRequireLetterAndDigit {
		var hasLetter, hasDigit bool
		for _, r := range username {
			switch {
			case unicode.IsLetter(r):
				hasLetter = true
			case unicode.IsDigit(r):
				hasDigit = true
			}
		}
		if !hasLetter || !hasDigit {
			return &ValidationError{Field: "username", Rule: "letter_and_digit"}
		}
	}

	return nil
}

// ValidatePassword enforces the fixed strength rules (>=8 chars, one upper,
// one lower, one digit, one special) plus the policy's optional upper length
// bound, and that the confirmation matches exactly.
func ValidatePassword(p domain.Policy, password, confirm string) *ValidationError {
	if password == "" {
		return &ValidationError{Field: "password", Rule: "required"}
	}
	if utf8.RuneCountInString(password) < 8 {
		return &ValidationError{Field: "password", Rule: "too_short"}
	}
	if p.PasswordMaxLen > 0 && utf8.RuneCountInString(password) > p.PasswordMaxLen {
		return &ValidationError{Field: "password", Rule: "too_long"}
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	switch {
	case !hasUpper:
		return &ValidationError{Field: "password", Rule: "uppercase"}
	case !hasLower:
		return &ValidationError{Field: "password", Rule: "lowercase"}
	case !hasDigit:
		return &ValidationError{Field: "password", Rule: "digit"}
	case !hasSpecial:
		return &ValidationError{Field: "password", Rule: "special"}
	}

	if confirm != password {
		return &ValidationError{Field: "confirm_password", Rule: "mismatch"}
	}

	return nil
}

// ValidateName checks a first or last name: present, letters only, bounded.
func ValidateName(field, name string, maxLen int) *ValidationError {
	if name == "" {
		return &ValidationError{Field: field, Rule: "required"}
	}
	if utf8.RuneCountInString(name) > maxLen {
		return &ValidationError{Field: field, Rule: "too_long"}
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return &ValidationError{Field: field, Rule: "letters_only"}
		}
	}
	return nil
}

// ValidateEmail checks address shape. Display-name forms ("A <a@x.com>") are
// rejected; only the bare address is acceptable.
func ValidateEmail(email string) *ValidationError {
	if email == "" {
		return &ValidationError{Field: "email", Rule: "required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Rule: "invalid"}
	}
	return nil
}

// ValidateRole checks membership in the policy's role set.
func ValidateRole(p domain.Policy, role string) *ValidationError {
	if role == "" {
		return &ValidationError{Field: "role", Rule: "required"}
	}
	if !p.HasRole(role) {
		return &ValidationError{Field: "role", Rule: "unknown"}
	}
	return nil
}
