package service

import (
	"strings"
	"testing"

	"github.com/milongahq/accounts/internal/accounts/domain"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	blog := domain.BlogPolicy()
	booking := domain.BookingPolicy()

	tests := []struct {
		name     string
		policy   domain.Policy
		username string
		wantRule string
	}{
		{"blog accepts 4 chars", blog, "abcd", ""},
		{"blog accepts 20 chars", blog, strings.Repeat("a", 20), ""},
		{"blog rejects empty", blog, "", "required"},
		{"blog rejects 3 chars", blog, "abc", "length"},
		{"blog rejects 21 chars", blog, strings.Repeat("a", 21), "length"},
		{"blog allows letters only", blog, "alice", ""},
		{"blog counts accented chars not bytes", blog, strings.Repeat("é", 20), ""},
		{"blog rejects 21 accented chars", blog, strings.Repeat("é", 21), "length"},
		{"booking accepts letter plus digit", booking, "alice1234", ""},
		{"booking rejects 7 chars", booking, "alice12", "length"},
		{"booking rejects 17 chars", booking, strings.Repeat("a", 16) + "1", "length"},
		{"booking rejects letters only", booking, "aliceblue", "letter_and_digit"},
		{"booking rejects digits only", booking, "12345678", "letter_and_digit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateUsername(tt.policy, tt.username)
			if tt.wantRule == "" {
				require.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			require.Equal(t, "username", v.Field)
			require.Equal(t, tt.wantRule, v.Rule)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	booking := domain.BookingPolicy() // no upper bound
	blog := domain.BlogPolicy()       // max 16

	tests := []struct {
		name      string
		policy    domain.Policy
		password  string
		confirm   string
		wantField string
		wantRule  string
	}{
		{"valid", booking, "Abcdef1!", "Abcdef1!", "", ""},
		{"empty", booking, "", "", "password", "required"},
		{"seven chars", booking, "Abcde1!", "Abcde1!", "password", "too_short"},
		{"missing upper", booking, "abcdef1!", "abcdef1!", "password", "uppercase"},
		{"missing lower", booking, "ABCDEF1!", "ABCDEF1!", "password", "lowercase"},
		{"missing digit", booking, "Abcdefg!", "Abcdefg!", "password", "digit"},
		{"missing special", booking, "Abcdefg1", "Abcdefg1", "password", "special"},
		{"confirm mismatch", booking, "Abcdef1!", "Abcdef1?", "confirm_password", "mismatch"},
		{"confirm empty", booking, "Abcdef1!", "", "confirm_password", "mismatch"},
		{"long allowed without bound", booking, "Abcdef1!" + strings.Repeat("x", 20), "Abcdef1!" + strings.Repeat("x", 20), "", ""},
		{"blog rejects 17 chars", blog, "Abcdef1!abcdefghi", "Abcdef1!abcdefghi", "password", "too_long"},
		{"blog accepts 16 chars", blog, "Abcdef1!abcdefgh", "Abcdef1!abcdefgh", "", ""},
		{"multibyte counted as one char", booking, "Aéé1!xy", "Aéé1!xy", "password", "too_short"},
		{"blog accepts 16 chars with multibyte", blog, "Abcdef1!" + strings.Repeat("é", 8), "Abcdef1!" + strings.Repeat("é", 8), "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidatePassword(tt.policy, tt.password, tt.confirm)
			if tt.wantField == "" {
				require.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			require.Equal(t, tt.wantField, v.Field)
			require.Equal(t, tt.wantRule, v.Rule)
		})
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		max      int
		wantRule string
	}{
		{"simple", "Alice", 25, ""},
		{"accented letters", "Renée", 25, ""},
		{"accented at the bound", strings.Repeat("é", 25), 25, ""},
		{"accented past the bound", strings.Repeat("é", 26), 25, "too_long"},
		{"empty", "", 25, "required"},
		{"digit", "Alice2", 25, "letters_only"},
		{"space", "Mary Jane", 25, "letters_only"},
		{"punctuation", "O'Brien", 25, "letters_only"},
		{"too long", strings.Repeat("a", 26), 25, "too_long"},
		{"fits wider bound", strings.Repeat("a", 40), 50, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateName("first_name", tt.value, tt.max)
			if tt.wantRule == "" {
				require.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			require.Equal(t, "first_name", v.Field)
			require.Equal(t, tt.wantRule, v.Rule)
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	for _, good := range []string{"a@x.com", "alice.smith@example.co.uk", "a+tag@x.org"} {
		require.Nil(t, ValidateEmail(good), good)
	}

	for _, bad := range []string{"", "not-an-email", "@x.com", "a@", "a b@x.com", "Alice <a@x.com>"} {
		v := ValidateEmail(bad)
		require.NotNil(t, v, bad)
		require.Equal(t, "email", v.Field)
	}
}

func TestValidateRole(t *testing.T) {
	t.Parallel()

	p := domain.BookingPolicy()

	for _, good := range []string{"follower", "leader", "both"} {
		require.Nil(t, ValidateRole(p, good))
	}

	v := ValidateRole(p, "")
	require.NotNil(t, v)
	require.Equal(t, "required", v.Rule)

	v = ValidateRole(p, "organiser")
	require.NotNil(t, v)
	require.Equal(t, "unknown", v.Rule)
}
