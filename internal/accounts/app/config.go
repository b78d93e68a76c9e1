package app

import (
	"os"
	"strconv"
	"time"

	"github.com/milongahq/accounts/internal/accounts/domain"
)

type Config struct {
	DatabaseFile string // Path to SQLite database file (default: ./accounts.db)
	SecretFile   string // Path to the token signing secret file (default: ./token_secret)
	PepperFile   string // Path to the password hashing pepper file (default: ./pepper)

	PolicyName string // Account policy: "booking" or "blog" (default: booking)

	TokenMaxAge       time.Duration // Reset/verify token lifetime (default: 30m)
	ReaperInterval    time.Duration // Reaper tick interval (default: 1m)
	ReaperGracePeriod time.Duration // Unverified-account grace period (default: 30m)
	SingleUseTokens   bool          // Invalidate tokens on first successful use (default: false)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
}

func LoadConfig() Config {
	return Config{
		DatabaseFile: getEnvOrDefault("ACCOUNTS_DATABASE_FILE", "accounts.db"),
		SecretFile:   getEnvOrDefault("ACCOUNTS_SECRET_FILE", "token_secret"),
		PepperFile:   getEnvOrDefault("ACCOUNTS_PEPPER_FILE", "pepper"),

		PolicyName: getEnvOrDefault("ACCOUNTS_POLICY", "booking"),

		TokenMaxAge:       getEnvDurationOrDefault("ACCOUNTS_TOKEN_MAX_AGE", 30*time.Minute),
		ReaperInterval:    getEnvDurationOrDefault("REAPER_INTERVAL", time.Minute),
		ReaperGracePeriod: getEnvDurationOrDefault("REAPER_GRACE_PERIOD", 30*time.Minute),
		SingleUseTokens:   getEnvBoolOrDefault("ACCOUNTS_SINGLE_USE_TOKENS", false),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
	}
}

// Policy resolves the configured policy preset, applying the token flag on
// top. Unknown names fall back to the booking policy.
func (c Config) Policy() domain.Policy {
	var p domain.Policy
	switch c.PolicyName {
	case "blog":
		p = domain.BlogPolicy()
	default:
		p = domain.BookingPolicy()
	}
	p.SingleUseTokens = c.SingleUseTokens
	return p
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
