package app

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

const secretLength = 32

// loadOrGenerateSecret reads the token signing secret from file, generating
// and persisting one on first run. An unreadable or empty secret is a fatal
// configuration error, never a user-facing outcome.
func loadOrGenerateSecret(path string) ([]byte, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("prepare secret directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		secret := make([]byte, secretLength)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate signing secret: %w", err)
		}
		if err := os.WriteFile(path, secret, 0600); err != nil {
			return nil, fmt.Errorf("persist signing secret: %w", err)
		}
		return secret, nil
	}

	secret, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret file %s is empty", path)
	}
	return secret, nil
}
