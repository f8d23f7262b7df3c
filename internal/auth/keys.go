// Package auth issues and verifies credentials: argon2id password hashes,
// PASETO access tokens and Google ID tokens.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// PASETO v4 requires a 256-bit (32-byte) symmetric key.
	keyLength = 32
	// Expected hex-encoded length (32 bytes = 64 hex characters).
	keyHexLength = 64

	keyFileName = "auth.key"
)

// ResolveKey returns the hex-encoded token key. A configured key wins;
// otherwise the key stored under dataPath is used, generating it on first
// run.
func ResolveKey(configured, dataPath string) (string, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		if _, err := decodeKey(configured); err != nil {
			return "", fmt.Errorf("configured auth key: %w", err)
		}
		return configured, nil
	}
	key, err := LoadOrGenerateKey(dataPath)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// LoadOrGenerateKey loads the symmetric key from <dataPath>/auth.key,
// creating the file with a fresh random key if it does not exist.
func LoadOrGenerateKey(dataPath string) ([]byte, error) {
	keyPath := filepath.Join(dataPath, keyFileName)

	//#nosec G304 -- key path is derived from the configured data path
	if keyBytes, err := os.ReadFile(keyPath); err == nil {
		return decodeKey(string(keyBytes))
	}

	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate auth key: %w", err)
	}

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to save auth key: %w", err)
	}

	return key, nil
}

func decodeKey(keyHex string) ([]byte, error) {
	keyHex = strings.TrimSpace(keyHex)
	if len(keyHex) != keyHexLength {
		return nil, fmt.Errorf("invalid auth key length: expected %d hex chars, got %d", keyHexLength, len(keyHex))
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid auth key format: not valid hex: %w", err)
	}
	return key, nil
}
