// Package id generates identifiers for stored entities and one-time tokens.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for entity identifiers.
const (
	PrefixUser       = "usr"
	PrefixRecipe     = "rcp"
	PrefixCollection = "col"
	PrefixToken      = "tok"
	PrefixAudit      = "aud"
)

// tokenAlphabet excludes URL-reserved characters so tokens can be
// embedded directly in email links.
const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const tokenLength = 40

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "rcp-V1StGXR8_Z5jdHi6B-myT")
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// Token returns a random alphanumeric token for email verification and
// password reset links.
func Token() (string, error) {
	t, err := gonanoid.Generate(tokenAlphabet, tokenLength)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return t, nil
}

// Comment returns a new comment identifier.
// Comments are embedded in recipes and use plain UUIDs.
func Comment() string {
	return uuid.NewString()
}
