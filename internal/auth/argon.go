package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Password input errors.
var (
	ErrEmptyPassword   = errors.New("password cannot be empty")
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
)

// Upper bound on input to hashing.
const maxPasswordLength = 1024

var errMalformedHash = errors.New("malformed password hash")

// hashParams are the argon2id cost settings stored alongside each hash.
type hashParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
	saltLen int
}

// currentParams is the OWASP argon2id baseline used for new hashes.
var currentParams = hashParams{
	memory:  64 * 1024,
	time:    3,
	threads: 4,
	keyLen:  32,
	saltLen: 16,
}

func (p hashParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

var b64 = base64.RawStdEncoding

// HashPassword returns the PHC string
// $argon2id$v=19$m=...,t=...,p=...$salt$key for password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > maxPasswordLength {
		return "", ErrPasswordTooLong
	}

	p := currentParams
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := p.derive(password, salt)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches encodedHash. An empty or
// malformed hash never matches; Google-only accounts have no hash.
func VerifyPassword(encodedHash, password string) (bool, error) {
	if encodedHash == "" || len(password) > maxPasswordLength {
		return false, nil
	}
	p, salt, key, err := parseHash(encodedHash)
	if err != nil {
		//nolint:nilerr // a corrupt hash is reported as a mismatch
		return false, nil
	}
	return subtle.ConstantTimeCompare(key, p.derive(password, salt)) == 1, nil
}

func parseHash(encoded string) (p hashParams, salt, key []byte, err error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return p, nil, nil, errMalformedHash
	}
	if fields[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, nil, nil, fmt.Errorf("%w: version %q", errMalformedHash, fields[2])
	}

	seen := 0
	for kv := range strings.SplitSeq(fields[3], ",") {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			return p, nil, nil, errMalformedHash
		}
		n, perr := strconv.ParseUint(val, 10, 32)
		if perr != nil || n == 0 {
			return p, nil, nil, errMalformedHash
		}
		switch name {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.time = uint32(n)
		case "p":
			if n > 255 {
				return p, nil, nil, errMalformedHash
			}
			p.threads = uint8(n)
		default:
			return p, nil, nil, errMalformedHash
		}
		seen++
	}
	if seen != 3 || p.memory == 0 || p.time == 0 || p.threads == 0 {
		return p, nil, nil, errMalformedHash
	}

	if salt, err = b64.DecodeString(fields[4]); err != nil {
		return p, nil, nil, errMalformedHash
	}
	if key, err = b64.DecodeString(fields[5]); err != nil || len(key) == 0 {
		return p, nil, nil, errMalformedHash
	}
	p.keyLen = uint32(len(key)) //nolint:gosec // bounded by the encoded string
	p.saltLen = len(salt)
	return p, salt, key, nil
}
