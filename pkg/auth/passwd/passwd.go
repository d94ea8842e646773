// Package passwd turns submitted passwords into comparable hashes using
// PBKDF2 with HMAC-SHA-512. Salts and hashes travel as base64 text so
// they can live in the space-separated credential and pending-request
// files without escaping.
package passwd

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2 round count. Deliberately slow.
	Iterations = 10000

	// KeyLength is the derived key size in bytes.
	KeyLength = 64

	// SaltLength is the raw salt size in bytes before encoding.
	SaltLength = 16
)

// Derive computes the password hash for the given base64-encoded salt.
// The result is deterministic for a (password, salt) pair. A non-nil
// error means the derivation itself failed (malformed salt); it never
// signals a password mismatch.
func Derive(password, salt string) (string, error) {
	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("decoding salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), rawSalt, Iterations, KeyLength, sha512.New)
	return base64.StdEncoding.EncodeToString(key), nil
}

// NewSalt generates a fresh random salt, base64 encoded. The randomness
// source is crypto/rand, independent of any request input.
func NewSalt() (string, error) {
	b := make([]byte, SaltLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
