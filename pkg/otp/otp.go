// Package otp implements generation and verification of short-lived
// numeric one-time codes used for email verification and password resets.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

const (
	// CodeLength is the number of digits in a generated code.
	CodeLength = 6
	// TTL is how long a code stays valid after issuance.
	TTL = 10 * time.Minute
)

var codeSpace = big.NewInt(1_000_000)

// Stored is the persisted form of an issued code. Only the hash is kept;
// the plaintext code travels to the user over email and is never stored.
type Stored struct {
	CodeHash  string
	ExpiresAt time.Time
}

// Generate mints a fresh code and its storable counterpart. The plaintext
// code is returned once for delivery.
func Generate(now time.Time) (string, Stored, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", Stored{}, fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())
	return code, Stored{
		CodeHash:  HashCode(code),
		ExpiresAt: now.Add(TTL),
	}, nil
}

// HashCode returns the hex-encoded SHA-256 digest of a code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the candidate code matches the stored one and has
// not expired. A nil stored value means no code is pending. A code whose
// expiry equals the current instant is already expired.
func Verify(stored *Stored, code string, now time.Time) bool {
	if stored == nil || code == "" {
		return false
	}
	if !now.Before(stored.ExpiresAt) {
		return false
	}
	candidate := HashCode(code)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(stored.CodeHash)) == 1
}
