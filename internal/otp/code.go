// Package otp provides generation and matching of numeric one-time passcodes.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strconv"
)

// CodeDigits is the fixed width of generated codes.
const CodeDigits = 6

const (
	codeMin  = 100000
	codeSpan = 900000
)

// GenerateCode returns a 6-digit numeric code in [100000, 999999].
// The floor avoids leading zeros by construction. Uses crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// HashCode returns the SHA-256 hash of the code, hex-encoded.
func HashCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// CodeEqual performs constant-time comparison of the submitted code's hash with the stored hash.
func CodeEqual(submitted, storedHash string) bool {
	submittedHash := HashCode(submitted)
	return subtle.ConstantTimeCompare([]byte(submittedHash), []byte(storedHash)) == 1
}
