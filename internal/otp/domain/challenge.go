// Package domain defines the OTP challenge entity and its derived state.
package domain

import "time"

// Challenge purposes; used as key namespaces so login 2FA and password-reset
// challenges for the same subject never collide in a shared store.
const (
	PurposeLogin2FA      = "login-2fa"
	PurposePasswordReset = "password-reset"
)

// Defaults for challenge lifetime and the attempt ceiling.
const (
	DefaultTTL         = 10 * time.Minute
	DefaultMaxAttempts = 3
)

// Status is the derived state of a stored challenge at a point in time.
// There is no stored state field; status is always computed from the
// timestamps and the attempt counter so every call site applies the same
// precedence (expiry before exhaustion).
type Status int

const (
	// StatusPending means the challenge can still be verified.
	StatusPending Status = iota
	// StatusExpired means now is past ExpiresAt. Terminal; the entry must be removed on next touch.
	StatusExpired
	// StatusExhausted means the attempt ceiling has been reached. Terminal.
	StatusExhausted
)

// Challenge is one issued OTP instance and its expiry/attempt state.
// CodeHash holds the SHA-256 digest of the code; the plaintext exists only in
// the delivered message (and the dev code store when dev mode is enabled).
type Challenge struct {
	ID           string
	SubjectID    string
	Destination  string
	CodeHash     string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	AttemptCount int
	MaxAttempts  int
}

// StatusAt returns the challenge status at the given instant.
// A challenge expires strictly after ExpiresAt; expiry takes precedence over
// attempt exhaustion.
func (c *Challenge) StatusAt(now time.Time) Status {
	if now.After(c.ExpiresAt) {
		return StatusExpired
	}
	if c.AttemptCount >= c.MaxAttempts {
		return StatusExhausted
	}
	return StatusPending
}
