// Package telemetry defines the OTP engine's operational events and the
// emitter boundary. Events record that a code was issued or checked, never
// the code value itself.
package telemetry

import "time"

// Event types emitted by the challenge lifecycle.
const (
	EventChallengeIssued      = "otp.challenge_issued"
	EventDispatchFailed       = "otp.dispatch_failed"
	EventVerifyAttempt        = "otp.verify_attempt"
	EventChallengeInvalidated = "otp.challenge_invalidated"
)

// Event is one operational event from the challenge lifecycle.
type Event struct {
	// EventType is one of the Event* constants.
	EventType string
	// SubjectID is the user or reset-request identity the challenge is bound to.
	SubjectID string
	// ChallengeID is the uuid of the challenge instance, when known.
	ChallengeID string
	// Purpose is the challenge namespace (login-2fa, password-reset).
	Purpose string
	// Outcome is the verify verdict for EventVerifyAttempt; empty otherwise.
	Outcome string
	// CreatedAt is when the event occurred.
	CreatedAt time.Time
}
