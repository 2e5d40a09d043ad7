// Package service orchestrates the one-time-passcode challenge lifecycle:
// issue, dispatch, verification under an attempt budget, expiry, and manual
// invalidation.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lead-console/backend/internal/devcode"
	"lead-console/backend/internal/otp"
	"lead-console/backend/internal/otp/domain"
	"lead-console/backend/internal/otp/message"
	"lead-console/backend/internal/otp/store"
	"lead-console/backend/internal/telemetry"
)

// ErrDispatchFailed wraps a message-sender failure from Issue. The challenge
// stays stored; the caller should surface "could not send code" rather than
// retry automatically.
var ErrDispatchFailed = errors.New("otp: dispatch failed")

// Sender delivers a rendered message to an address. Implementations live in
// internal/mail.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Outcome is the verdict of a Verify call. Wrong codes, expiry, and
// exhaustion are ordinary outcomes, not errors.
type Outcome int

const (
	OutcomeVerified Outcome = iota
	OutcomeInvalidCode
	OutcomeExpired
	OutcomeAttemptsExhausted
	OutcomeNoActiveChallenge
)

// String returns the outcome name used in metrics and events.
func (o Outcome) String() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeInvalidCode:
		return "invalid_code"
	case OutcomeExpired:
		return "expired"
	case OutcomeAttemptsExhausted:
		return "attempts_exhausted"
	case OutcomeNoActiveChallenge:
		return "no_active_challenge"
	default:
		return "unknown"
	}
}

// Result is the outcome of a Verify call. RemainingAttempts is meaningful
// only for OutcomeInvalidCode.
type Result struct {
	Outcome           Outcome
	RemainingAttempts int
}

// Service is the challenge lifecycle manager for one purpose namespace.
// The mutex serializes every read-modify-write on the challenge table so two
// concurrent Verify calls for the same subject cannot both be admitted as the
// same attempt.
type Service struct {
	purpose     string
	store       store.Store
	sender      Sender
	dev         devcode.Store
	emitter     telemetry.EventEmitter
	metrics     *telemetry.Metrics
	ttl         time.Duration
	maxAttempts int
	nowF        func() time.Time
	genF        func() (string, error)
	mu          sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides the challenge lifetime (default 10 minutes).
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxAttempts overrides the attempt ceiling (default 3).
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithDevCodeStore makes Issue deposit the plaintext code for dev-only
// retrieval. Only wire this when dev code return is enabled outside production.
func WithDevCodeStore(dev devcode.Store) Option {
	return func(s *Service) { s.dev = dev }
}

// WithEventEmitter wires lifecycle event emission.
func WithEventEmitter(e telemetry.EventEmitter) Option {
	return func(s *Service) { s.emitter = e }
}

// WithMetrics wires the engine counters.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New returns a Service for the given purpose namespace backed by st,
// dispatching through sender.
func New(purpose string, st store.Store, sender Sender, opts ...Option) *Service {
	s := &Service{
		purpose:     purpose,
		store:       st,
		sender:      sender,
		ttl:         domain.DefaultTTL,
		maxAttempts: domain.DefaultMaxAttempts,
		nowF:        func() time.Time { return time.Now().UTC() },
		genF:        otp.GenerateCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) key(subjectID string) string {
	return store.Key(s.purpose, subjectID)
}

// Issue generates a fresh code for the subject, stores the challenge
// (overwriting any prior one for the same subject), and dispatches the
// rendered message to destination. Exactly one message is sent per successful
// call. If dispatch fails the challenge remains stored and the returned error
// wraps ErrDispatchFailed; there is no rollback, so a slow-but-successful
// send never desynchronizes state.
func (s *Service) Issue(ctx context.Context, subjectID, destination, displayName string) error {
	s.mu.Lock()
	if n := s.store.SweepExpired(ctx); n > 0 {
		s.metrics.RecordSwept(ctx, s.purpose, n)
	}
	code, err := s.genF()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("otp: generate code: %w", err)
	}
	now := s.nowF()
	ch := &domain.Challenge{
		ID:           uuid.New().String(),
		SubjectID:    subjectID,
		Destination:  destination,
		CodeHash:     otp.HashCode(code),
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.ttl),
		AttemptCount: 0,
		MaxAttempts:  s.maxAttempts,
	}
	key := s.key(subjectID)
	s.store.Put(ctx, key, ch)
	if s.dev != nil {
		s.dev.Put(ctx, key, code, ch.ExpiresAt)
	}
	s.mu.Unlock()

	// Dispatch happens outside the table lock: it is the only call in the
	// engine that blocks on I/O and must not stall verifies.
	msg := message.Compose(displayName, code, s.ttl, s.maxAttempts)
	if err := s.sender.Send(ctx, destination, msg.Subject, msg.HTMLBody); err != nil {
		s.metrics.RecordDispatchFailure(ctx, s.purpose)
		telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
			EventType:   telemetry.EventDispatchFailed,
			SubjectID:   subjectID,
			ChallengeID: ch.ID,
			Purpose:     s.purpose,
			CreatedAt:   now,
		})
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	s.metrics.RecordIssued(ctx, s.purpose)
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		EventType:   telemetry.EventChallengeIssued,
		SubjectID:   subjectID,
		ChallengeID: ch.ID,
		Purpose:     s.purpose,
		CreatedAt:   now,
	})
	return nil
}

// Verify checks the submitted code for the subject. Precedence: no challenge,
// then expiry, then prior exhaustion; otherwise an attempt is consumed before
// the comparison, so the correct code on the last available attempt still
// verifies and a failed final attempt reports exactly 0 remaining.
func (s *Service) Verify(ctx context.Context, subjectID, code string) Result {
	s.mu.Lock()
	res, challengeID := s.verifyLocked(ctx, subjectID, code)
	s.mu.Unlock()

	s.metrics.RecordVerify(ctx, s.purpose, res.Outcome.String())
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		EventType:   telemetry.EventVerifyAttempt,
		SubjectID:   subjectID,
		ChallengeID: challengeID,
		Purpose:     s.purpose,
		Outcome:     res.Outcome.String(),
		CreatedAt:   s.nowF(),
	})
	return res
}

func (s *Service) verifyLocked(ctx context.Context, subjectID, code string) (Result, string) {
	key := s.key(subjectID)
	ch, ok := s.store.Get(ctx, key)
	if !ok {
		return Result{Outcome: OutcomeNoActiveChallenge}, ""
	}
	switch ch.StatusAt(s.nowF()) {
	case domain.StatusExpired:
		s.store.Delete(ctx, key)
		return Result{Outcome: OutcomeExpired}, ch.ID
	case domain.StatusExhausted:
		s.store.Delete(ctx, key)
		return Result{Outcome: OutcomeAttemptsExhausted}, ch.ID
	}
	// An attempt is consumed whether or not the code matches.
	ch.AttemptCount++
	if otp.CodeEqual(code, ch.CodeHash) {
		s.store.Delete(ctx, key)
		return Result{Outcome: OutcomeVerified}, ch.ID
	}
	if ch.AttemptCount >= ch.MaxAttempts {
		s.store.Delete(ctx, key)
		return Result{Outcome: OutcomeAttemptsExhausted}, ch.ID
	}
	s.store.Put(ctx, key, ch)
	return Result{
		Outcome:           OutcomeInvalidCode,
		RemainingAttempts: ch.MaxAttempts - ch.AttemptCount,
	}, ch.ID
}

// HasActiveChallenge reports whether a pending challenge exists for the
// subject. Stale entries found on read are removed.
func (s *Service) HasActiveChallenge(ctx context.Context, subjectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.activeLocked(ctx, subjectID)
	return ok
}

// RemainingAttempts returns MaxAttempts minus the attempts consumed for an
// active challenge, or 0 when none exists or it has expired.
func (s *Service) RemainingAttempts(ctx context.Context, subjectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.activeLocked(ctx, subjectID)
	if !ok {
		return 0
	}
	return ch.MaxAttempts - ch.AttemptCount
}

// activeLocked returns the pending challenge for the subject, deleting any
// entry found in a terminal state. Caller holds s.mu.
func (s *Service) activeLocked(ctx context.Context, subjectID string) (*domain.Challenge, bool) {
	key := s.key(subjectID)
	ch, ok := s.store.Get(ctx, key)
	if !ok {
		return nil, false
	}
	if ch.StatusAt(s.nowF()) != domain.StatusPending {
		s.store.Delete(ctx, key)
		return nil, false
	}
	return ch, true
}

// Invalidate removes any challenge for the subject, e.g. on logout or
// explicit cancellation. Idempotent.
func (s *Service) Invalidate(ctx context.Context, subjectID string) {
	s.mu.Lock()
	key := s.key(subjectID)
	ch, existed := s.store.Get(ctx, key)
	s.store.Delete(ctx, key)
	s.mu.Unlock()
	if !existed {
		return
	}
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		EventType:   telemetry.EventChallengeInvalidated,
		SubjectID:   subjectID,
		ChallengeID: ch.ID,
		Purpose:     s.purpose,
		CreatedAt:   s.nowF(),
	})
}

// RunSweeper removes expired challenges every interval until ctx is done.
// Optional: expiry is always checked inline at Verify/HasActiveChallenge
// time, so no observable outcome depends on sweep timing.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.store.SweepExpired(ctx); n > 0 {
				s.metrics.RecordSwept(ctx, s.purpose, n)
			}
		}
	}
}
