// Package store holds pending OTP challenges in process memory.
// A process restart invalidates all pending challenges; callers are expected
// to prompt for a fresh code rather than recover state.
package store

import (
	"context"
	"sync"
	"time"

	"lead-console/backend/internal/otp/domain"
)

// Key derives the store key for a subject within a purpose namespace.
func Key(purpose, subjectID string) string {
	return purpose + ":" + subjectID
}

// Store is the challenge table shared by in-flight requests.
// Implementations must be safe for concurrent use; read-modify-write
// sequences spanning Get and Put are the caller's to serialize.
type Store interface {
	// Put stores the challenge under key, overwriting any existing entry.
	Put(ctx context.Context, key string, c *domain.Challenge)
	// Get returns a copy of the challenge for key, or ok false if absent.
	Get(ctx context.Context, key string) (*domain.Challenge, bool)
	// Delete removes the entry for key. Idempotent.
	Delete(ctx context.Context, key string)
	// SweepExpired removes every entry whose expiry is in the past and
	// returns the number removed.
	SweepExpired(ctx context.Context) int
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]domain.Challenge
	nowF func() time.Time
}

// NewMemoryStore returns an empty in-memory challenge store.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(func() time.Time { return time.Now().UTC() })
}

// NewMemoryStoreWithClock returns a store that uses nowF for sweep expiry
// decisions; for tests.
func NewMemoryStoreWithClock(nowF func() time.Time) *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]domain.Challenge),
		nowF: nowF,
	}
}

// Put stores a copy of the challenge under key, overwriting any existing entry.
func (s *MemoryStore) Put(ctx context.Context, key string, c *domain.Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = *c
}

// Get returns a copy of the challenge for key so callers never share mutable
// state with the table; updates go back through Put.
func (s *MemoryStore) Get(ctx context.Context, key string) (*domain.Challenge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.m[key]
	if !ok {
		return nil, false
	}
	return &c, true
}

// Delete removes the entry for key.
func (s *MemoryStore) Delete(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// SweepExpired removes all entries past their expiry and returns the count removed.
func (s *MemoryStore) SweepExpired(ctx context.Context) int {
	now := s.nowF()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, c := range s.m {
		if now.After(c.ExpiresAt) {
			delete(s.m, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored challenges, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
