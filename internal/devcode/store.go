// Package devcode provides an in-memory store of plaintext passcodes keyed by
// challenge key, used only when dev code return is enabled (OTP_RETURN_TO_CLIENT).
// Lets local development read the code without a mailbox. Not used in production;
// config refuses to enable it when APP_ENV=production.
package devcode

import (
	"context"
	"sync"
	"time"
)

// Store holds plaintext codes for dev-only retrieval.
type Store interface {
	// Put stores code for key until expiresAt.
	Put(ctx context.Context, key, code string, expiresAt time.Time)
	// Get returns the code for key if present and not expired.
	Get(ctx context.Context, key string) (code string, ok bool)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev code store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put stores code for key until expiresAt, overwriting any existing entry.
func (s *MemoryStore) Put(ctx context.Context, key, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for key if present and not expired. Expired entries
// are removed on read.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, key)
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}
