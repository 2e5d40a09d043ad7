package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"lead-console/backend/internal/otp/domain"
)

func testChallenge(subjectID string, expiresAt time.Time) *domain.Challenge {
	return &domain.Challenge{
		ID:          "ch-" + subjectID,
		SubjectID:   subjectID,
		Destination: subjectID + "@example.com",
		CodeHash:    "hash",
		IssuedAt:    expiresAt.Add(-domain.DefaultTTL),
		ExpiresAt:   expiresAt,
		MaxAttempts: domain.DefaultMaxAttempts,
	}
}

func TestKey(t *testing.T) {
	if got := Key(domain.PurposeLogin2FA, "u1"); got != "login-2fa:u1" {
		t.Errorf("Key = %q, want %q", got, "login-2fa:u1")
	}
	if Key(domain.PurposeLogin2FA, "u1") == Key(domain.PurposePasswordReset, "u1") {
		t.Error("purposes must not collide in the keyspace")
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	c := testChallenge("u1", time.Now().UTC().Add(5*time.Minute))

	s.Put(ctx, "k1", c)

	got, ok := s.Get(ctx, "k1")
	if !ok {
		t.Fatal("Get should find the stored challenge")
	}
	if got.ID != c.ID || got.SubjectID != c.SubjectID {
		t.Errorf("Get = %+v, want %+v", got, c)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Put(ctx, "k1", testChallenge("u1", time.Now().UTC().Add(5*time.Minute)))

	first, _ := s.Get(ctx, "k1")
	first.AttemptCount = 99

	second, _ := s.Get(ctx, "k1")
	if second.AttemptCount != 0 {
		t.Errorf("AttemptCount = %d, want 0; mutating a Get result must not change the table", second.AttemptCount)
	}
}

func TestMemoryStore_PutOverwrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	old := testChallenge("u1", time.Now().UTC().Add(5*time.Minute))
	s.Put(ctx, "k1", old)

	replacement := testChallenge("u1", time.Now().UTC().Add(10*time.Minute))
	replacement.ID = "ch-new"
	s.Put(ctx, "k1", replacement)

	got, ok := s.Get(ctx, "k1")
	if !ok {
		t.Fatal("Get should find the replacement")
	}
	if got.ID != "ch-new" {
		t.Errorf("ID = %q, want %q (overwrite semantics)", got.ID, "ch-new")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Put(ctx, "k1", testChallenge("u1", time.Now().UTC().Add(5*time.Minute)))

	s.Delete(ctx, "k1")
	if _, ok := s.Get(ctx, "k1"); ok {
		t.Error("Get should not find a deleted challenge")
	}
	// Idempotent.
	s.Delete(ctx, "k1")
	s.Delete(ctx, "never-existed")
}

func TestMemoryStore_SweepExpired(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	s.nowF = func() time.Time { return now }

	s.Put(ctx, "live-1", testChallenge("u1", now.Add(5*time.Minute)))
	s.Put(ctx, "live-2", testChallenge("u2", now)) // exactly at expiry: not yet expired
	s.Put(ctx, "dead-1", testChallenge("u3", now.Add(-time.Second)))
	s.Put(ctx, "dead-2", testChallenge("u4", now.Add(-time.Hour)))

	if removed := s.SweepExpired(ctx); removed != 2 {
		t.Errorf("SweepExpired = %d, want 2", removed)
	}
	if _, ok := s.Get(ctx, "live-1"); !ok {
		t.Error("sweep removed a live challenge")
	}
	if _, ok := s.Get(ctx, "live-2"); !ok {
		t.Error("sweep removed a challenge exactly at its expiry instant")
	}
	if _, ok := s.Get(ctx, "dead-1"); ok {
		t.Error("sweep left an expired challenge")
	}
	if removed := s.SweepExpired(ctx); removed != 0 {
		t.Errorf("second SweepExpired = %d, want 0", removed)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k-%d", n)
			for j := 0; j < 100; j++ {
				s.Put(ctx, key, testChallenge(key, time.Now().UTC().Add(time.Minute)))
				s.Get(ctx, key)
				s.SweepExpired(ctx)
				s.Delete(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}
