package devcode

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(5 * time.Minute)

	store.Put(ctx, "login-2fa:u1", "123456", expiresAt)

	code, ok := store.Get(ctx, "login-2fa:u1")
	if !ok {
		t.Fatal("Get should return the code after Put")
	}
	if code != "123456" {
		t.Errorf("code = %q, want %q", code, "123456")
	}
}

func TestMemoryStore_Get_Missing(t *testing.T) {
	store := NewMemoryStore()
	code, ok := store.Get(context.Background(), "nonexistent")
	if ok {
		t.Error("Get should return false when the key is missing")
	}
	if code != "" {
		t.Errorf("code = %q, want empty string", code)
	}
}

func TestMemoryStore_Get_Expired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Put(ctx, "login-2fa:u1", "123456", time.Now().UTC().Add(-time.Minute))

	if _, ok := store.Get(ctx, "login-2fa:u1"); ok {
		t.Error("Get should return false for an expired entry")
	}
	// The expired entry is removed by the read.
	store.mu.RLock()
	_, present := store.m["login-2fa:u1"]
	store.mu.RUnlock()
	if present {
		t.Error("expired entry should be removed on read")
	}
}

func TestMemoryStore_Put_Overwrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(5 * time.Minute)

	store.Put(ctx, "login-2fa:u1", "111111", expiresAt)
	store.Put(ctx, "login-2fa:u1", "222222", expiresAt)

	code, ok := store.Get(ctx, "login-2fa:u1")
	if !ok {
		t.Fatal("Get should return the replacement code")
	}
	if code != "222222" {
		t.Errorf("code = %q, want %q", code, "222222")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Put(ctx, "k", "123456", expiresAt)
				store.Get(ctx, "k")
			}
		}()
	}
	wg.Wait()
}
