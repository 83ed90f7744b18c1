package testsupport

import (
	"context"
	"testing"

	"cageclock/internal/config"
	"cageclock/internal/kvstore"
)

// MustOpenStore opens a kvstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *kvstore.Store {
	t.Helper()

	store, err := kvstore.Open(cfg)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustSet writes a single key for test setup.
func MustSet(t testing.TB, store *kvstore.Store, key string, value any) {
	t.Helper()

	if err := store.Set(context.Background(), key, value); err != nil {
		t.Fatalf("store.Set(%s): %v", key, err)
	}
}
