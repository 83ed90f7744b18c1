package keystore_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cageclock/internal/keystore"
	"cageclock/internal/kvstore"
	"cageclock/internal/services"
	"cageclock/internal/testsupport"
)

func newStore(t *testing.T, opts ...keystore.Option) (*keystore.Store, *kvstore.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	kv := testsupport.MustOpenStore(t, cfg)
	return keystore.New(kv, opts...), kv
}

func secret(tag string) string {
	return "AIza" + tag + strings.Repeat("x", 35-len(tag))
}

func TestAddDefaultsNameAndBecomesActive(t *testing.T) {
	ks, _ := newStore(t)
	ctx := context.Background()

	first, err := ks.Add(ctx, "  "+secret("a")+"  ", "")
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if first.Name != "API Key 1" || !first.IsValid || first.Key != secret("a") {
		t.Fatalf("unexpected key: %+v", first)
	}
	second, err := ks.Add(ctx, secret("b"), "work")
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected unique ids")
	}

	keys, active, err := ks.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(keys) != 2 || keys[0].ID != first.ID || keys[1].Name != "work" {
		t.Fatalf("unexpected list order: %+v", keys)
	}
	if active != second.ID {
		t.Fatalf("expected newest key active, got %q", active)
	}
}

func TestRapidAddsProduceUniqueIDs(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ks, _ := newStore(t, keystore.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		k, err := ks.Add(ctx, secret("r"), "")
		if err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
		if seen[k.ID] {
			t.Fatalf("duplicate id %s", k.ID)
		}
		seen[k.ID] = true
	}
}

func TestDeleteActivePromotesFirstValid(t *testing.T) {
	ks, _ := newStore(t)
	ctx := context.Background()

	a, _ := ks.Add(ctx, secret("a"), "a")
	b, _ := ks.Add(ctx, secret("b"), "b")
	c, _ := ks.Add(ctx, secret("c"), "c")
	if err := ks.MarkValidity(ctx, a.ID, false); err != nil {
		t.Fatalf("MarkValidity returned error: %v", err)
	}

	if err := ks.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	_, active, _ := ks.List(ctx)
	if active != b.ID {
		t.Fatalf("expected %s promoted, got %q", b.ID, active)
	}

	if err := ks.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	_, active, _ = ks.List(ctx)
	if active != "" {
		t.Fatalf("expected cleared pointer, got %q", active)
	}
	if _, ok, err := ks.ActiveSecret(ctx); err != nil || ok {
		t.Fatalf("expected no usable secret, ok=%v err=%v", ok, err)
	}
}

func TestActiveSecretRules(t *testing.T) {
	ks, _ := newStore(t)
	ctx := context.Background()

	a, _ := ks.Add(ctx, secret("a"), "a")
	b, _ := ks.Add(ctx, secret("b"), "b")

	if got, ok, _ := ks.ActiveSecret(ctx); !ok || got != b.Key {
		t.Fatalf("expected explicit active key, got %q ok=%v", got, ok)
	}

	if err := ks.SetActive(ctx, a.ID); err != nil {
		t.Fatalf("SetActive returned error: %v", err)
	}
	if err := ks.MarkValidity(ctx, a.ID, false); err != nil {
		t.Fatalf("MarkValidity returned error: %v", err)
	}
	if _, ok, _ := ks.ActiveSecret(ctx); ok {
		t.Fatal("invalid active key must not resolve")
	}

	if err := ks.SetActive(ctx, "missing"); err != nil {
		t.Fatalf("SetActive unknown id returned error: %v", err)
	}
	if _, active, _ := ks.List(ctx); active != a.ID {
		t.Fatalf("unknown id changed pointer to %q", active)
	}
}

func TestLegacyAndFallbackOnlyWhenCollectionEmpty(t *testing.T) {
	ks, _ := newStore(t, keystore.WithFallback("config-key"))
	ctx := context.Background()

	if got, ok, _ := ks.ActiveSecret(ctx); !ok || got != "config-key" {
		t.Fatalf("expected config fallback, got %q ok=%v", got, ok)
	}
	if err := ks.SetLegacy(ctx, "legacy-key"); err != nil {
		t.Fatalf("SetLegacy returned error: %v", err)
	}
	if got, _, _ := ks.ActiveSecret(ctx); got != "legacy-key" {
		t.Fatalf("expected legacy key, got %q", got)
	}

	k, _ := ks.Add(ctx, secret("a"), "")
	if got, _, _ := ks.ActiveSecret(ctx); got != k.Key {
		t.Fatalf("expected collection key, got %q", got)
	}
	if has, err := ks.HasKey(ctx); err != nil || !has {
		t.Fatalf("HasKey = %v, %v", has, err)
	}
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	ks, kv := newStore(t)
	ctx := context.Background()

	sub := kv.Subscribe(kvstore.KeyAPIKeys)
	defer sub.Close()

	if err := ks.Delete(ctx, "nope"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := ks.MarkValidity(ctx, "nope", true); err != nil {
		t.Fatalf("MarkValidity returned error: %v", err)
	}
	select {
	case change := <-sub.C():
		t.Fatalf("unexpected write: %+v", change)
	default:
	}
}

func TestAddRejectsEmptySecret(t *testing.T) {
	ks, _ := newStore(t)
	_, err := ks.Add(context.Background(), "   ", "x")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMarkValidityBumpsLastVerified(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ks, _ := newStore(t, keystore.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	k, _ := ks.Add(ctx, secret("a"), "")
	now = now.Add(time.Hour)
	if err := ks.MarkValidity(ctx, k.ID, false); err != nil {
		t.Fatalf("MarkValidity returned error: %v", err)
	}
	got, ok, err := ks.Get(ctx, k.ID)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.IsValid || !got.LastVerified.Equal(now) {
		t.Fatalf("unexpected key after MarkValidity: %+v", got)
	}
}
