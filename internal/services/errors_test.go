package services_test

import (
	"errors"
	"strings"
	"testing"

	"cageclock/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.KindNetwork, "youtube search", services.MessageNetwork, base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected network marker to be retained, got %v", err)
	}
	if errors.Is(err, services.ErrQuota) {
		t.Fatalf("network error must not match quota marker")
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"youtube search", "Network error", "connection refused"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapKeepsExistingClassification(t *testing.T) {
	quota := services.New(services.KindQuota, 403, "quota exceeded")
	err := services.Wrap(services.KindUpstream, "fetch", "search failed", quota)
	e, ok := services.As(err)
	if !ok {
		t.Fatal("expected structured error")
	}
	if e.Kind != services.KindQuota || e.Code != 403 {
		t.Fatalf("classification changed: %+v", e)
	}
}

func TestFlagsAreIndependent(t *testing.T) {
	tests := []struct {
		kind                 services.ErrorKind
		quota, auth, network bool
	}{
		{services.KindQuota, true, false, false},
		{services.KindAuth, false, true, false},
		{services.KindNetwork, false, false, true},
		{services.KindUpstream, false, false, false},
		{services.KindValidation, false, false, false},
		{services.KindStorage, false, false, false},
	}
	for _, tt := range tests {
		e := services.New(tt.kind, 0, "x")
		if e.IsQuotaError() != tt.quota || e.IsAuthError() != tt.auth || e.IsNetworkError() != tt.network {
			t.Fatalf("%s: flags quota=%v auth=%v network=%v", tt.kind, e.IsQuotaError(), e.IsAuthError(), e.IsNetworkError())
		}
		if e.ErrorKind() != string(tt.kind) {
			t.Fatalf("ErrorKind() = %q, want %q", e.ErrorKind(), tt.kind)
		}
	}
}

func TestStorageNilPassThrough(t *testing.T) {
	if err := services.Storage("kv set", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	err := services.Storage("kv set", errors.New("disk full"))
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage marker, got %v", err)
	}
}

func TestUserMessageByKind(t *testing.T) {
	if msg := services.UserMessage(services.New(services.KindQuota, 403, "quota")); !strings.Contains(msg, "switch to another API key") {
		t.Fatalf("quota advice missing: %q", msg)
	}
	if msg := services.UserMessage(services.New(services.KindNetwork, 0, "")); msg != services.MessageNetwork {
		t.Fatalf("network advice = %q", msg)
	}
	if msg := services.UserMessage(services.Validation("Topic cannot be empty")); msg != "Topic cannot be empty" {
		t.Fatalf("validation advice = %q", msg)
	}
	if msg := services.UserMessage(errors.New("boom")); !strings.Contains(msg, "Something went wrong") {
		t.Fatalf("generic advice = %q", msg)
	}
	if services.KindOf(errors.New("boom")) != services.KindUpstream {
		t.Fatal("unstructured errors should classify as upstream")
	}
}
