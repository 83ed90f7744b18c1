package services_test

import (
	"context"
	"testing"

	"cageclock/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithMessageType(ctx, "START_BREAK")
	ctx = services.WithRequestID(ctx, "req-123")

	if mt, ok := services.MessageTypeFromContext(ctx); !ok || mt != "START_BREAK" {
		t.Fatalf("unexpected message type: %v %v", mt, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithMessageType(ctx, "")
	ctx = services.WithRequestID(ctx, "")
	if _, ok := services.MessageTypeFromContext(ctx); ok {
		t.Fatal("expected no message type value")
	}
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("expected no request id value")
	}
}
