package ctxutil

import (
	"context"
	"testing"
)

func TestWithUserID_And_UserIDFromCtx(t *testing.T) {
	t.Parallel()

	ctx := WithUserID(context.Background(), "user-1")

	got, ok := UserIDFromCtx(ctx)
	if !ok {
		t.Fatal("expected ok=true for a non-empty identity")
	}
	if got != "user-1" {
		t.Fatalf("expected user-1, got %q", got)
	}
}

func TestUserIDFromCtx_EmptyContext(t *testing.T) {
	t.Parallel()

	got, ok := UserIDFromCtx(context.Background())
	if ok {
		t.Fatal("expected ok=false for empty context")
	}
	if got != "" {
		t.Fatalf("expected empty identity, got %q", got)
	}
}

func TestUserIDFromCtx_EmptyIdentity(t *testing.T) {
	t.Parallel()

	ctx := WithUserID(context.Background(), "")

	if _, ok := UserIDFromCtx(ctx); ok {
		t.Fatal("expected ok=false for empty identity")
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	if got := RequestIDFromCtx(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}

	ctx := WithRequestID(context.Background(), "req-42")
	if got := RequestIDFromCtx(ctx); got != "req-42" {
		t.Fatalf("expected req-42, got %q", got)
	}
}
