package worker

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithRunID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	if got := RunID(ctx); got != "" {
		t.Fatalf("expected empty run id, got %q", got)
	}
	if WithRunID(ctx, "") != ctx {
		t.Fatalf("expected empty run id to leave ctx untouched")
	}

	ctx = WithRunID(ctx, "run_123")
	if got := RunID(ctx); got != "run_123" {
		t.Fatalf("expected run_123, got %q", got)
	}
}

func TestLogger_AttachesRunID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	Logger(WithRunID(context.Background(), "run_abc"), base).Info("pass")
	Logger(context.Background(), base).Info("bare")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["run_id"]; got != "run_abc" {
		t.Fatalf("expected run_id field, got %v", got)
	}
	if _, ok := entries[1].ContextMap()["run_id"]; ok {
		t.Fatalf("expected no run_id without a run")
	}

	Logger(context.Background(), nil).Info("nop")
}
