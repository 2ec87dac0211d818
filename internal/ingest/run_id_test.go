package ingest

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewRunID(t *testing.T) {
	a, err := NewRunID()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	b, err := NewRunID()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if !strings.HasPrefix(a, "run_") || a == b {
		t.Fatalf("unexpected run ids %q %q", a, b)
	}

	u, err := uuid.Parse(strings.TrimPrefix(a, "run_"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Version() != 7 {
		t.Fatalf("expected v7, got %d", u.Version())
	}
}
