package dryrun

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ETAnderson/offersync/internal/channels"
)

func TestCreate_FabricatesIncreasingIDs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ch := New(zap.New(core))

	a, _ := ch.Create(context.Background(), "a", channels.EmptyMarkup(), false)
	b, _ := ch.Create(context.Background(), "b", channels.SingleButton("x", "https://x"), true)

	if !a.OK || !b.OK || b.MessageID != a.MessageID+1 {
		t.Fatalf("unexpected responses: %+v %+v", a, b)
	}
	if logs.Len() != 2 {
		t.Fatalf("expected 2 log entries, got %d", logs.Len())
	}
	if got := logs.All()[1].ContextMap()["buttons"]; got != int64(1) {
		t.Fatalf("expected buttons=1, got %v", got)
	}
}
