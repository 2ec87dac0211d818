package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ETAnderson/offersync/internal/ingest"
)

// Runner drives sync passes. With Every unset it runs a single pass;
// otherwise it runs one pass immediately and one per tick, never overlapping.
type Runner struct {
	Executor RunExecutor
	Every    time.Duration
	Logger   *zap.Logger

	// NewRunID defaults to ingest.NewRunID.
	NewRunID func() (string, error)
}

func (r Runner) Run(ctx context.Context) error {
	if r.Executor == nil {
		return errors.New("executor is nil")
	}
	if r.NewRunID == nil {
		r.NewRunID = ingest.NewRunID
	}
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}

	if r.Every <= 0 {
		return r.pass(ctx)
	}

	ticker := time.NewTicker(r.Every)
	defer ticker.Stop()

	// one immediate pass
	r.scheduledPass(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.scheduledPass(ctx)
		}
	}
}

func (r Runner) pass(ctx context.Context) error {
	runID, err := r.NewRunID()
	if err != nil {
		return fmt.Errorf("new run id: %w", err)
	}
	return r.Executor.Execute(WithRunID(ctx, runID))
}

// scheduledPass logs a failed pass and leaves the schedule running.
func (r Runner) scheduledPass(ctx context.Context) {
	if err := r.pass(ctx); err != nil && ctx.Err() == nil {
		r.Logger.Error("sync pass failed", zap.Error(err))
	}
}
