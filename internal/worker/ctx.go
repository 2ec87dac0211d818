package worker

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const runIDKey ctxKey = "worker_run_id"

// WithRunID stores the run ID on the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID reads the run ID from context.
func RunID(ctx context.Context) string {
	v := ctx.Value(runIDKey)
	s, _ := v.(string)
	return s
}

// Logger scopes l to the run on ctx. A nil l yields a no-op logger.
func Logger(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if id := RunID(ctx); id != "" {
		return l.With(zap.String("run_id", id))
	}
	return l
}
