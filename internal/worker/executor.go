package worker

import "context"

// RunExecutor performs one sync pass. The run id is on ctx.
type RunExecutor interface {
	Execute(ctx context.Context) error
}
