package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Runner supervises the long-lived tasks of a process. The first task to fail
// cancels the context handed to the others.
type Runner struct {
	g   *errgroup.Group
	ctx context.Context
}

func New(ctx context.Context) *Runner {
	g, gctx := errgroup.WithContext(ctx)

	return &Runner{
		g:   g,
		ctx: gctx,
	}
}

// Context is cancelled when the parent is done or any task fails.
func (r *Runner) Context() context.Context {
	return r.ctx
}

// Go starts a named task. A task returning context.Canceled after the group
// context is done has stopped cleanly and is not reported as a failure.
func (r *Runner) Go(name string, task func(ctx context.Context) error) {
	r.g.Go(func() error {
		slog.DebugContext(r.ctx, "task started", "task", name)

		err := task(r.ctx)
		if err != nil && r.ctx.Err() != nil && errors.Is(err, context.Canceled) {
			err = nil
		}

		if err != nil {
			slog.ErrorContext(r.ctx, "task failed", "task", name, "error", err)
			return fmt.Errorf("%s: %w", name, err)
		}

		slog.DebugContext(r.ctx, "task stopped", "task", name)
		return nil
	})
}

func (r *Runner) Wait() error {
	return r.g.Wait()
}
