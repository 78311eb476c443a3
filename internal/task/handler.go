package task

import (
	"context"
	"log/slog"
)

// ProgressReporter lets a handler publish progress on the job it is running.
type ProgressReporter interface {
	Update(ctx context.Context, percent int) error
}

// Handler executes one job. The returned value is JSON-encoded as the job
// result. Errors wrapped with Unrecoverable are not retried.
type Handler interface {
	Handle(ctx context.Context, job *Job, progress ProgressReporter) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *Job, progress ProgressReporter) (any, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, job *Job, progress ProgressReporter) (any, error) {
	return f(ctx, job, progress)
}

// storeProgress writes progress through to the job store.
type storeProgress struct {
	store JobStore
	queue string
	id    string
}

func (p *storeProgress) Update(ctx context.Context, percent int) error {
	return p.store.UpdateProgress(ctx, p.queue, p.id, percent)
}

// reportProgress publishes progress and logs, rather than propagates, failures.
func reportProgress(ctx context.Context, progress ProgressReporter, percent int, log *slog.Logger) {
	if progress == nil {
		return
	}
	if err := progress.Update(ctx, percent); err != nil {
		log.WarnContext(ctx, "failed to update job progress",
			"progress", percent,
			"error", err)
	}
}
