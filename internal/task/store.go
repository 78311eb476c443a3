package task

import (
	"context"
	"encoding/json"
)

// JobStore persists jobs and arbitrates leases. Implementations must make
// Lease atomic so a ready job is handed to exactly one worker.
type JobStore interface {
	// Enqueue persists a prepared job. It is stored as delayed when its
	// ReadyAt lies in the future, otherwise as waiting.
	Enqueue(ctx context.Context, job *Job) error

	// Lease promotes due delayed jobs, then marks the next ready job active
	// and returns it. Ordering is priority ascending, then insertion order.
	// It returns nil, nil when nothing is ready.
	Lease(ctx context.Context, queue string) (*Job, error)

	// UpdateProgress records a progress percentage, clamped to 0..100.
	UpdateProgress(ctx context.Context, queue, id string, progress int) error

	// Ack completes an active job with its encoded result.
	Ack(ctx context.Context, queue, id string, result json.RawMessage) error

	// Fail records a failed attempt. When retry is true and attempts remain
	// the job is delayed by its backoff, otherwise it fails terminally.
	// The updated snapshot is returned.
	Fail(ctx context.Context, queue, id, reason string, retry bool) (*Job, error)

	// Get returns a snapshot of a job, or ErrJobNotFound.
	Get(ctx context.Context, queue, id string) (*Job, error)
}

// LeaseExtender is implemented by stores whose leases expire. A job whose
// lease runs out is handed to another worker, so the pool renews the lease
// of every job it is running.
type LeaseExtender interface {
	// ExtendLease pushes the lease deadline of an active job forward.
	// It returns ErrJobNotActive when the job is no longer leased.
	ExtendLease(ctx context.Context, queue, id string) error
}
