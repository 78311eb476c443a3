package task

import (
	"context"
	"encoding/json"
	"fmt"
)

// JobStatus is the polling view of a job.
type JobStatus struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Data         json.RawMessage `json:"data"`
	State        JobState        `json:"state"`
	Progress     int             `json:"progress"`
	ReturnValue  json.RawMessage `json:"returnvalue"`
	FailedReason string          `json:"failedReason,omitempty"`
	AttemptsMade int             `json:"attemptsMade"`
}

// StatusReporter reads job snapshots for polling clients.
type StatusReporter struct {
	store JobStore
}

// NewStatusReporter creates a StatusReporter over store.
func NewStatusReporter(store JobStore) *StatusReporter {
	return &StatusReporter{store: store}
}

// GetStatus returns the latest snapshot of a job. The return value is only
// populated once the job has completed.
func (r *StatusReporter) GetStatus(ctx context.Context, family Family, id string) (*JobStatus, error) {
	job, err := r.store.Get(ctx, string(family), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}

	status := &JobStatus{
		ID:           job.ID,
		Name:         job.Name,
		Data:         job.Payload,
		State:        job.State,
		Progress:     job.Progress,
		FailedReason: job.FailureReason,
		AttemptsMade: job.AttemptsMade,
	}
	if job.State == StateCompleted {
		status.ReturnValue = job.Result
	}
	return status, nil
}
