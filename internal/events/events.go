package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/task"
)

// Job event types
const (
	TypeJobCompleted = "job.completed"
	TypeJobFailed    = "job.failed"
	TypeJobRetrying  = "job.retrying"
)

// JobEvent describes how one job attempt ended.
type JobEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the job event types
	Type string `json:"type"`

	JobID        string `json:"jobId"`
	Queue        string `json:"queue"`
	Name         string `json:"name"`
	AttemptsMade int    `json:"attemptsMade"`

	// Error is the failure message of failed and retrying attempts
	Error string `json:"error,omitempty"`

	DurationMS int64     `json:"durationMs"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewJobEvent creates a JobEvent for a worker pool outcome.
func NewJobEvent(o task.Outcome, now time.Time) *JobEvent {
	e := &JobEvent{
		ID:           uuid.New(),
		Type:         eventType(o.State),
		JobID:        o.JobID,
		Queue:        o.Queue,
		Name:         o.Name,
		AttemptsMade: o.AttemptsMade,
		DurationMS:   o.Duration.Milliseconds(),
		OccurredAt:   now.UTC(),
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	return e
}

func eventType(state task.JobState) string {
	switch state {
	case task.StateCompleted:
		return TypeJobCompleted
	case task.StateFailed:
		return TypeJobFailed
	default:
		return TypeJobRetrying
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *JobEvent) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *JobEvent) error

// HandleEvent implements EventHandler.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *JobEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *JobEvent) error
}
