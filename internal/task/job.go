package task

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobState is the lifecycle state of a job.
type JobState string

// Possible job states
const (
	StateWaiting   JobState = "waiting"
	StateDelayed   JobState = "delayed"
	StateActive    JobState = "active"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Job priorities. Lower values are leased first.
const (
	PriorityHigh   = 1
	PriorityNormal = 2
	PriorityLow    = 3
)

// Job is a persisted unit of asynchronous work. Only the worker holding
// the lease on an active job mutates it.
type Job struct {
	ID            string          `json:"id"`
	Queue         string          `json:"queue"`
	Name          string          `json:"name"`
	Payload       json.RawMessage `json:"payload"`
	Priority      int             `json:"priority"`
	AttemptsMade  int             `json:"attemptsMade"`
	MaxAttempts   int             `json:"maxAttempts"`
	Backoff       BackoffPolicy   `json:"backoff"`
	State         JobState        `json:"state"`
	Progress      int             `json:"progress"`
	Result        json.RawMessage `json:"result,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	ReadyAt       time.Time       `json:"readyAt"`
	FinishedAt    *time.Time      `json:"finishedAt,omitempty"`

	// Retention applied by the store when the job reaches a terminal state.
	RemoveOnComplete RetentionPolicy `json:"removeOnComplete"`
	RemoveOnFail     RetentionPolicy `json:"removeOnFail"`
}

// RetentionPolicy bounds how many terminal jobs are kept and for how long.
// Zero values mean unbounded.
type RetentionPolicy struct {
	Count  int           `json:"count,omitempty"`
	MaxAge time.Duration `json:"maxAge,omitempty"`
}

// DecodePayload unmarshals the job payload into v. Decoding failures are
// unrecoverable since retrying cannot change the stored bytes.
func (j *Job) DecodePayload(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return Unrecoverable(fmt.Errorf("%w: %v", ErrInvalidPayload, err))
	}
	return nil
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Payload = cloneRaw(j.Payload)
	c.Result = cloneRaw(j.Result)
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

// ClampProgress keeps a progress value within 0..100.
func ClampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
