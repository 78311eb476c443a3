package task

import "time"

// BackoffType selects how retry delays grow.
type BackoffType string

// Supported backoff types
const (
	BackoffExponential BackoffType = "exponential"
	BackoffFixed       BackoffType = "fixed"
)

// MaxBackoff caps exponential retry delays.
const MaxBackoff = time.Hour

// BackoffPolicy describes the delay before a failed job is retried.
type BackoffPolicy struct {
	Type  BackoffType   `json:"type"`
	Delay time.Duration `json:"delay"`
}

// Next returns the delay before the next attempt, given the number of
// attempts already made (including the one that just failed).
func (b BackoffPolicy) Next(attemptsMade int) time.Duration {
	if b.Delay <= 0 {
		return 0
	}
	if b.Type != BackoffExponential || attemptsMade <= 1 {
		return b.Delay
	}

	d := b.Delay
	for i := 1; i < attemptsMade; i++ {
		d *= 2
		if d >= MaxBackoff {
			return MaxBackoff
		}
	}
	return d
}
