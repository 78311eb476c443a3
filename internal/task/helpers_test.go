package task

import (
	"context"
	"sync"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingProgress captures progress updates in order.
type recordingProgress struct {
	mu     sync.Mutex
	values []int
}

func (p *recordingProgress) Update(_ context.Context, percent int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, percent)
	return nil
}

func (p *recordingProgress) Values() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.values...)
}

func testJob(id, queue string, priority int, readyAt time.Time) *Job {
	return &Job{
		ID:          id,
		Queue:       queue,
		Name:        "test",
		Payload:     []byte(`{}`),
		Priority:    priority,
		MaxAttempts: 3,
		Backoff:     BackoffPolicy{Type: BackoffExponential, Delay: time.Second},
		CreatedAt:   readyAt,
		ReadyAt:     readyAt,
	}
}
