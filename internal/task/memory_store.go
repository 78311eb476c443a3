package task

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryJobStore is an in-process JobStore. It backs tests and the
// single-process development mode.
type MemoryJobStore struct {
	mu     sync.Mutex
	queues map[string]*memoryQueue
	seq    uint64
	now    func() time.Time
}

type memoryQueue struct {
	jobs      map[string]*memoryEntry
	completed []string
	failed    []string
}

type memoryEntry struct {
	job *Job
	seq uint64
}

// MemoryStoreOption configures a MemoryJobStore.
type MemoryStoreOption func(*MemoryJobStore)

// WithMemoryClock overrides the store clock.
func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryJobStore) {
		s.now = now
	}
}

// NewMemoryJobStore creates an empty in-memory store.
func NewMemoryJobStore(opts ...MemoryStoreOption) *MemoryJobStore {
	s := &MemoryJobStore{
		queues: make(map[string]*memoryQueue),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ JobStore = (*MemoryJobStore)(nil)

func (s *MemoryJobStore) queue(name string) *memoryQueue {
	q, ok := s.queues[name]
	if !ok {
		q = &memoryQueue{jobs: make(map[string]*memoryEntry)}
		s.queues[name] = q
	}
	return q
}

func (s *MemoryJobStore) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// Enqueue implements JobStore.
func (s *MemoryJobStore) Enqueue(ctx context.Context, job *Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queue(job.Queue)
	if _, exists := q.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists in queue %s", job.ID, job.Queue)
	}

	stored := job.Clone()
	if stored.ReadyAt.After(s.now()) {
		stored.State = StateDelayed
	} else {
		stored.State = StateWaiting
	}
	q.jobs[stored.ID] = &memoryEntry{job: stored, seq: s.nextSeq()}
	return nil
}

// Lease implements JobStore.
func (s *MemoryJobStore) Lease(ctx context.Context, queue string) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queue(queue)
	now := s.now()

	var next *memoryEntry
	for _, e := range q.jobs {
		if e.job.State == StateDelayed && !e.job.ReadyAt.After(now) {
			e.job.State = StateWaiting
		}
		if e.job.State != StateWaiting {
			continue
		}
		if next == nil || e.job.Priority < next.job.Priority ||
			(e.job.Priority == next.job.Priority && e.seq < next.seq) {
			next = e
		}
	}
	if next == nil {
		return nil, nil
	}

	next.job.State = StateActive
	return next.job.Clone(), nil
}

// UpdateProgress implements JobStore.
func (s *MemoryJobStore) UpdateProgress(ctx context.Context, queue, id string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(queue, id)
	if err != nil {
		return err
	}
	e.job.Progress = ClampProgress(progress)
	return nil
}

// Ack implements JobStore.
func (s *MemoryJobStore) Ack(ctx context.Context, queue, id string, result json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(queue, id)
	if err != nil {
		return err
	}
	if e.job.State != StateActive {
		return fmt.Errorf("%w: %s is %s", ErrJobNotActive, id, e.job.State)
	}

	now := s.now()
	e.job.State = StateCompleted
	e.job.AttemptsMade++
	e.job.Progress = 100
	e.job.Result = cloneRaw(result)
	e.job.FailureReason = ""
	e.job.FinishedAt = &now

	q := s.queues[queue]
	q.completed = append(q.completed, id)
	q.completed = s.prune(q, q.completed, e.job.RemoveOnComplete, now)
	return nil
}

// Fail implements JobStore.
func (s *MemoryJobStore) Fail(ctx context.Context, queue, id, reason string, retry bool) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(queue, id)
	if err != nil {
		return nil, err
	}
	if e.job.State != StateActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrJobNotActive, id, e.job.State)
	}

	now := s.now()
	job := e.job
	job.AttemptsMade++
	job.FailureReason = reason

	if retry && job.AttemptsMade < job.MaxAttempts {
		job.State = StateDelayed
		job.ReadyAt = now.Add(job.Backoff.Next(job.AttemptsMade))
		e.seq = s.nextSeq()
		return job.Clone(), nil
	}

	job.State = StateFailed
	job.FinishedAt = &now
	snapshot := job.Clone()

	q := s.queues[queue]
	q.failed = append(q.failed, id)
	q.failed = s.prune(q, q.failed, job.RemoveOnFail, now)
	return snapshot, nil
}

// Get implements JobStore.
func (s *MemoryJobStore) Get(ctx context.Context, queue, id string) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(queue, id)
	if err != nil {
		return nil, err
	}
	return e.job.Clone(), nil
}

// Len returns the number of jobs currently held for a queue.
func (s *MemoryJobStore) Len(queue string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[queue]; ok {
		return len(q.jobs)
	}
	return 0
}

func (s *MemoryJobStore) lookup(queue, id string) (*memoryEntry, error) {
	q, ok := s.queues[queue]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrJobNotFound, queue, id)
	}
	e, ok := q.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrJobNotFound, queue, id)
	}
	return e, nil
}

// prune drops the oldest terminal ids beyond the policy and returns the
// remaining ids in finish order. Must be called with s.mu held.
func (s *MemoryJobStore) prune(q *memoryQueue, ids []string, policy RetentionPolicy, now time.Time) []string {
	keepFrom := 0
	if policy.MaxAge > 0 {
		cutoff := now.Add(-policy.MaxAge)
		for keepFrom < len(ids) {
			e, ok := q.jobs[ids[keepFrom]]
			if ok && e.job.FinishedAt != nil && !e.job.FinishedAt.Before(cutoff) {
				break
			}
			keepFrom++
		}
	}
	if policy.Count > 0 && len(ids)-keepFrom > policy.Count {
		keepFrom = len(ids) - policy.Count
	}

	for _, id := range ids[:keepFrom] {
		delete(q.jobs, id)
	}
	return append([]string(nil), ids[keepFrom:]...)
}
