package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/phrazzld/scry-planner/internal/task"
	"github.com/redis/go-redis/v9"
)

// leaseScript returns expired active jobs to the wait zset, promotes due
// delayed jobs, then pops the lowest scored waiting job and leases it until
// the given deadline. A job whose lease expired has its stalls counter
// incremented.
//
// KEYS: wait, delayed, active, seq
// ARGV: now (unix ms), job key prefix, priority shift, lease deadline (unix ms)
var leaseScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local jobPrefix = ARGV[2]
local shift = tonumber(ARGV[3])
local deadline = ARGV[4]

local function requeue(id)
  local priority = tonumber(redis.call('HGET', jobPrefix .. id, 'priority') or '0')
  local seq = redis.call('INCR', KEYS[4])
  redis.call('ZADD', KEYS[1], string.format('%.0f', priority * shift + seq), id)
  redis.call('HSET', jobPrefix .. id, 'state', 'waiting')
end

local expired = redis.call('ZRANGEBYSCORE', KEYS[3], '-inf', now)
for _, id in ipairs(expired) do
  redis.call('ZREM', KEYS[3], id)
  if redis.call('EXISTS', jobPrefix .. id) == 1 then
    redis.call('HINCRBY', jobPrefix .. id, 'stalls', 1)
    requeue(id)
  end
end

local due = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', now)
for _, id in ipairs(due) do
  redis.call('ZREM', KEYS[2], id)
  requeue(id)
end

local popped = redis.call('ZPOPMIN', KEYS[1])
if #popped == 0 then
  return false
end

local id = popped[1]
redis.call('ZADD', KEYS[3], deadline, id)
redis.call('HSET', jobPrefix .. id, 'state', 'active')
return id
`)

// DefaultVisibilityTimeout is how long a lease lasts without renewal before
// the job is handed to another worker.
const DefaultVisibilityTimeout = 2 * time.Minute

// stalledReason is recorded on jobs whose leases expired too many times.
const stalledReason = "job stalled more than allowable limit"

// Store is a task.JobStore backed by Redis.
type Store struct {
	client     redis.UniversalClient
	prefix     string
	visibility time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the store clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithVisibilityTimeout sets how long a lease lasts without renewal.
func WithVisibilityTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.visibility = d
		}
	}
}

// NewStore creates a Store that namespaces its keys under prefix.
func NewStore(client redis.UniversalClient, prefix string, logger *slog.Logger, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if prefix == "" {
		return nil, errors.New("key prefix cannot be empty")
	}
	if logger == nil {
		return nil, task.ErrNilLogger
	}

	s := &Store{
		client:     client,
		prefix:     prefix,
		visibility: DefaultVisibilityTimeout,
		logger:     logger.With("component", "redis_job_store"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var (
	_ task.JobStore      = (*Store)(nil)
	_ task.LeaseExtender = (*Store)(nil)
)

func (s *Store) keys(queue string) queueKeys {
	return queueKeys{prefix: s.prefix, queue: queue}
}

// Ping checks connectivity with the Redis server.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return s.wrap("ping", err)
	}
	return nil
}

// Enqueue implements task.JobStore.
func (s *Store) Enqueue(ctx context.Context, job *task.Job) error {
	k := s.keys(job.Queue)

	exists, err := s.client.Exists(ctx, k.job(job.ID)).Result()
	if err != nil {
		return s.wrap("enqueue", err)
	}
	if exists > 0 {
		return fmt.Errorf("job %s already exists in queue %s", job.ID, job.Queue)
	}

	stored := job.Clone()
	delayed := stored.ReadyAt.After(s.now())
	stored.State = task.StateWaiting
	if delayed {
		stored.State = task.StateDelayed
	}

	var seq int64
	if !delayed {
		if seq, err = s.client.Incr(ctx, k.seq()).Result(); err != nil {
			return s.wrap("enqueue", err)
		}
	}

	fields, err := encodeJob(stored)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, k.job(stored.ID), fields)
	if delayed {
		pipe.ZAdd(ctx, k.delayed(), redis.Z{Score: float64(stored.ReadyAt.UnixMilli()), Member: stored.ID})
	} else {
		pipe.ZAdd(ctx, k.wait(), redis.Z{Score: waitScore(stored.Priority, seq), Member: stored.ID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return s.wrap("enqueue", err)
	}
	return nil
}

// Lease implements task.JobStore. A job whose lease expired is leased again
// with the stall counted as an attempt. Once stalls exhaust MaxAttempts the
// job is failed instead and the next one is leased.
func (s *Store) Lease(ctx context.Context, queue string) (*task.Job, error) {
	k := s.keys(queue)

	for {
		now := s.now()
		id, err := leaseScript.Run(ctx, s.client,
			[]string{k.wait(), k.delayed(), k.active(), k.seq()},
			now.UnixMilli(), k.jobPrefix(), priorityShift, now.Add(s.visibility).UnixMilli(),
		).Text()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, s.wrap("lease", err)
		}

		job, err := s.load(ctx, k, id)
		if err != nil {
			return nil, err
		}
		if job.MaxAttempts <= 0 || job.AttemptsMade < job.MaxAttempts {
			return job, nil
		}
		if err := s.failStalled(ctx, k, job, now); err != nil {
			return nil, err
		}
	}
}

func (s *Store) failStalled(ctx context.Context, k queueKeys, job *task.Job, now time.Time) error {
	job.State = task.StateFailed
	job.FailureReason = stalledReason
	job.FinishedAt = &now

	fields, err := encodeJob(job)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, k.job(job.ID), fields)
	pipe.ZRem(ctx, k.active(), job.ID)
	pipe.ZAdd(ctx, k.failed(), redis.Z{Score: float64(now.UnixMilli()), Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return s.wrap("lease", err)
	}

	s.logger.WarnContext(ctx, "job stalled too many times",
		"queue", k.queue,
		"job_id", job.ID,
		"attempts_made", job.AttemptsMade)
	return s.prune(ctx, k, k.failed(), job.RemoveOnFail, now)
}

// ExtendLease implements task.LeaseExtender.
func (s *Store) ExtendLease(ctx context.Context, queue, id string) error {
	k := s.keys(queue)

	if err := s.client.ZScore(ctx, k.active(), id).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s/%s", task.ErrJobNotActive, queue, id)
		}
		return s.wrap("extend lease", err)
	}

	deadline := s.now().Add(s.visibility).UnixMilli()
	if err := s.client.ZAddXX(ctx, k.active(), redis.Z{Score: float64(deadline), Member: id}).Err(); err != nil {
		return s.wrap("extend lease", err)
	}
	return nil
}

// UpdateProgress implements task.JobStore.
func (s *Store) UpdateProgress(ctx context.Context, queue, id string, progress int) error {
	k := s.keys(queue)

	exists, err := s.client.Exists(ctx, k.job(id)).Result()
	if err != nil {
		return s.wrap("update progress", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s/%s", task.ErrJobNotFound, queue, id)
	}

	if err := s.client.HSet(ctx, k.job(id), fieldProgress, task.ClampProgress(progress)).Err(); err != nil {
		return s.wrap("update progress", err)
	}
	return nil
}

// Ack implements task.JobStore.
func (s *Store) Ack(ctx context.Context, queue, id string, result json.RawMessage) error {
	k := s.keys(queue)

	job, err := s.load(ctx, k, id)
	if err != nil {
		return err
	}
	if job.State != task.StateActive {
		return fmt.Errorf("%w: %s is %s", task.ErrJobNotActive, id, job.State)
	}

	now := s.now()
	job.State = task.StateCompleted
	job.AttemptsMade++
	job.Progress = 100
	job.Result = result
	job.FailureReason = ""
	job.FinishedAt = &now

	fields, err := encodeJob(job)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, k.job(id), fields)
	pipe.ZRem(ctx, k.active(), id)
	pipe.ZAdd(ctx, k.completed(), redis.Z{Score: float64(now.UnixMilli()), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return s.wrap("ack", err)
	}

	return s.prune(ctx, k, k.completed(), job.RemoveOnComplete, now)
}

// Fail implements task.JobStore.
func (s *Store) Fail(ctx context.Context, queue, id, reason string, retry bool) (*task.Job, error) {
	k := s.keys(queue)

	job, err := s.load(ctx, k, id)
	if err != nil {
		return nil, err
	}
	if job.State != task.StateActive {
		return nil, fmt.Errorf("%w: %s is %s", task.ErrJobNotActive, id, job.State)
	}

	now := s.now()
	job.AttemptsMade++
	job.FailureReason = reason

	retrying := retry && job.AttemptsMade < job.MaxAttempts
	if retrying {
		job.State = task.StateDelayed
		job.ReadyAt = now.Add(job.Backoff.Next(job.AttemptsMade))
	} else {
		job.State = task.StateFailed
		job.FinishedAt = &now
	}

	fields, err := encodeJob(job)
	if err != nil {
		return nil, err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, k.job(id), fields)
	pipe.ZRem(ctx, k.active(), id)
	if retrying {
		pipe.ZAdd(ctx, k.delayed(), redis.Z{Score: float64(job.ReadyAt.UnixMilli()), Member: id})
	} else {
		pipe.ZAdd(ctx, k.failed(), redis.Z{Score: float64(now.UnixMilli()), Member: id})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, s.wrap("fail", err)
	}

	if !retrying {
		if err := s.prune(ctx, k, k.failed(), job.RemoveOnFail, now); err != nil {
			return nil, err
		}
	}
	return job, nil
}

// Get implements task.JobStore.
func (s *Store) Get(ctx context.Context, queue, id string) (*task.Job, error) {
	return s.load(ctx, s.keys(queue), id)
}

func (s *Store) load(ctx context.Context, k queueKeys, id string) (*task.Job, error) {
	fields, err := s.client.HGetAll(ctx, k.job(id)).Result()
	if err != nil {
		return nil, s.wrap("get", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", task.ErrJobNotFound, k.queue, id)
	}
	return decodeJob(fields)
}

// prune removes terminal jobs beyond the retention policy from set.
func (s *Store) prune(ctx context.Context, k queueKeys, set string, policy task.RetentionPolicy, now time.Time) error {
	var stale []string

	if policy.MaxAge > 0 {
		cutoff := now.Add(-policy.MaxAge).UnixMilli()
		ids, err := s.client.ZRangeByScore(ctx, set, &redis.ZRangeBy{
			Min: "-inf",
			Max: "(" + strconv.FormatInt(cutoff, 10),
		}).Result()
		if err != nil {
			return s.wrap("prune", err)
		}
		stale = append(stale, ids...)
	}

	if policy.Count > 0 {
		ids, err := s.client.ZRange(ctx, set, 0, int64(-policy.Count-1)).Result()
		if err != nil {
			return s.wrap("prune", err)
		}
		stale = append(stale, ids...)
	}

	if len(stale) == 0 {
		return nil
	}

	members := make([]any, 0, len(stale))
	jobKeys := make([]string, 0, len(stale))
	for _, id := range stale {
		members = append(members, id)
		jobKeys = append(jobKeys, k.job(id))
	}

	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, set, members...)
	pipe.Del(ctx, jobKeys...)
	if _, err := pipe.Exec(ctx); err != nil {
		return s.wrap("prune", err)
	}

	s.logger.DebugContext(ctx, "pruned terminal jobs",
		"queue", k.queue,
		"set", set,
		"count", len(stale))
	return nil
}

// wrap marks Redis failures as broker unavailability, leaving context
// errors untouched.
func (s *Store) wrap(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", task.ErrBrokerUnavailable, op, err)
}
