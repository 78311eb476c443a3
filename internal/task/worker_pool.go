package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/phrazzld/scry-planner/internal/platform/logger"
	"golang.org/x/time/rate"
)

// Default worker pool settings
const (
	DefaultPollInterval = 250 * time.Millisecond

	// DefaultLeaseRenewInterval must stay well below the store's lease timeout.
	DefaultLeaseRenewInterval = 30 * time.Second

	// bookkeepingTimeout bounds store writes made after a handler returns.
	bookkeepingTimeout = 5 * time.Second
)

// Outcome describes how one leased attempt ended. State is completed,
// failed, or delayed when a retry has been scheduled.
type Outcome struct {
	JobID        string
	Queue        string
	Name         string
	State        JobState
	AttemptsMade int
	Err          error
	Duration     time.Duration
}

// TerminalHook observes the outcome of every leased attempt.
type TerminalHook func(ctx context.Context, outcome Outcome)

// PoolOption configures a WorkerPool.
type PoolOption func(*WorkerPool)

// WithPollInterval sets how long an idle worker waits before leasing again.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *WorkerPool) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithTerminalHook registers a hook invoked after every attempt.
func WithTerminalHook(hook TerminalHook) PoolOption {
	return func(p *WorkerPool) {
		if hook != nil {
			p.hooks = append(p.hooks, hook)
		}
	}
}

// WithLeaseRenewInterval sets how often the lease of a running job is renewed
// on stores that implement LeaseExtender.
func WithLeaseRenewInterval(d time.Duration) PoolOption {
	return func(p *WorkerPool) {
		if d > 0 {
			p.renewInterval = d
		}
	}
}

// WithPoolClock overrides the clock used to measure attempt duration.
func WithPoolClock(now func() time.Time) PoolOption {
	return func(p *WorkerPool) {
		p.now = now
	}
}

// familyLimiter serializes leasing for a rate limited family so a token can
// be refunded whenever a lease comes back empty.
type familyLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

// WorkerPool runs a fixed number of workers per job family. Each worker
// leases from its family's queue, runs the registered handler, and records
// the result in the store.
type WorkerPool struct {
	store        JobStore
	families     map[Family]FamilyConfig
	handlers     map[Family]Handler
	limiters     map[Family]*familyLimiter
	hooks        []TerminalHook
	pollInterval time.Duration
	now          func() time.Time
	logger       *slog.Logger

	// extender is nil and renewInterval zero when the store's leases do not expire.
	extender      LeaseExtender
	renewInterval time.Duration

	// leaseCtx stops new leases; jobCtx is handed to handlers and is only
	// cancelled when a shutdown deadline expires.
	leaseCtx    context.Context
	stopLeasing context.CancelFunc
	jobCtx      context.Context
	cancelJobs  context.CancelFunc

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWorkerPool creates a pool for the given handlers. Every handler must
// have a matching family configuration.
func NewWorkerPool(
	store JobStore,
	families map[Family]FamilyConfig,
	handlers map[Family]Handler,
	log *slog.Logger,
	opts ...PoolOption,
) (*WorkerPool, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if log == nil {
		return nil, ErrNilLogger
	}
	if len(handlers) == 0 {
		return nil, errors.New("at least one handler is required")
	}
	if families == nil {
		families = DefaultFamilies()
	}

	limiters := make(map[Family]*familyLimiter)
	for family, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("nil handler for family %q", family)
		}
		cfg, ok := families[family]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
		}
		if rl := cfg.RateLimit; rl != nil && rl.Max > 0 && rl.Per > 0 {
			limiters[family] = &familyLimiter{
				limiter: rate.NewLimiter(rate.Limit(float64(rl.Max)/rl.Per.Seconds()), rl.Max),
			}
		}
	}

	leaseCtx, stopLeasing := context.WithCancel(context.Background())
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	p := &WorkerPool{
		store:        store,
		families:     families,
		handlers:     handlers,
		limiters:     limiters,
		pollInterval: DefaultPollInterval,
		now:          time.Now,
		logger:       log.With("component", "worker_pool"),
		leaseCtx:     leaseCtx,
		stopLeasing:  stopLeasing,
		jobCtx:       jobCtx,
		cancelJobs:   cancelJobs,
	}
	if ext, ok := store.(LeaseExtender); ok {
		p.extender = ext
		p.renewInterval = DefaultLeaseRenewInterval
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start launches the workers. Calling Start more than once has no effect.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		for family := range p.handlers {
			concurrency := p.families[family].Concurrency
			if concurrency <= 0 {
				concurrency = 1
			}
			for i := 0; i < concurrency; i++ {
				p.wg.Add(1)
				go p.worker(family, i)
			}
			p.logger.Info("workers started",
				"queue", string(family),
				"concurrency", concurrency)
		}
	})
}

// Stop stops leasing and waits for in-flight handlers to finish. If ctx
// expires first the handler contexts are cancelled and ctx.Err() is returned.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.stopOnce.Do(p.stopLeasing)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancelJobs()
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.cancelJobs()
		p.logger.Warn("worker pool shutdown deadline exceeded, cancelling in-flight jobs")
		return ctx.Err()
	}
}

func (p *WorkerPool) worker(family Family, id int) {
	defer p.wg.Done()

	log := p.logger.With("queue", string(family), "worker_id", id)
	handler := p.handlers[family]

	for {
		if p.leaseCtx.Err() != nil {
			return
		}

		job, err := p.lease(family)
		if err != nil {
			log.Error("failed to lease job", "error", err)
		}
		if job == nil {
			if !p.sleep(p.pollInterval) {
				return
			}
			continue
		}

		p.process(handler, job, log)
	}
}

// lease takes the next ready job, honouring the family rate limit. A token
// is reserved before leasing and refunded when nothing was leased, so a
// leased job never waits on the limiter.
func (p *WorkerPool) lease(family Family) (*Job, error) {
	fl := p.limiters[family]
	if fl == nil {
		return p.leaseFromStore(family)
	}

	fl.mu.Lock()
	defer fl.mu.Unlock()

	at := time.Now()
	reservation := fl.limiter.ReserveN(at, 1)
	if !reservation.OK() || reservation.DelayFrom(at) > 0 {
		reservation.CancelAt(at)
		return nil, nil
	}

	job, err := p.leaseFromStore(family)
	if job == nil {
		reservation.CancelAt(at)
	}
	return job, err
}

func (p *WorkerPool) leaseFromStore(family Family) (*Job, error) {
	job, err := p.store.Lease(p.leaseCtx, string(family))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

func (p *WorkerPool) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.leaseCtx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (p *WorkerPool) process(handler Handler, job *Job, log *slog.Logger) {
	log = log.With(
		"job_id", job.ID,
		"job_name", job.Name,
		"attempt", job.AttemptsMade+1)
	ctx := logger.WithLogger(p.jobCtx, log)

	log.Debug("processing job")
	start := p.now()

	stopRenewing := p.renewLease(job, log)
	result, err := p.invoke(ctx, handler, job)
	stopRenewing()

	var encoded json.RawMessage
	if err == nil && result != nil {
		encoded, err = json.Marshal(result)
		if err != nil {
			err = Unrecoverable(fmt.Errorf("failed to encode job result: %w", err))
		}
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	outcome := Outcome{
		JobID: job.ID,
		Queue: job.Queue,
		Name:  job.Name,
		Err:   err,
	}

	if err == nil {
		if ackErr := p.store.Ack(storeCtx, job.Queue, job.ID, encoded); ackErr != nil {
			log.Error("failed to acknowledge job; it will be leased again once its lease expires",
				"error", ackErr)
			return
		}
		outcome.State = StateCompleted
		outcome.AttemptsMade = job.AttemptsMade + 1
		outcome.Duration = p.now().Sub(start)
		log.Info("job completed", "duration_ms", outcome.Duration.Milliseconds())
	} else {
		snapshot, failErr := p.store.Fail(storeCtx, job.Queue, job.ID, err.Error(), !IsUnrecoverable(err))
		if failErr != nil {
			log.Error("failed to record job failure; it will be leased again once its lease expires",
				"error", failErr,
				"job_error", err)
			return
		}
		outcome.State = snapshot.State
		outcome.AttemptsMade = snapshot.AttemptsMade
		outcome.Duration = p.now().Sub(start)

		if snapshot.State == StateDelayed {
			log.Warn("job attempt failed, retry scheduled",
				"error", err,
				"attempts_made", snapshot.AttemptsMade,
				"max_attempts", snapshot.MaxAttempts,
				"retry_at", snapshot.ReadyAt)
		} else {
			log.Error("job failed",
				"error", err,
				"attempts_made", snapshot.AttemptsMade,
				"unrecoverable", IsUnrecoverable(err))
		}
	}

	for _, hook := range p.hooks {
		hook(storeCtx, outcome)
	}
}

// renewLease keeps the job's lease alive until the returned func is called.
func (p *WorkerPool) renewLease(job *Job, log *slog.Logger) (stop func()) {
	if p.extender == nil || p.renewInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(p.renewInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), bookkeepingTimeout)
				err := p.extender.ExtendLease(ctx, job.Queue, job.ID)
				cancel()
				if err != nil {
					log.Warn("failed to renew job lease", "error", err)
				}
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

// invoke runs the handler, converting a panic into an error.
func (p *WorkerPool) invoke(ctx context.Context, handler Handler, job *Job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromContextOrDefault(ctx, p.logger).Error("job handler panicked",
				"panic", r,
				"stack", string(debug.Stack()))
			result = nil
			err = fmt.Errorf("job handler panic: %v", r)
		}
	}()

	progress := &storeProgress{store: p.store, queue: job.Queue, id: job.ID}
	return handler.Handle(ctx, job, progress)
}
