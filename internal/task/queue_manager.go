package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// JobOptions override family defaults for a single job.
type JobOptions struct {
	Priority    int
	Delay       time.Duration
	MaxAttempts int
}

// QueueManager is the producer-side façade over a JobStore.
type QueueManager struct {
	store    JobStore
	families map[Family]FamilyConfig
	status   *StatusReporter
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

// ManagerOption configures a QueueManager.
type ManagerOption func(*QueueManager)

// WithFamilyConfigs replaces the family configuration table.
func WithFamilyConfigs(families map[Family]FamilyConfig) ManagerOption {
	return func(m *QueueManager) {
		m.families = families
	}
}

// WithClock overrides the clock used for ReadyAt and CreatedAt.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *QueueManager) {
		m.now = now
	}
}

// WithIDGenerator overrides job id generation.
func WithIDGenerator(newID func() string) ManagerOption {
	return func(m *QueueManager) {
		m.newID = newID
	}
}

// NewQueueManager creates a QueueManager backed by store.
func NewQueueManager(store JobStore, logger *slog.Logger, opts ...ManagerOption) (*QueueManager, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	m := &QueueManager{
		store:    store,
		families: DefaultFamilies(),
		status:   NewStatusReporter(store),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		logger:   logger.With("component", "queue_manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the configuration of a family.
func (m *QueueManager) Config(family Family) (FamilyConfig, error) {
	cfg, ok := m.families[family]
	if !ok {
		return FamilyConfig{}, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}
	return cfg, nil
}

// Enqueue persists a new job for family and returns its id. An empty name
// uses the family's job name; zero options fall back to family defaults.
func (m *QueueManager) Enqueue(
	ctx context.Context,
	family Family,
	name string,
	payload any,
	opts JobOptions,
) (string, error) {
	cfg, err := m.Config(family)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if name == "" {
		name = cfg.JobName
	}
	priority := cfg.Priority
	if opts.Priority > 0 {
		priority = opts.Priority
	}
	maxAttempts := cfg.MaxAttempts
	if opts.MaxAttempts > 0 {
		maxAttempts = opts.MaxAttempts
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}

	now := m.now()
	job := &Job{
		ID:               m.newID(),
		Queue:            string(family),
		Name:             name,
		Payload:          raw,
		Priority:         priority,
		MaxAttempts:      maxAttempts,
		Backoff:          cfg.Backoff,
		State:            StateWaiting,
		CreatedAt:        now,
		ReadyAt:          now.Add(delay),
		RemoveOnComplete: cfg.RemoveOnComplete,
		RemoveOnFail:     cfg.RemoveOnFail,
	}
	if delay > 0 {
		job.State = StateDelayed
	}

	if err := m.store.Enqueue(ctx, job); err != nil {
		m.logger.ErrorContext(ctx, "failed to enqueue job",
			"queue", job.Queue,
			"job_name", job.Name,
			"error", err)
		return "", fmt.Errorf("failed to enqueue %s job: %w", family, err)
	}

	m.logger.DebugContext(ctx, "job enqueued",
		"queue", job.Queue,
		"job_id", job.ID,
		"job_name", job.Name,
		"priority", job.Priority,
		"delay", delay)
	return job.ID, nil
}

func (m *QueueManager) validatePayload(payload any) error {
	if err := m.validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// AddScheduleGenerationJob enqueues a study plan generation. A missing
// request id is generated.
func (m *QueueManager) AddScheduleGenerationJob(ctx context.Context, p ScheduleGenerationPayload) (string, error) {
	if p.RequestID == "" {
		p.RequestID = uuid.New().String()
	}
	if err := m.validatePayload(p); err != nil {
		return "", err
	}
	return m.Enqueue(ctx, FamilyScheduleGeneration, JobNameGenerateSchedule, p, JobOptions{})
}

// AddQuizGenerationJob enqueues an on-demand quiz generation.
func (m *QueueManager) AddQuizGenerationJob(ctx context.Context, p QuizGenerationPayload) (string, error) {
	if p.RequestID == "" {
		p.RequestID = uuid.New().String()
	}
	if err := m.validatePayload(p); err != nil {
		return "", err
	}
	return m.Enqueue(ctx, FamilyQuizGeneration, JobNameGenerateQuiz, p, JobOptions{})
}

// AddReminderJob enqueues a reminder that becomes ready at scheduledTime.
// Times in the past are ready immediately.
func (m *QueueManager) AddReminderJob(ctx context.Context, p ReminderPayload, scheduledTime time.Time) (string, error) {
	if err := m.validatePayload(p); err != nil {
		return "", err
	}
	delay := scheduledTime.Sub(m.now())
	if delay < 0 {
		delay = 0
	}
	return m.Enqueue(ctx, FamilyReminders, JobNameSendReminder, p, JobOptions{Delay: delay})
}

// AddAnalyticsJob enqueues a statistics calculation at low priority.
func (m *QueueManager) AddAnalyticsJob(ctx context.Context, p AnalyticsPayload) (string, error) {
	if err := m.validatePayload(p); err != nil {
		return "", err
	}
	return m.Enqueue(ctx, FamilyAnalytics, JobNameCalculateAnalytics, p, JobOptions{})
}

// AddEmailJob enqueues a transactional email.
func (m *QueueManager) AddEmailJob(ctx context.Context, p EmailPayload) (string, error) {
	if err := m.validatePayload(p); err != nil {
		return "", err
	}
	return m.Enqueue(ctx, FamilyEmail, JobNameSendEmail, p, JobOptions{})
}

// GetStatus returns the polling view of a job.
func (m *QueueManager) GetStatus(ctx context.Context, family Family, id string) (*JobStatus, error) {
	if _, err := m.Config(family); err != nil {
		return nil, err
	}
	return m.status.GetStatus(ctx, family, id)
}
