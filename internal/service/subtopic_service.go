package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/generation"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
	"github.com/phrazzld/scry-planner/internal/redact"
	"github.com/phrazzld/scry-planner/internal/store"
)

// rollbackTimeout bounds the compensating write after a failed quiz generation.
const rollbackTimeout = 5 * time.Second

// SubtopicOutcome names how a subtopic update ended.
type SubtopicOutcome string

// Subtopic update outcomes
const (
	// OutcomeUpdated means the flag was changed and no quiz was due.
	OutcomeUpdated SubtopicOutcome = "updated"
	// OutcomeQuizGenerated means the update completed the plan item and its quiz was stored.
	OutcomeQuizGenerated SubtopicOutcome = "quiz_generated"
	// OutcomeRolledBack means quiz generation failed and the subtopic was reopened.
	OutcomeRolledBack SubtopicOutcome = "rolled_back"
	// OutcomeCriticalFailure means quiz generation failed and reopening the subtopic failed too.
	OutcomeCriticalFailure SubtopicOutcome = "critical_failure"
)

// SubtopicUpdate identifies a subtopic by schedule, plan item range and
// position, and carries its new completion flag.
type SubtopicUpdate struct {
	UserID     uuid.UUID
	ScheduleID uuid.UUID
	Range      string
	Index      int
	Completed  bool
}

// SubtopicUpdateResult describes the state left behind by UpdateSubtopic.
type SubtopicUpdateResult struct {
	Outcome SubtopicOutcome
	// Subtopic reflects the stored flag, including a rollback.
	Subtopic     domain.Subtopic
	AllCompleted bool
	Quiz         *domain.Quiz
	// Details holds the generation failure message for the failure outcomes.
	Details string

	err error
}

// QuizGenerated reports whether a quiz was attached by this update.
func (r *SubtopicUpdateResult) QuizGenerated() bool {
	return r.Outcome == OutcomeQuizGenerated
}

// Err returns a *QuizGenerationFailedError or *CriticalFailureError for the
// failure outcomes, and nil otherwise.
func (r *SubtopicUpdateResult) Err() error {
	return r.err
}

// CriticalFailureHook is invoked when a subtopic is left completed without a quiz.
type CriticalFailureHook func(ctx context.Context, failure *CriticalFailureError)

// SubtopicServiceOption configures a SubtopicService.
type SubtopicServiceOption func(*SubtopicService)

// WithCriticalFailureHook registers a hook for critical failures.
func WithCriticalFailureHook(hook CriticalFailureHook) SubtopicServiceOption {
	return func(s *SubtopicService) {
		if hook != nil {
			s.criticalHooks = append(s.criticalHooks, hook)
		}
	}
}

// SubtopicService toggles subtopic completion and generates the plan item's
// quiz when the last subtopic is completed.
type SubtopicService struct {
	db            *sql.DB
	plans         store.PlanStore
	schedules     store.ScheduleStore
	quizzes       *quizWriter
	criticalHooks []CriticalFailureHook
	logger        *slog.Logger
}

// NewSubtopicService creates a SubtopicService.
// It returns an error if any of the required dependencies are nil.
func NewSubtopicService(
	db *sql.DB,
	plans store.PlanStore,
	schedules store.ScheduleStore,
	generator generation.Generator,
	log *slog.Logger,
	opts ...SubtopicServiceOption,
) (*SubtopicService, error) {
	if db == nil || plans == nil || schedules == nil || generator == nil {
		return nil, &ServiceError{
			Operation: "create_service",
			Message:   "db, plan store, schedule store and generator are required",
		}
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "subtopic_service"))

	s := &SubtopicService{
		db:        db,
		plans:     plans,
		schedules: schedules,
		quizzes:   &quizWriter{db: db, plans: plans, generator: generator, logger: log},
		logger:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// UpdateSubtopic sets the completion flag of one subtopic.
//
// The flag is written in its own transaction with the plan item row locked.
// When the update completes a plan item that has no quiz yet, a quiz is
// generated and stored. If that fails the subtopic is reset to incomplete by
// an independent write and the result reports OutcomeRolledBack, or
// OutcomeCriticalFailure when the reset fails as well. A quiz stored by a
// concurrent update of the same plan item is kept, and the result then
// reports OutcomeUpdated.
//
// The returned error covers failures before the flag is committed; generation
// failures are reported through the result.
func (s *SubtopicService) UpdateSubtopic(ctx context.Context, upd SubtopicUpdate) (*SubtopicUpdateResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("schedule_id", upd.ScheduleID.String()),
		slog.String("range", upd.Range),
		slog.Int("index", upd.Index))

	var (
		item     *domain.PlanItem
		subtopic domain.Subtopic
	)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		schedule, err := s.schedules.WithTx(tx).GetByID(ctx, upd.ScheduleID)
		if err != nil {
			return err
		}
		if schedule.UserID != upd.UserID {
			return ErrNotOwned
		}

		plans := s.plans.WithTx(tx)
		item, err = plans.GetPlanItemByRange(ctx, upd.ScheduleID, upd.Range)
		if err != nil {
			return err
		}

		sub, err := item.SubtopicAt(upd.Index)
		if err != nil {
			return ErrSubtopicNotFound
		}
		if err := plans.SetSubtopicCompleted(ctx, sub.ID, upd.Completed); err != nil {
			return err
		}
		sub.Completed = upd.Completed
		subtopic = *sub
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotOwned) && !store.IsNotFoundError(err) && !errors.Is(err, ErrSubtopicNotFound) {
			log.Error("failed to update subtopic", slog.String("error", redact.Error(err)))
		}
		return nil, NewServiceError("update_subtopic", "failed to update subtopic", err)
	}

	result := &SubtopicUpdateResult{
		Outcome:      OutcomeUpdated,
		Subtopic:     subtopic,
		AllCompleted: item.AllCompleted(),
		Quiz:         item.Quiz,
	}
	if !upd.Completed || !result.AllCompleted || item.Quiz != nil {
		log.Debug("subtopic updated", slog.Bool("completed", upd.Completed))
		return result, nil
	}

	log.Info("all subtopics completed, generating quiz", slog.String("plan_item_id", item.ID.String()))
	quiz, created, genErr := s.quizzes.generateAndStore(ctx, item, false)
	switch {
	case genErr == nil:
		result.Quiz = quiz
		if created {
			result.Outcome = OutcomeQuizGenerated
		}
		return result, nil
	case errors.Is(genErr, ErrSubtopicsIncomplete):
		log.Info("plan item reopened during quiz generation, quiz discarded",
			slog.String("plan_item_id", item.ID.String()))
		result.AllCompleted = false
		return result, nil
	}

	details := redact.Error(genErr)
	log.Warn("quiz generation failed, reopening subtopic",
		slog.String("error", details),
		slog.String("subtopic_id", subtopic.ID.String()))

	existing, rollbackErr := s.reopen(ctx, item, subtopic.ID)
	if rollbackErr == nil && existing != nil {
		log.Info("plan item already has a quiz, subtopic left completed",
			slog.String("plan_item_id", item.ID.String()),
			slog.String("quiz_id", existing.ID.String()))
		result.Quiz = existing
		return result, nil
	}

	result.Details = details
	if rollbackErr != nil {
		failure := &CriticalFailureError{Details: details, Err: genErr, RollbackErr: rollbackErr}
		log.Error("subtopic left completed without a quiz",
			slog.Bool("critical", true),
			slog.String("subtopic_id", subtopic.ID.String()),
			slog.String("plan_item_id", item.ID.String()),
			slog.String("error", details),
			slog.String("rollback_error", redact.Error(rollbackErr)))
		for _, hook := range s.criticalHooks {
			hook(ctx, failure)
		}
		result.Outcome = OutcomeCriticalFailure
		result.err = failure
		return result, nil
	}

	result.Outcome = OutcomeRolledBack
	result.Subtopic.Completed = false
	result.AllCompleted = false
	result.err = &QuizGenerationFailedError{RolledBack: true, Details: details, Err: genErr}
	return result, nil
}

// reopen resets a subtopic with the plan item row locked. A quiz stored
// meanwhile by a concurrent update is returned and the subtopic is left
// completed. It runs even when the request context has been cancelled.
func (s *SubtopicService) reopen(
	ctx context.Context,
	item *domain.PlanItem,
	subtopicID uuid.UUID,
) (existing *domain.Quiz, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		plans := s.plans.WithTx(tx)
		current, err := plans.GetPlanItemByRange(ctx, item.ScheduleID, item.Range)
		if err != nil {
			return err
		}
		if current.Quiz != nil {
			existing = current.Quiz
			return nil
		}
		return plans.SetSubtopicCompleted(ctx, subtopicID, false)
	})
	return existing, err
}
