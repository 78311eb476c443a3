package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/generation"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
	"github.com/phrazzld/scry-planner/internal/redact"
	"github.com/phrazzld/scry-planner/internal/store"
)

// QuizService generates quizzes on demand for completed plan items.
type QuizService struct {
	plans     store.PlanStore
	schedules store.ScheduleStore
	quizzes   *quizWriter
	logger    *slog.Logger
}

// NewQuizService creates a QuizService.
func NewQuizService(
	db *sql.DB,
	plans store.PlanStore,
	schedules store.ScheduleStore,
	generator generation.Generator,
	log *slog.Logger,
) (*QuizService, error) {
	if db == nil || plans == nil || schedules == nil || generator == nil {
		return nil, &ServiceError{
			Operation: "create_service",
			Message:   "db, plan store, schedule store and generator are required",
		}
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "quiz_service"))

	return &QuizService{
		plans:     plans,
		schedules: schedules,
		quizzes:   &quizWriter{db: db, plans: plans, generator: generator, logger: log},
		logger:    log,
	}, nil
}

// CreateQuiz generates the quiz of a plan item owned by userID, replacing any
// existing quiz. Every subtopic must be completed.
func (s *QuizService) CreateQuiz(ctx context.Context, userID, planItemID uuid.UUID) (*domain.Quiz, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("plan_item_id", planItemID.String()))

	item, err := s.plans.GetPlanItem(ctx, planItemID)
	if err != nil {
		return nil, NewServiceError("create_quiz", "failed to load plan item", err)
	}

	schedule, err := s.schedules.GetByID(ctx, item.ScheduleID)
	if err != nil {
		return nil, NewServiceError("create_quiz", "failed to load schedule", err)
	}
	if schedule.UserID != userID {
		return nil, ErrNotOwned
	}

	if !item.AllCompleted() {
		return nil, ErrSubtopicsIncomplete
	}

	quiz, _, err := s.quizzes.generateAndStore(ctx, item, true)
	if errors.Is(err, ErrSubtopicsIncomplete) {
		return nil, ErrSubtopicsIncomplete
	}
	if err != nil {
		log.Warn("quiz generation failed", slog.String("error", redact.Error(err)))
		return nil, NewServiceError("create_quiz", "failed to generate quiz", err)
	}
	return quiz, nil
}
