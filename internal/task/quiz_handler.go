package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
)

// QuizCreator generates and stores the quiz of a plan item on behalf of a user.
type QuizCreator interface {
	CreateQuiz(ctx context.Context, userID, planItemID uuid.UUID) (*domain.Quiz, error)
}

// QuizGenerationResult is the result of a generate-quiz job.
type QuizGenerationResult struct {
	RequestID   string       `json:"requestId"`
	Quiz        *domain.Quiz `json:"quiz"`
	UserID      string       `json:"userId"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

// QuizGenerationHandler creates quizzes on demand.
type QuizGenerationHandler struct {
	creator   QuizCreator
	permanent []error
	logger    *slog.Logger
	now       func() time.Time
}

// NewQuizGenerationHandler creates a handler for the quiz-generation family.
// Creator errors matching any of permanent are not retried.
func NewQuizGenerationHandler(creator QuizCreator, log *slog.Logger, permanent ...error) (*QuizGenerationHandler, error) {
	if creator == nil {
		return nil, errors.New("quiz creator cannot be nil")
	}
	if log == nil {
		return nil, ErrNilLogger
	}
	return &QuizGenerationHandler{
		creator:   creator,
		permanent: permanent,
		logger:    log,
		now:       time.Now,
	}, nil
}

// Handle implements Handler.
func (h *QuizGenerationHandler) Handle(ctx context.Context, job *Job, progress ProgressReporter) (any, error) {
	log := logger.FromContextOrDefault(ctx, h.logger)

	var p QuizGenerationPayload
	if err := job.DecodePayload(&p); err != nil {
		return nil, err
	}
	if p.UserID == "" {
		return nil, Unrecoverable(errors.New("user id is required for quiz generation"))
	}

	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		return nil, Unrecoverable(fmt.Errorf("%w: invalid user id: %v", ErrInvalidPayload, err))
	}
	planItemID, err := uuid.Parse(p.PlanItemID)
	if err != nil {
		return nil, Unrecoverable(fmt.Errorf("%w: invalid plan item id: %v", ErrInvalidPayload, err))
	}

	reportProgress(ctx, progress, 10, log)

	quiz, err := h.creator.CreateQuiz(ctx, userID, planItemID)
	if err != nil {
		for _, target := range h.permanent {
			if errors.Is(err, target) {
				return nil, Unrecoverable(err)
			}
		}
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	reportProgress(ctx, progress, 50, log)
	log.InfoContext(ctx, "quiz generated",
		"request_id", p.RequestID,
		"plan_item_id", planItemID,
		"questions", len(quiz.Questions))
	reportProgress(ctx, progress, 100, log)

	return QuizGenerationResult{
		RequestID:   p.RequestID,
		Quiz:        quiz,
		UserID:      p.UserID,
		GeneratedAt: h.now().UTC(),
	}, nil
}
