package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/generation"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
	"github.com/phrazzld/scry-planner/internal/store"
)

// quizWriter generates the quiz of a plan item and replaces any stored quiz with it.
type quizWriter struct {
	db        *sql.DB
	plans     store.PlanStore
	generator generation.Generator
	logger    *slog.Logger
}

// generateAndStore asks the generator for a quiz over the completed subtopics
// and stores it in a transaction that locks the plan item row again. The plan
// item may have changed while the generator ran: ErrSubtopicsIncomplete is
// returned when a subtopic was reopened, and unless replace is set a quiz
// stored by a concurrent request is kept and returned with created false.
func (w *quizWriter) generateAndStore(
	ctx context.Context,
	item *domain.PlanItem,
	replace bool,
) (quiz *domain.Quiz, created bool, err error) {
	log := logger.FromContextOrDefault(ctx, w.logger)

	generated, err := w.generator.GenerateQuiz(ctx, generation.QuizRequest{
		CompletedTopic:     item.Topic,
		CompletedSubTopics: item.CompletedTitles(),
	})
	if err != nil {
		return nil, false, err
	}

	quiz, err = buildQuiz(item, generated)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", generation.ErrSchemaValidation, err)
	}

	var existing *domain.Quiz
	err = store.RunInTransaction(ctx, w.db, func(ctx context.Context, tx *sql.Tx) error {
		plans := w.plans.WithTx(tx)
		current, err := plans.GetPlanItemByRange(ctx, item.ScheduleID, item.Range)
		if err != nil {
			return fmt.Errorf("failed to lock plan item: %w", err)
		}
		if !current.AllCompleted() {
			return ErrSubtopicsIncomplete
		}
		if current.Quiz != nil && !replace {
			existing = current.Quiz
			return nil
		}
		if err := plans.DeleteQuizForPlanItem(ctx, item.ID); err != nil {
			return fmt.Errorf("failed to delete existing quiz: %w", err)
		}
		if err := plans.CreateQuiz(ctx, quiz); err != nil {
			return fmt.Errorf("failed to save quiz: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		log.Info("plan item already has a quiz, discarding generated one",
			slog.String("plan_item_id", item.ID.String()),
			slog.String("quiz_id", existing.ID.String()))
		return existing, false, nil
	}

	log.Info("quiz stored",
		slog.String("plan_item_id", item.ID.String()),
		slog.String("quiz_id", quiz.ID.String()),
		slog.Int("questions", len(quiz.Questions)))
	return quiz, true, nil
}

// buildQuiz converts a generated quiz into a domain quiz for item.
// An untitled quiz is named after the plan item's topic.
func buildQuiz(item *domain.PlanItem, generated *generation.GeneratedQuiz) (*domain.Quiz, error) {
	questions := make([]domain.Question, 0, len(generated.Questions))
	for i, gq := range generated.Questions {
		q, err := domain.NewQuestion(i, gq.Text, gq.Options, gq.CorrectOptionLabel)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}

	title := generated.Title
	if title == "" {
		title = item.Topic + " Quiz"
	}
	return domain.NewQuiz(item.ID, title, questions)
}
