package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
	"github.com/phrazzld/scry-planner/internal/store"
)

// PostgresPlanStore implements the store.PlanStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPlanStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPlanStore creates a new PostgreSQL implementation of the PlanStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresPlanStore(db store.DBTX, logger *slog.Logger) *PostgresPlanStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPlanStore{
		db:     db,
		logger: logger.With(slog.String("component", "plan_store")),
	}
}

// Ensure PostgresPlanStore implements store.PlanStore interface
var _ store.PlanStore = (*PostgresPlanStore)(nil)

// WithTx implements store.PlanStore.WithTx
func (s *PostgresPlanStore) WithTx(tx *sql.Tx) store.PlanStore {
	return &PostgresPlanStore{db: tx, logger: s.logger}
}

// CreatePlanItem implements store.PlanStore.CreatePlanItem
// It inserts the plan item and each of its subtopics. Callers wanting
// atomicity run it on a transactional store.
func (s *PostgresPlanStore) CreatePlanItem(ctx context.Context, item *domain.PlanItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("plan item validation failed during create",
			slog.String("error", err.Error()),
			slog.String("plan_item_id", item.ID.String()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plan_items (id, schedule_id, range_label, topic)
		VALUES ($1, $2, $3, $4)
	`, item.ID, item.ScheduleID, item.Range, item.Topic)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: schedule with ID %s not found", store.ErrInvalidEntity, item.ScheduleID)
		}
		log.Error("failed to create plan item",
			slog.String("error", err.Error()),
			slog.String("plan_item_id", item.ID.String()))
		return MapError(err)
	}

	for _, sub := range item.Subtopics {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO subtopics (id, plan_item_id, position, title, completed)
			VALUES ($1, $2, $3, $4, $5)
		`, sub.ID, item.ID, sub.Position, sub.Title, sub.Completed)
		if err != nil {
			log.Error("failed to create subtopic",
				slog.String("error", err.Error()),
				slog.String("plan_item_id", item.ID.String()),
				slog.Int("position", sub.Position))
			return MapError(err)
		}
	}

	log.Debug("plan item created",
		slog.String("plan_item_id", item.ID.String()),
		slog.Int("subtopics", len(item.Subtopics)))
	return nil
}

// GetPlanItem implements store.PlanStore.GetPlanItem
func (s *PostgresPlanStore) GetPlanItem(ctx context.Context, id uuid.UUID) (*domain.PlanItem, error) {
	return s.getPlanItem(ctx, `
		SELECT id, schedule_id, range_label, topic
		FROM plan_items
		WHERE id = $1
	`, id)
}

// GetPlanItemByRange implements store.PlanStore.GetPlanItemByRange
func (s *PostgresPlanStore) GetPlanItemByRange(
	ctx context.Context,
	scheduleID uuid.UUID,
	rng string,
) (*domain.PlanItem, error) {
	return s.getPlanItem(ctx, `
		SELECT id, schedule_id, range_label, topic
		FROM plan_items
		WHERE schedule_id = $1 AND range_label = $2
		FOR UPDATE
	`, scheduleID, rng)
}

func (s *PostgresPlanStore) getPlanItem(ctx context.Context, query string, args ...any) (*domain.PlanItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var item domain.PlanItem
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&item.ID,
		&item.ScheduleID,
		&item.Range,
		&item.Topic,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPlanItemNotFound
		}
		log.Error("failed to get plan item", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	subtopics, err := s.listSubtopics(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	item.Subtopics = subtopics

	quiz, err := s.quizHeader(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	item.Quiz = quiz

	return &item, nil
}

func (s *PostgresPlanStore) listSubtopics(ctx context.Context, planItemID uuid.UUID) ([]domain.Subtopic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_item_id, position, title, completed
		FROM subtopics
		WHERE plan_item_id = $1
		ORDER BY position
	`, planItemID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var subtopics []domain.Subtopic
	for rows.Next() {
		var sub domain.Subtopic
		if err := rows.Scan(&sub.ID, &sub.PlanItemID, &sub.Position, &sub.Title, &sub.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan subtopic: %w", err)
		}
		subtopics = append(subtopics, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return subtopics, nil
}

// quizHeader loads the quiz row of a plan item without its questions.
func (s *PostgresPlanStore) quizHeader(ctx context.Context, planItemID uuid.UUID) (*domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.db.QueryRowContext(ctx, `
		SELECT id, plan_item_id, title, created_at
		FROM quizzes
		WHERE plan_item_id = $1
	`, planItemID).Scan(&quiz.ID, &quiz.PlanItemID, &quiz.Title, &quiz.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, MapError(err)
	}
	return &quiz, nil
}

// SetSubtopicCompleted implements store.PlanStore.SetSubtopicCompleted
func (s *PostgresPlanStore) SetSubtopicCompleted(ctx context.Context, subtopicID uuid.UUID, completed bool) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE subtopics
		SET completed = $2
		WHERE id = $1
	`, subtopicID, completed)
	if err != nil {
		log.Error("failed to update subtopic",
			slog.String("error", err.Error()),
			slog.String("subtopic_id", subtopicID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrSubtopicNotFound); err != nil {
		return err
	}

	log.Debug("subtopic updated",
		slog.String("subtopic_id", subtopicID.String()),
		slog.Bool("completed", completed))
	return nil
}

// DeleteQuizForPlanItem implements store.PlanStore.DeleteQuizForPlanItem
// Questions and options are removed by ON DELETE CASCADE.
func (s *PostgresPlanStore) DeleteQuizForPlanItem(ctx context.Context, planItemID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE plan_item_id = $1`, planItemID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete quiz",
			slog.String("error", err.Error()),
			slog.String("plan_item_id", planItemID.String()))
		return MapError(err)
	}
	return nil
}

// CreateQuiz implements store.PlanStore.CreateQuiz
func (s *PostgresPlanStore) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quizzes (id, plan_item_id, title, created_at)
		VALUES ($1, $2, $3, $4)
	`, quiz.ID, quiz.PlanItemID, quiz.Title, quiz.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrQuizExists, err)
		}
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: plan item with ID %s not found", store.ErrInvalidEntity, quiz.PlanItemID)
		}
		log.Error("failed to create quiz",
			slog.String("error", err.Error()),
			slog.String("plan_item_id", quiz.PlanItemID.String()))
		return MapError(err)
	}

	for _, q := range quiz.Questions {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO questions (id, quiz_id, position, text, correct_option_label)
			VALUES ($1, $2, $3, $4, $5)
		`, q.ID, quiz.ID, q.Position, q.Text, q.CorrectOptionLabel)
		if err != nil {
			return MapError(err)
		}

		for _, opt := range q.Options {
			_, err := s.db.ExecContext(ctx, `
				INSERT INTO options (id, question_id, label, text)
				VALUES ($1, $2, $3, $4)
			`, opt.ID, q.ID, opt.Label, opt.Text)
			if err != nil {
				return MapError(err)
			}
		}
	}

	log.Info("quiz created",
		slog.String("quiz_id", quiz.ID.String()),
		slog.String("plan_item_id", quiz.PlanItemID.String()),
		slog.Int("questions", len(quiz.Questions)))
	return nil
}
