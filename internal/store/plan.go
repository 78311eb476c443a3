package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/domain"
)

// PlanStore defines the interface for plan item, subtopic and quiz persistence.
type PlanStore interface {
	// CreatePlanItem saves a plan item together with its subtopics.
	// Returns validation errors from the domain PlanItem if data is invalid.
	CreatePlanItem(ctx context.Context, item *domain.PlanItem) error

	// GetPlanItem retrieves a plan item with its subtopics (ordered by position)
	// and the header of its quiz, if any.
	// Returns ErrPlanItemNotFound if the plan item does not exist.
	GetPlanItem(ctx context.Context, id uuid.UUID) (*domain.PlanItem, error)

	// GetPlanItemByRange retrieves the plan item of a schedule by its range label.
	// When called on a transactional store the plan item row is locked until the
	// transaction ends, serializing concurrent subtopic updates on the same item.
	// Returns ErrPlanItemNotFound if no plan item matches.
	GetPlanItemByRange(ctx context.Context, scheduleID uuid.UUID, rng string) (*domain.PlanItem, error)

	// SetSubtopicCompleted updates a single subtopic's completed flag.
	// Returns ErrSubtopicNotFound if the subtopic does not exist.
	SetSubtopicCompleted(ctx context.Context, subtopicID uuid.UUID, completed bool) error

	// DeleteQuizForPlanItem removes the plan item's quiz with its questions and options.
	// Deleting when no quiz exists is not an error.
	DeleteQuizForPlanItem(ctx context.Context, planItemID uuid.UUID) error

	// CreateQuiz saves a quiz with its questions and options.
	// Returns ErrQuizExists if the plan item already has one.
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error

	// WithTx returns a new PlanStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PlanStore
}
