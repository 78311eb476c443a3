package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/domain"
)

// ScheduleStore defines the interface for schedule persistence.
type ScheduleStore interface {
	// Create saves a new schedule (without its plan items).
	Create(ctx context.Context, schedule *domain.Schedule) error

	// GetByID retrieves a schedule header by its ID.
	// Returns ErrScheduleNotFound if the schedule does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)

	// GetReminderTarget joins a schedule with its owner for reminder delivery.
	// Returns ErrScheduleNotFound if the schedule does not exist or belongs to another user.
	GetReminderTarget(ctx context.Context, userID, scheduleID uuid.UUID) (*domain.ReminderTarget, error)

	// SetReminders turns reminders of a schedule owned by userID on or off.
	// Turning them on turns them off for the user's other schedules, so run it
	// inside a transaction.
	// Returns ErrScheduleNotFound if the schedule does not exist or belongs to another user.
	SetReminders(ctx context.Context, userID, scheduleID uuid.UUID, enabled bool) error

	// WithTx returns a new ScheduleStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ScheduleStore
}

// AttemptStore provides read access to quiz attempt statistics.
type AttemptStore interface {
	// StatsForUser aggregates all completed quiz attempts of a user.
	// A user without attempts yields zero-valued stats, not an error.
	StatsForUser(ctx context.Context, userID uuid.UUID) (*domain.AttemptStats, error)
}
