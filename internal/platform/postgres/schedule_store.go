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

// PostgresScheduleStore implements the store.ScheduleStore interface.
type PostgresScheduleStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresScheduleStore creates a new PostgreSQL implementation of the ScheduleStore interface.
func NewPostgresScheduleStore(db store.DBTX, logger *slog.Logger) *PostgresScheduleStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresScheduleStore{
		db:     db,
		logger: logger.With(slog.String("component", "schedule_store")),
	}
}

var _ store.ScheduleStore = (*PostgresScheduleStore)(nil)

// WithTx implements store.ScheduleStore.WithTx
func (s *PostgresScheduleStore) WithTx(tx *sql.Tx) store.ScheduleStore {
	return &PostgresScheduleStore{db: tx, logger: s.logger}
}

// Create implements store.ScheduleStore.Create
func (s *PostgresScheduleStore) Create(ctx context.Context, schedule *domain.Schedule) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, user_id, title, reminders_enabled, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, schedule.ID, schedule.UserID, schedule.Title, schedule.RemindersEnabled, schedule.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: user with ID %s not found", store.ErrInvalidEntity, schedule.UserID)
		}
		log.Error("failed to create schedule",
			slog.String("error", err.Error()),
			slog.String("schedule_id", schedule.ID.String()))
		return MapError(err)
	}

	log.Info("schedule created",
		slog.String("schedule_id", schedule.ID.String()),
		slog.String("user_id", schedule.UserID.String()))
	return nil
}

// GetByID implements store.ScheduleStore.GetByID
func (s *PostgresScheduleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	var schedule domain.Schedule
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, reminders_enabled, created_at
		FROM schedules
		WHERE id = $1
	`, id).Scan(
		&schedule.ID,
		&schedule.UserID,
		&schedule.Title,
		&schedule.RemindersEnabled,
		&schedule.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrScheduleNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get schedule",
			slog.String("error", err.Error()),
			slog.String("schedule_id", id.String()))
		return nil, MapError(err)
	}
	return &schedule, nil
}

// GetReminderTarget implements store.ScheduleStore.GetReminderTarget
func (s *PostgresScheduleStore) GetReminderTarget(
	ctx context.Context,
	userID, scheduleID uuid.UUID,
) (*domain.ReminderTarget, error) {
	var target domain.ReminderTarget
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.username, s.id, s.title, s.reminders_enabled
		FROM schedules s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1 AND s.user_id = $2
	`, scheduleID, userID).Scan(
		&target.UserID,
		&target.Email,
		&target.Username,
		&target.ScheduleID,
		&target.ScheduleTitle,
		&target.RemindersEnabled,
	)
	if err != nil {
		return nil, MapErrorFor(err, store.ErrScheduleNotFound)
	}
	return &target, nil
}

// SetReminders implements store.ScheduleStore.SetReminders
func (s *PostgresScheduleStore) SetReminders(
	ctx context.Context,
	userID, scheduleID uuid.UUID,
	enabled bool,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("schedule_id", scheduleID.String()),
		slog.String("user_id", userID.String()))

	// At most one schedule per user has reminders on; the others are switched
	// off first to satisfy idx_schedules_one_reminder_per_user.
	if enabled {
		_, err := s.db.ExecContext(ctx, `
			UPDATE schedules
			SET reminders_enabled = FALSE
			WHERE user_id = $1 AND id <> $2 AND reminders_enabled
		`, userID, scheduleID)
		if err != nil {
			log.Error("failed to disable reminders of other schedules", slog.String("error", err.Error()))
			return MapError(err)
		}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE schedules
		SET reminders_enabled = $3
		WHERE id = $1 AND user_id = $2
	`, scheduleID, userID, enabled)
	if err != nil {
		log.Error("failed to set schedule reminders", slog.String("error", err.Error()))
		return MapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rows == 0 {
		return store.ErrScheduleNotFound
	}

	log.Info("schedule reminders updated", slog.Bool("enabled", enabled))
	return nil
}
