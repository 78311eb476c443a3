package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/generation"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
	"github.com/phrazzld/scry-planner/internal/redact"
	"github.com/phrazzld/scry-planner/internal/store"
	"github.com/phrazzld/scry-planner/internal/task"
)

// ReminderScheduler enqueues study reminders.
type ReminderScheduler interface {
	AddReminderJob(ctx context.Context, p task.ReminderPayload, scheduledTime time.Time) (string, error)
}

// CreateScheduleInput is a generated plan to be saved for a user.
type CreateScheduleInput struct {
	UserID uuid.UUID
	Title  string
	Plan   []generation.PlanItem
	// RemindAt schedules a study reminder when set.
	RemindAt *time.Time
}

// CreateScheduleResult is the saved schedule and the reminder job, if any.
type CreateScheduleResult struct {
	Schedule      *domain.Schedule
	ReminderJobID string
}

// ToggleRemindersInput turns reminders of a user's schedule on or off.
type ToggleRemindersInput struct {
	UserID     uuid.UUID
	ScheduleID uuid.UUID
	Enabled    bool
	// StartAt schedules a study reminder when reminders are turned on.
	StartAt *time.Time
}

// ToggleRemindersResult is the updated schedule and the reminder job, if any.
type ToggleRemindersResult struct {
	Schedule      *domain.Schedule
	ReminderJobID string
}

// ScheduleService saves generated plans and manages their reminders.
type ScheduleService struct {
	db        *sql.DB
	schedules store.ScheduleStore
	plans     store.PlanStore
	reminders ReminderScheduler
	logger    *slog.Logger
}

// NewScheduleService creates a ScheduleService. reminders may be nil, in
// which case RemindAt and StartAt are ignored.
func NewScheduleService(
	db *sql.DB,
	schedules store.ScheduleStore,
	plans store.PlanStore,
	reminders ReminderScheduler,
	log *slog.Logger,
) (*ScheduleService, error) {
	if db == nil || schedules == nil || plans == nil {
		return nil, &ServiceError{
			Operation: "create_service",
			Message:   "db, schedule store and plan store are required",
		}
	}
	if log == nil {
		log = slog.Default()
	}
	return &ScheduleService{
		db:        db,
		schedules: schedules,
		plans:     plans,
		reminders: reminders,
		logger:    log.With(slog.String("component", "schedule_service")),
	}, nil
}

// CreateSchedule saves the schedule with all plan items and subtopics in one
// transaction. An empty title becomes "<first topic> Plan". With RemindAt set
// the schedule becomes the user's reminder schedule.
func (s *ScheduleService) CreateSchedule(ctx context.Context, in CreateScheduleInput) (*CreateScheduleResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(in.Plan) == 0 {
		return nil, ErrEmptyPlan
	}

	schedule, err := domain.NewSchedule(in.UserID, in.Title, in.Plan[0].Topic)
	if err != nil {
		return nil, NewServiceError("create_schedule", "invalid schedule", err)
	}

	items := make([]*domain.PlanItem, 0, len(in.Plan))
	for i, p := range in.Plan {
		titles := make([]string, len(p.Subtopics))
		for j, sub := range p.Subtopics {
			titles[j] = sub.Title
		}
		item, err := domain.NewPlanItem(schedule.ID, p.Range, p.Topic, titles)
		if err != nil {
			return nil, NewServiceError("create_schedule", fmt.Sprintf("invalid plan item %d", i+1), err)
		}
		for j, sub := range p.Subtopics {
			item.Subtopics[j].Completed = sub.Completed
		}
		items = append(items, item)
	}

	remind := in.RemindAt != nil && s.reminders != nil
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		schedules := s.schedules.WithTx(tx)
		if err := schedules.Create(ctx, schedule); err != nil {
			return err
		}
		plans := s.plans.WithTx(tx)
		for _, item := range items {
			if err := plans.CreatePlanItem(ctx, item); err != nil {
				return err
			}
		}
		if remind {
			return schedules.SetReminders(ctx, in.UserID, schedule.ID, true)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to save schedule",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", in.UserID.String()))
		return nil, NewServiceError("create_schedule", "failed to save schedule", err)
	}
	schedule.PlanItems = items
	schedule.RemindersEnabled = remind

	log.Info("schedule created",
		slog.String("schedule_id", schedule.ID.String()),
		slog.Int("plan_items", len(items)))

	result := &CreateScheduleResult{Schedule: schedule}
	if remind {
		result.ReminderJobID = s.scheduleReminder(ctx, schedule, *in.RemindAt)
	}
	return result, nil
}

// ToggleReminders turns reminders of a schedule on or off. Only one schedule
// per user has reminders on, so turning them on turns them off everywhere
// else. A reminder is scheduled when they are turned on with StartAt set.
func (s *ScheduleService) ToggleReminders(ctx context.Context, in ToggleRemindersInput) (*ToggleRemindersResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("schedule_id", in.ScheduleID.String()))

	var schedule *domain.Schedule
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		schedules := s.schedules.WithTx(tx)
		if err := schedules.SetReminders(ctx, in.UserID, in.ScheduleID, in.Enabled); err != nil {
			return err
		}
		var err error
		schedule, err = schedules.GetByID(ctx, in.ScheduleID)
		return err
	})
	if err != nil {
		if !store.IsNotFoundError(err) {
			log.Error("failed to toggle reminders", slog.String("error", redact.Error(err)))
		}
		return nil, NewServiceError("toggle_reminders", "failed to update reminders", err)
	}

	log.Info("reminders toggled", slog.Bool("enabled", in.Enabled))

	result := &ToggleRemindersResult{Schedule: schedule}
	if in.Enabled && in.StartAt != nil && s.reminders != nil {
		result.ReminderJobID = s.scheduleReminder(ctx, schedule, *in.StartAt)
	}
	return result, nil
}

// scheduleReminder enqueues a reminder for schedule and returns its job id,
// or "" when enqueueing failed. The schedule stays saved either way.
func (s *ScheduleService) scheduleReminder(ctx context.Context, schedule *domain.Schedule, at time.Time) string {
	jobID, err := s.reminders.AddReminderJob(ctx, task.ReminderPayload{
		UserID:     schedule.UserID.String(),
		ScheduleID: schedule.ID.String(),
	}, at)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to schedule reminder",
			slog.String("error", redact.Error(err)),
			slog.String("schedule_id", schedule.ID.String()))
		return ""
	}
	return jobID
}
