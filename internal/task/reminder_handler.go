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
	"github.com/phrazzld/scry-planner/internal/store"
)

// ReminderTargetLookup resolves the recipient and schedule of a reminder.
type ReminderTargetLookup interface {
	GetReminderTarget(ctx context.Context, userID, scheduleID uuid.UUID) (*domain.ReminderTarget, error)
}

// Reminder is a study reminder ready for delivery.
type Reminder struct {
	UserID        uuid.UUID `json:"userId"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	ScheduleID    uuid.UUID `json:"scheduleId"`
	ScheduleTitle string    `json:"scheduleTitle"`
	Message       string    `json:"message"`
}

// Notifier delivers study reminders.
type Notifier interface {
	SendReminder(ctx context.Context, reminder Reminder) error
}

// ReminderResult is the result of a send-reminder job.
type ReminderResult struct {
	Sent       bool      `json:"sent"`
	ScheduleID string    `json:"scheduleId"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ReminderHandler delivers scheduled study reminders.
type ReminderHandler struct {
	targets  ReminderTargetLookup
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewReminderHandler creates a handler for the reminders family.
func NewReminderHandler(targets ReminderTargetLookup, notifier Notifier, log *slog.Logger) (*ReminderHandler, error) {
	if targets == nil {
		return nil, errors.New("reminder target lookup cannot be nil")
	}
	if notifier == nil {
		return nil, errors.New("notifier cannot be nil")
	}
	if log == nil {
		return nil, ErrNilLogger
	}
	return &ReminderHandler{
		targets:  targets,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
	}, nil
}

// Handle implements Handler.
func (h *ReminderHandler) Handle(ctx context.Context, job *Job, progress ProgressReporter) (any, error) {
	log := logger.FromContextOrDefault(ctx, h.logger)

	var p ReminderPayload
	if err := job.DecodePayload(&p); err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		return nil, Unrecoverable(fmt.Errorf("%w: invalid user id: %v", ErrInvalidPayload, err))
	}
	scheduleID, err := uuid.Parse(p.ScheduleID)
	if err != nil {
		return nil, Unrecoverable(fmt.Errorf("%w: invalid schedule id: %v", ErrInvalidPayload, err))
	}

	target, err := h.targets.GetReminderTarget(ctx, userID, scheduleID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, Unrecoverable(fmt.Errorf("reminder target not found: %w", err))
		}
		return nil, fmt.Errorf("failed to load reminder target: %w", err)
	}

	if !target.RemindersEnabled {
		log.InfoContext(ctx, "reminders disabled for schedule, skipping",
			"schedule_id", scheduleID)
		return ReminderResult{
			Sent:       false,
			ScheduleID: p.ScheduleID,
			Reason:     "reminders disabled",
			Timestamp:  h.now().UTC(),
		}, nil
	}

	message := p.Message
	if message == "" {
		message = fmt.Sprintf("Time to continue studying %q.", target.ScheduleTitle)
	}

	err = h.notifier.SendReminder(ctx, Reminder{
		UserID:        target.UserID,
		Email:         target.Email,
		Username:      target.Username,
		ScheduleID:    target.ScheduleID,
		ScheduleTitle: target.ScheduleTitle,
		Message:       message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send reminder: %w", err)
	}

	log.InfoContext(ctx, "reminder sent", "schedule_id", scheduleID)
	return ReminderResult{
		Sent:       true,
		ScheduleID: p.ScheduleID,
		Timestamp:  h.now().UTC(),
	}, nil
}
