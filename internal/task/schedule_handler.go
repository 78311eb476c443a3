package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-planner/internal/generation"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
)

// PlanGenerator produces a study plan for a topic and duration.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, req generation.ScheduleRequest) (*generation.GeneratedPlan, error)
}

// ScheduleGenerationResult is the result of a generate-schedule job.
type ScheduleGenerationResult struct {
	RequestID   string                `json:"requestId"`
	Plan        []generation.PlanItem `json:"plan"`
	Topic       string                `json:"topic"`
	GeneratedAt time.Time             `json:"generatedAt"`
}

// ScheduleGenerationHandler generates study plans.
type ScheduleGenerationHandler struct {
	generator PlanGenerator
	logger    *slog.Logger
	now       func() time.Time
}

// NewScheduleGenerationHandler creates a handler for the schedule-generation family.
func NewScheduleGenerationHandler(generator PlanGenerator, log *slog.Logger) (*ScheduleGenerationHandler, error) {
	if generator == nil {
		return nil, errors.New("plan generator cannot be nil")
	}
	if log == nil {
		return nil, ErrNilLogger
	}
	return &ScheduleGenerationHandler{
		generator: generator,
		logger:    log,
		now:       time.Now,
	}, nil
}

// Handle implements Handler.
func (h *ScheduleGenerationHandler) Handle(ctx context.Context, job *Job, progress ProgressReporter) (any, error) {
	log := logger.FromContextOrDefault(ctx, h.logger)

	var p ScheduleGenerationPayload
	if err := job.DecodePayload(&p); err != nil {
		return nil, err
	}

	reportProgress(ctx, progress, 10, log)

	plan, err := h.generator.GeneratePlan(ctx, generation.ScheduleRequest{
		Topic:         p.Topic,
		DurationUnit:  p.DurationUnit,
		DurationValue: p.DurationValue,
	})
	if err != nil {
		if errors.Is(err, generation.ErrInvalidRequest) {
			return nil, Unrecoverable(err)
		}
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}

	reportProgress(ctx, progress, 80, log)
	log.InfoContext(ctx, "study plan generated",
		"request_id", p.RequestID,
		"topic", p.Topic,
		"items", len(plan.Items))
	reportProgress(ctx, progress, 100, log)

	return ScheduleGenerationResult{
		RequestID:   p.RequestID,
		Plan:        plan.Items,
		Topic:       p.Topic,
		GeneratedAt: h.now().UTC(),
	}, nil
}
