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

// AttemptStatsReader aggregates a user's quiz attempts.
type AttemptStatsReader interface {
	StatsForUser(ctx context.Context, userID uuid.UUID) (*domain.AttemptStats, error)
}

// AnalyticsResult is the result of a calculate-analytics job.
type AnalyticsResult struct {
	UserID       string              `json:"userId"`
	Type         string              `json:"type"`
	Stats        domain.AttemptStats `json:"stats"`
	CalculatedAt time.Time           `json:"calculatedAt"`
}

// AnalyticsHandler computes per-user quiz statistics.
type AnalyticsHandler struct {
	stats  AttemptStatsReader
	logger *slog.Logger
	now    func() time.Time
}

// NewAnalyticsHandler creates a handler for the analytics family.
func NewAnalyticsHandler(stats AttemptStatsReader, log *slog.Logger) (*AnalyticsHandler, error) {
	if stats == nil {
		return nil, errors.New("attempt stats reader cannot be nil")
	}
	if log == nil {
		return nil, ErrNilLogger
	}
	return &AnalyticsHandler{stats: stats, logger: log, now: time.Now}, nil
}

// Handle implements Handler.
func (h *AnalyticsHandler) Handle(ctx context.Context, job *Job, progress ProgressReporter) (any, error) {
	log := logger.FromContextOrDefault(ctx, h.logger)

	var p AnalyticsPayload
	if err := job.DecodePayload(&p); err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		return nil, Unrecoverable(fmt.Errorf("%w: invalid user id: %v", ErrInvalidPayload, err))
	}

	stats, err := h.stats.StatsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate analytics: %w", err)
	}

	log.DebugContext(ctx, "analytics calculated",
		"user_id", userID,
		"type", p.Type,
		"total_attempts", stats.TotalAttempts)

	return AnalyticsResult{
		UserID:       p.UserID,
		Type:         p.Type,
		Stats:        *stats,
		CalculatedAt: h.now().UTC(),
	}, nil
}
