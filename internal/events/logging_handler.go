package events

import (
	"context"
	"log/slog"

	"github.com/phrazzld/scry-planner/internal/redact"
)

// LoggingHandler writes each job event as a structured log line. Failed jobs
// are logged at warn level, everything else at info.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger.With("component", "job_events")}
}

// HandleEvent implements EventHandler.
func (h *LoggingHandler) HandleEvent(ctx context.Context, event *JobEvent) error {
	level := slog.LevelInfo
	if event.Type == TypeJobFailed {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("event_id", event.ID.String()),
		slog.String("job_id", event.JobID),
		slog.String("queue", event.Queue),
		slog.String("job_name", event.Name),
		slog.Int("attempts_made", event.AttemptsMade),
		slog.Int64("duration_ms", event.DurationMS),
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", redact.String(event.Error)))
	}

	h.logger.LogAttrs(ctx, level, event.Type, attrs...)
	return nil
}
