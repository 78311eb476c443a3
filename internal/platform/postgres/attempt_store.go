package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/store"
)

// PostgresAttemptStore implements the store.AttemptStore interface.
type PostgresAttemptStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAttemptStore creates a new PostgreSQL implementation of the AttemptStore interface.
func NewPostgresAttemptStore(db store.DBTX, logger *slog.Logger) *PostgresAttemptStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAttemptStore{
		db:     db,
		logger: logger.With(slog.String("component", "attempt_store")),
	}
}

var _ store.AttemptStore = (*PostgresAttemptStore)(nil)

// StatsForUser implements store.AttemptStore.StatsForUser
func (s *PostgresAttemptStore) StatsForUser(ctx context.Context, userID uuid.UUID) (*domain.AttemptStats, error) {
	var stats domain.AttemptStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(score), 0), COALESCE(AVG(percentage), 0)
		FROM quiz_attempts
		WHERE user_id = $1
	`, userID).Scan(&stats.TotalAttempts, &stats.AverageScore, &stats.AveragePercentage)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to aggregate quiz attempts",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	return &stats, nil
}
