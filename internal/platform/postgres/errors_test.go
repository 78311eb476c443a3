package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-planner/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		expectedErr error
		expectedMsg string
	}{
		{name: "nil_error", err: nil},
		{name: "sql_no_rows", err: sql.ErrNoRows, expectedErr: store.ErrNotFound},
		{
			name:        "unique_violation",
			err:         &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_email_key"},
			expectedErr: store.ErrDuplicate,
		},
		{
			name:        "foreign_key_violation",
			err:         &pgconn.PgError{Code: foreignKeyViolationCode},
			expectedErr: store.ErrInvalidEntity,
			expectedMsg: "foreign key violation",
		},
		{
			name:        "check_constraint_violation",
			err:         &pgconn.PgError{Code: checkViolationCode, ConstraintName: "questions_correct_option_label_check"},
			expectedErr: store.ErrInvalidEntity,
			expectedMsg: "check constraint violation",
		},
		{
			name:        "not_null_violation",
			err:         &pgconn.PgError{Code: notNullViolationCode, ColumnName: "title"},
			expectedErr: store.ErrInvalidEntity,
			expectedMsg: "not null violation",
		},
		{name: "generic_error", err: errors.New("connection refused"), expectedMsg: "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			if tt.expectedErr != nil {
				assert.ErrorIs(t, got, tt.expectedErr)
			}
			if tt.expectedMsg != "" {
				assert.Contains(t, got.Error(), tt.expectedMsg)
			}
		})
	}
}

func TestMapErrorFor(t *testing.T) {
	t.Parallel()
	assert.ErrorIs(t, MapErrorFor(sql.ErrNoRows, store.ErrScheduleNotFound), store.ErrScheduleNotFound)
}

func TestViolationHelpers(t *testing.T) {
	t.Parallel()
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("unique")))
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: foreignKeyViolationCode}))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: uniqueViolationCode}))
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.Error(t, CheckRowsAffected(nil, nil))
	assert.NoError(t, CheckRowsAffected(sqlmock.NewResult(0, 1), nil))
	assert.ErrorIs(t, CheckRowsAffected(sqlmock.NewResult(0, 0), nil), store.ErrNotFound)
	assert.ErrorIs(t,
		CheckRowsAffected(sqlmock.NewResult(0, 0), store.ErrSubtopicNotFound),
		store.ErrSubtopicNotFound)

	failing := sqlmock.NewErrorResult(errors.New("driver gone"))
	assert.ErrorContains(t, CheckRowsAffected(failing, nil), "failed to get rows affected")
}
