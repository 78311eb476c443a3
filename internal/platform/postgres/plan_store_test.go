package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestNewPostgresPlanStore_PanicsOnNilDB(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewPostgresPlanStore(nil, nil) })
}

func TestPostgresPlanStore_CreatePlanItem(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresPlanStore(db, nil)

	item, err := domain.NewPlanItem(uuid.New(), "Week 1", "Go basics", []string{"Types", "Slices"})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO plan_items")).
		WithArgs(item.ID, item.ScheduleID, "Week 1", "Go basics").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subtopics")).
		WithArgs(item.Subtopics[0].ID, item.ID, 0, "Types", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subtopics")).
		WithArgs(item.Subtopics[1].ID, item.ID, 1, "Slices", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.CreatePlanItem(context.Background(), item))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlanStore_CreatePlanItem_Invalid(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresPlanStore(db, nil)

	err := s.CreatePlanItem(context.Background(), &domain.PlanItem{ID: uuid.New(), ScheduleID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlanStore_CreatePlanItem_UnknownSchedule(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresPlanStore(db, nil)

	item, err := domain.NewPlanItem(uuid.New(), "Week 1", "Go", []string{"Types"})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO plan_items")).
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode})

	err = s.CreatePlanItem(context.Background(), item)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlanStore_GetPlanItemByRange(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresPlanStore(db, nil)

	scheduleID := uuid.New()
	itemID := uuid.New()
	quizID := uuid.New()
	sub1, sub2 := uuid.New(), uuid.New()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM plan_items")+"(?s).*FOR UPDATE").
		WithArgs(scheduleID, "Week 2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "schedule_id", "range_label", "topic"}).
			AddRow(itemID.String(), scheduleID.String(), "Week 2", "Concurrency"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM subtopics")).
		WithArgs(itemID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_item_id", "position", "title", "completed"}).
			AddRow(sub1.String(), itemID.String(), 0, "Goroutines", true).
			AddRow(sub2.String(), itemID.String(), 1, "Channels", false))
	mock.ExpectQuery(regexp.QuoteMeta("FROM quizzes")).
		WithArgs(itemID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_item_id", "title", "created_at"}).
			AddRow(quizID.String(), itemID.String(), "Concurrency Quiz", created))

	item, err := s.GetPlanItemByRange(context.Background(), scheduleID, "Week 2")
	require.NoError(t, err)

	assert.Equal(t, itemID, item.ID)
	assert.Equal(t, "Concurrency", item.Topic)
	require.Len(t, item.Subtopics, 2)
	assert.True(t, item.Subtopics[0].Completed)
	assert.Equal(t, "Channels", item.Subtopics[1].Title)
	require.NotNil(t, item.Quiz)
	assert.Equal(t, quizID, item.Quiz.ID)
	assert.False(t, item.AllCompleted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlanStore_GetPlanItem_WithoutQuiz(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresPlanStore(db, nil)

	itemID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM plan_items")).
		WithArgs(itemID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "schedule_id", "range_label", "topic"}).
			AddRow(itemID.String(), uuid.NewString(), "Week 1", "Go"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM subtopics")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_item_id", "position", "title", "completed"}).
			AddRow(uuid.NewString(), itemID.String(), 0, "Types", true))
	mock.ExpectQuery(regexp.QuoteMeta("FROM quizzes")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_item_id", "title", "created_at"}))

	item, err := s.GetPlanItem(context.Background(), itemID)
	require.NoError(t, err)
	assert.Nil(t, item.Quiz)
	assert.True(t, item.AllCompleted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlanStore_GetPlanItem_NotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresPlanStore(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM plan_items")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "schedule_id", "range_label", "topic"}))

	_, err := s.GetPlanItem(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrPlanItemNotFound)
	assert.True(t, store.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlanStore_SetSubtopicCompleted(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresPlanStore(db, nil)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE subtopics")).
		WithArgs(id, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subtopics")).
		WithArgs(id, false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.SetSubtopicCompleted(context.Background(), id, true))
	err := s.SetSubtopicCompleted(context.Background(), id, false)
	assert.ErrorIs(t, err, store.ErrSubtopicNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlanStore_CreateQuiz(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresPlanStore(db, nil)

	q, err := domain.NewQuestion(0, "What is a goroutine?", []string{"A thread", "A lightweight thread", "A process", "A channel"}, "B")
	require.NoError(t, err)
	quiz, err := domain.NewQuiz(uuid.New(), "Go Quiz", []domain.Question{q})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quizzes")).
		WithArgs(quiz.ID, quiz.PlanItemID, "Go Quiz", quiz.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO questions")).
		WithArgs(q.ID, quiz.ID, 0, q.Text, "B").
		WillReturnResult(sqlmock.NewResult(0, 1))
	for _, opt := range q.Options {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO options")).
			WithArgs(opt.ID, q.ID, opt.Label, opt.Text).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	require.NoError(t, s.CreateQuiz(context.Background(), quiz))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlanStore_CreateQuiz_Exists(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresPlanStore(db, nil)

	q, err := domain.NewQuestion(0, "Q?", []string{"a", "b", "c", "d"}, "A")
	require.NoError(t, err)
	quiz, err := domain.NewQuiz(uuid.New(), "", []domain.Question{q})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quizzes")).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "quizzes_plan_item_id_key"})

	err = s.CreateQuiz(context.Background(), quiz)
	assert.ErrorIs(t, err, store.ErrQuizExists)
	assert.True(t, store.IsDuplicateError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlanStore_DeleteQuizForPlanItem(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresPlanStore(db, nil)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM quizzes")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.DeleteQuizForPlanItem(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlanStore_WithTx(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresPlanStore(db, nil)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM quizzes")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		require.NoError(t, s.WithTx(tx).DeleteQuizForPlanItem(ctx, id))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
