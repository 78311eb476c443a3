package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/api/shared"
	"github.com/phrazzld/scry-planner/internal/service"
	"github.com/phrazzld/scry-planner/internal/task"
	"github.com/stretchr/testify/require"
)

type fakeJobQueue struct {
	AddScheduleGenerationJobFn func(ctx context.Context, p task.ScheduleGenerationPayload) (string, error)
	AddQuizGenerationJobFn     func(ctx context.Context, p task.QuizGenerationPayload) (string, error)
}

func (f *fakeJobQueue) AddScheduleGenerationJob(ctx context.Context, p task.ScheduleGenerationPayload) (string, error) {
	return f.AddScheduleGenerationJobFn(ctx, p)
}

func (f *fakeJobQueue) AddQuizGenerationJob(ctx context.Context, p task.QuizGenerationPayload) (string, error) {
	return f.AddQuizGenerationJobFn(ctx, p)
}

type fakeStatusReader struct {
	GetStatusFn func(ctx context.Context, family task.Family, id string) (*task.JobStatus, error)
}

func (f *fakeStatusReader) GetStatus(ctx context.Context, family task.Family, id string) (*task.JobStatus, error) {
	return f.GetStatusFn(ctx, family, id)
}

type fakeScheduleWriter struct {
	CreateScheduleFn  func(ctx context.Context, in service.CreateScheduleInput) (*service.CreateScheduleResult, error)
	ToggleRemindersFn func(ctx context.Context, in service.ToggleRemindersInput) (*service.ToggleRemindersResult, error)
}

func (f *fakeScheduleWriter) CreateSchedule(
	ctx context.Context,
	in service.CreateScheduleInput,
) (*service.CreateScheduleResult, error) {
	return f.CreateScheduleFn(ctx, in)
}

func (f *fakeScheduleWriter) ToggleReminders(
	ctx context.Context,
	in service.ToggleRemindersInput,
) (*service.ToggleRemindersResult, error) {
	return f.ToggleRemindersFn(ctx, in)
}

type fakeSubtopicUpdater struct {
	UpdateSubtopicFn func(ctx context.Context, upd service.SubtopicUpdate) (*service.SubtopicUpdateResult, error)
}

func (f *fakeSubtopicUpdater) UpdateSubtopic(
	ctx context.Context,
	upd service.SubtopicUpdate,
) (*service.SubtopicUpdateResult, error) {
	return f.UpdateSubtopicFn(ctx, upd)
}

// serve routes a single request through a chi router so URL parameters
// resolve, authenticating it as userID unless userID is uuid.Nil.
func serve(
	t *testing.T,
	method, pattern, target string,
	body any,
	userID uuid.UUID,
	handler http.HandlerFunc,
) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, target, &buf)
	ctx := shared.WithTraceID(req.Context(), "test-trace-id")
	if userID != uuid.Nil {
		ctx = shared.WithUserID(ctx, userID)
	}
	req = req.WithContext(ctx)

	r := chi.NewRouter()
	r.MethodFunc(method, pattern, handler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}
