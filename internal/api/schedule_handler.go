package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/api/shared"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
	"github.com/phrazzld/scry-planner/internal/service"
	"github.com/phrazzld/scry-planner/internal/task"
)

// ScheduleJobQueue enqueues schedule generation jobs.
type ScheduleJobQueue interface {
	AddScheduleGenerationJob(ctx context.Context, p task.ScheduleGenerationPayload) (string, error)
}

// JobStatusReader reads job snapshots.
type JobStatusReader interface {
	GetStatus(ctx context.Context, family task.Family, id string) (*task.JobStatus, error)
}

// ScheduleWriter saves generated plans and toggles their reminders.
type ScheduleWriter interface {
	CreateSchedule(ctx context.Context, in service.CreateScheduleInput) (*service.CreateScheduleResult, error)
	ToggleReminders(ctx context.Context, in service.ToggleRemindersInput) (*service.ToggleRemindersResult, error)
}

// ScheduleHandler serves schedule generation and persistence.
type ScheduleHandler struct {
	jobs      ScheduleJobQueue
	status    JobStatusReader
	schedules ScheduleWriter
	logger    *slog.Logger
}

// NewScheduleHandler creates a ScheduleHandler.
func NewScheduleHandler(
	jobs ScheduleJobQueue,
	status JobStatusReader,
	schedules ScheduleWriter,
	log *slog.Logger,
) *ScheduleHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ScheduleHandler{
		jobs:      jobs,
		status:    status,
		schedules: schedules,
		logger:    log.With(slog.String("component", "schedule_handler")),
	}
}

// GenerateSchedule handles POST /api/v1/schedules/generate.
func (h *ScheduleHandler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req GenerateScheduleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	requestID := uuid.NewString()
	jobID, err := h.jobs.AddScheduleGenerationJob(r.Context(), task.ScheduleGenerationPayload{
		Topic:         req.Topic,
		DurationUnit:  req.DurationUnit,
		DurationValue: req.DurationValue,
		UserID:        userID.String(),
		RequestID:     requestID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("schedule generation enqueued",
		slog.String("job_id", jobID),
		slog.String("request_id", requestID))

	shared.RespondWithJSON(w, r, http.StatusAccepted, JobAcceptedResponse{
		Message:   "Schedule generation started",
		JobID:     jobID,
		RequestID: requestID,
		StatusURL: "/api/v1/schedules/generation/status/" + jobID,
	})
}

// GenerationStatus handles GET /api/v1/schedules/generation/status/{jobId}.
func (h *ScheduleHandler) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	respondJobStatus(w, r, h.status, task.FamilyScheduleGeneration)
}

// CreateSchedule handles POST /api/v1/schedules.
func (h *ScheduleHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req CreateScheduleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.schedules.CreateSchedule(r.Context(), service.CreateScheduleInput{
		UserID:   userID,
		Title:    req.Title,
		Plan:     req.Plan,
		RemindAt: req.RemindAt,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, CreateScheduleResponse{
		Schedule:      result.Schedule,
		ReminderJobID: result.ReminderJobID,
	})
}

// ToggleReminders handles PATCH /api/v1/schedules/{scheduleId}/reminders.
func (h *ScheduleHandler) ToggleReminders(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	scheduleID, err := getPathScheduleID(r)
	if err != nil {
		HandleAPIError(w, r, err, "Invalid schedule ID")
		return
	}

	var req ToggleRemindersRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.schedules.ToggleReminders(r.Context(), service.ToggleRemindersInput{
		UserID:     userID,
		ScheduleID: scheduleID,
		Enabled:    *req.ToggleInput,
		StartAt:    req.StartDate,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ToggleRemindersResponse{
		Schedule:      result.Schedule,
		ReminderJobID: result.ReminderJobID,
	})
}

// respondJobStatus writes the status of the job named by the {jobId} path
// parameter. Jobs enqueued for another user are reported as not found.
func respondJobStatus(w http.ResponseWriter, r *http.Request, status JobStatusReader, family task.Family) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	jobID, err := getPathJobID(r)
	if err != nil {
		HandleAPIError(w, r, err, "Invalid job ID")
		return
	}

	st, err := status.GetStatus(r.Context(), family, jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if owner := jobOwner(st); owner != "" && owner != userID.String() {
		logger.FromContextOrDefault(r.Context(), slog.Default()).Warn("job status requested by non-owner",
			slog.String("job_id", jobID),
			slog.String("queue", string(family)))
		HandleAPIError(w, r, task.ErrJobNotFound, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, st)
}

// jobOwner returns the userId recorded in a job payload, or "".
func jobOwner(st *task.JobStatus) string {
	var payload struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(st.Data, &payload); err != nil {
		return ""
	}
	return payload.UserID
}
