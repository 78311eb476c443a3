package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/api/shared"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
	"github.com/phrazzld/scry-planner/internal/task"
)

// QuizJobQueue enqueues on-demand quiz generation jobs.
type QuizJobQueue interface {
	AddQuizGenerationJob(ctx context.Context, p task.QuizGenerationPayload) (string, error)
}

// QuizHandler serves on-demand quiz generation.
type QuizHandler struct {
	jobs   QuizJobQueue
	status JobStatusReader
	logger *slog.Logger
}

// NewQuizHandler creates a QuizHandler.
func NewQuizHandler(jobs QuizJobQueue, status JobStatusReader, log *slog.Logger) *QuizHandler {
	if log == nil {
		log = slog.Default()
	}
	return &QuizHandler{
		jobs:   jobs,
		status: status,
		logger: log.With(slog.String("component", "quiz_handler")),
	}
}

// GenerateQuiz handles POST /api/v1/quiz/generate. Ownership and subtopic
// completion are checked by the job itself.
func (h *QuizHandler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req GenerateQuizRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	requestID := uuid.NewString()
	jobID, err := h.jobs.AddQuizGenerationJob(r.Context(), task.QuizGenerationPayload{
		PlanItemID: req.PlanItemID,
		UserID:     userID.String(),
		RequestID:  requestID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("quiz generation enqueued",
		slog.String("job_id", jobID),
		slog.String("plan_item_id", req.PlanItemID))

	shared.RespondWithJSON(w, r, http.StatusAccepted, JobAcceptedResponse{
		Message:   "Quiz generation started",
		JobID:     jobID,
		RequestID: requestID,
		StatusURL: "/api/v1/quiz/status/" + jobID,
	})
}

// QuizStatus handles GET /api/v1/quiz/status/{jobId}.
func (h *QuizHandler) QuizStatus(w http.ResponseWriter, r *http.Request) {
	respondJobStatus(w, r, h.status, task.FamilyQuizGeneration)
}
