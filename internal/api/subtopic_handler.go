package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/api/shared"
	"github.com/phrazzld/scry-planner/internal/service"
)

// SubtopicUpdater toggles subtopic completion.
type SubtopicUpdater interface {
	UpdateSubtopic(ctx context.Context, upd service.SubtopicUpdate) (*service.SubtopicUpdateResult, error)
}

// SubtopicOutcomeObserver is told the outcome of every completed update.
type SubtopicOutcomeObserver func(outcome service.SubtopicOutcome)

// SubtopicHandler serves subtopic completion updates.
type SubtopicHandler struct {
	updater SubtopicUpdater
	observe SubtopicOutcomeObserver
	logger  *slog.Logger
}

// NewSubtopicHandler creates a SubtopicHandler. observe may be nil.
func NewSubtopicHandler(updater SubtopicUpdater, observe SubtopicOutcomeObserver, log *slog.Logger) *SubtopicHandler {
	if log == nil {
		log = slog.Default()
	}
	if observe == nil {
		observe = func(service.SubtopicOutcome) {}
	}
	return &SubtopicHandler{
		updater: updater,
		observe: observe,
		logger:  log.With(slog.String("component", "subtopic_handler")),
	}
}

// UpdateSubtopic handles PATCH /api/v1/subtopic/update.
//
// A completed update answers 200. When completing the last subtopic triggers
// a quiz generation that fails, the subtopic is reopened and the handler
// answers 502 with rolledBack true, or 500 with critical true when the
// subtopic could not be reopened.
func (h *SubtopicHandler) UpdateSubtopic(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req UpdateSubtopicRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.updater.UpdateSubtopic(r.Context(), service.SubtopicUpdate{
		UserID:     userID,
		ScheduleID: uuid.MustParse(req.ScheduleID),
		Range:      req.Range,
		Index:      *req.SubIdx,
		Completed:  *req.Completed,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	h.observe(result.Outcome)

	switch result.Outcome {
	case service.OutcomeRolledBack:
		shared.RespondWithJSON(w, r, http.StatusBadGateway, SubtopicFailureResponse{
			Error:      "Quiz generation failed, subtopic completion was reverted",
			ErrorType:  ErrorTypeQuizGenerationFailed,
			RolledBack: true,
			Details:    result.Details,
			TraceID:    shared.GetTraceID(r.Context()),
		})
	case service.OutcomeCriticalFailure:
		shared.RespondWithJSON(w, r, http.StatusInternalServerError, SubtopicFailureResponse{
			Error:     "Quiz generation failed and the subtopic could not be reset",
			ErrorType: ErrorTypeCriticalFailure,
			Critical:  true,
			Details:   result.Details,
			TraceID:   shared.GetTraceID(r.Context()),
		})
	default:
		shared.RespondWithJSON(w, r, http.StatusOK, SubtopicUpdateResponse{
			Success: true,
			Data: SubtopicUpdateData{
				Updated:       result.Subtopic,
				AllCompleted:  result.AllCompleted,
				QuizGenerated: result.QuizGenerated(),
				Quiz:          result.Quiz,
			},
		})
	}
}
