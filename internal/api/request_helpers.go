package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/api/shared"
	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
)

// getUserIDFromContext extracts the authenticated user's UUID placed in the
// request context by the authentication middleware.
func getUserIDFromContext(r *http.Request) (uuid.UUID, bool) {
	return shared.UserIDFromContext(r.Context())
}

// requireUserID returns the authenticated user ID, or writes a 401 and
// reports false.
func requireUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		logger.FromContextOrDefault(r.Context(), slog.Default()).
			Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, ErrUnauthorized, "")
		return uuid.Nil, false
	}
	return userID, true
}

// getPathScheduleID extracts the schedule ID path parameter.
func getPathScheduleID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "scheduleId")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: scheduleId is required", domain.ErrValidation)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: scheduleId has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// getPathJobID extracts the job ID path parameter. Job IDs are UUID strings.
func getPathJobID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "jobId")
	if id == "" {
		return "", fmt.Errorf("%w: jobId is required", domain.ErrValidation)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: jobId has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// decodeAndValidate decodes the JSON body into req and validates it, writing
// a 400 and reporting false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := shared.DecodeJSON(r, req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}
