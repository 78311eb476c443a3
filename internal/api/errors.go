package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-planner/internal/api/middleware"
	"github.com/phrazzld/scry-planner/internal/api/shared"
	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/service"
	"github.com/phrazzld/scry-planner/internal/store"
	"github.com/phrazzld/scry-planner/internal/task"
)

// ErrUnauthorized is reported when a handler runs without an authenticated user.
var ErrUnauthorized = errors.New("unauthorized")

// MapErrorToStatusCode maps internal errors to HTTP status codes.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, middleware.ErrInvalidToken),
		errors.Is(err, middleware.ErrExpiredToken):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	case errors.Is(err, task.ErrJobNotFound),
		errors.Is(err, service.ErrScheduleNotFound),
		errors.Is(err, service.ErrPlanItemNotFound),
		errors.Is(err, service.ErrSubtopicNotFound),
		errors.Is(err, domain.ErrSubtopicIndexOutOfRange),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrSubtopicsIncomplete),
		errors.Is(err, store.ErrQuizExists):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, service.ErrEmptyPlan),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, task.ErrInvalidPayload),
		errors.Is(err, task.ErrUnknownFamily):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrBrokerUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err that never
// includes the wrapped error text.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Authentication required"
	case errors.Is(err, middleware.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, middleware.ErrInvalidToken):
		return "Invalid token"
	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this schedule"
	case errors.Is(err, task.ErrJobNotFound):
		return "Job not found"
	case errors.Is(err, service.ErrScheduleNotFound), errors.Is(err, store.ErrScheduleNotFound):
		return "Schedule not found"
	case errors.Is(err, service.ErrPlanItemNotFound), errors.Is(err, store.ErrPlanItemNotFound):
		return "Plan item not found"
	case errors.Is(err, service.ErrSubtopicNotFound), errors.Is(err, store.ErrSubtopicNotFound):
		return "Subtopic not found"
	case errors.Is(err, service.ErrSubtopicsIncomplete):
		return "All subtopics must be completed before generating a quiz"
	case errors.Is(err, store.ErrQuizExists):
		return "Quiz already exists"
	case errors.Is(err, service.ErrEmptyPlan):
		return "Plan must contain at least one item"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"
	case errors.Is(err, task.ErrInvalidPayload):
		return "Invalid job payload"
	case errors.Is(err, task.ErrBrokerUnavailable):
		return "Job queue unavailable, try again later"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a short client message
// naming the first failing field, e.g. "Invalid durationUnit: invalid value".
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", lowerFirst(fe.Field()), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "uuid":
		return "must be a UUID"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the mapped status and safe message for err and logs
// the redacted error. A non-empty message overrides the safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}

	var opts []shared.ResponseOption
	if status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
