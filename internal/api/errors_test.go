package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-planner/internal/api/middleware"
	"github.com/phrazzld/scry-planner/internal/api/shared"
	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/service"
	"github.com/phrazzld/scry-planner/internal/store"
	"github.com/phrazzld/scry-planner/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "nil error", err: nil, expectedStatus: http.StatusInternalServerError},
		{name: "unauthorized", err: ErrUnauthorized, expectedStatus: http.StatusUnauthorized},
		{name: "expired token", err: middleware.ErrExpiredToken, expectedStatus: http.StatusUnauthorized},
		{name: "not owned", err: service.ErrNotOwned, expectedStatus: http.StatusForbidden},
		{name: "job not found", err: fmt.Errorf("get: %w", task.ErrJobNotFound), expectedStatus: http.StatusNotFound},
		{name: "plan item not found", err: service.ErrPlanItemNotFound, expectedStatus: http.StatusNotFound},
		{name: "store schedule not found", err: store.ErrScheduleNotFound, expectedStatus: http.StatusNotFound},
		{name: "subtopic out of range", err: domain.ErrSubtopicIndexOutOfRange, expectedStatus: http.StatusNotFound},
		{name: "subtopics incomplete", err: service.ErrSubtopicsIncomplete, expectedStatus: http.StatusConflict},
		{name: "quiz exists", err: store.ErrQuizExists, expectedStatus: http.StatusConflict},
		{name: "domain validation", err: fmt.Errorf("plan item: %w", domain.ErrValidation), expectedStatus: http.StatusBadRequest},
		{name: "empty plan", err: service.ErrEmptyPlan, expectedStatus: http.StatusBadRequest},
		{name: "invalid payload", err: task.ErrInvalidPayload, expectedStatus: http.StatusBadRequest},
		{name: "broker unavailable", err: fmt.Errorf("enqueue: %w", task.ErrBrokerUnavailable), expectedStatus: http.StatusServiceUnavailable},
		{name: "unknown error", err: errors.New("unknown error"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedStatus, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: "An unexpected error occurred"},
		{name: "not owned", err: service.ErrNotOwned, expected: "You do not own this schedule"},
		{name: "job not found", err: task.ErrJobNotFound, expected: "Job not found"},
		{name: "store plan item", err: store.ErrPlanItemNotFound, expected: "Plan item not found"},
		{name: "incomplete", err: service.ErrSubtopicsIncomplete, expected: "All subtopics must be completed before generating a quiz"},
		{name: "broker", err: task.ErrBrokerUnavailable, expected: "Job queue unavailable, try again later"},
		{
			name:     "internal detail is hidden",
			err:      fmt.Errorf("query failed: SELECT * FROM users WHERE email = 'a@b.c': %w", errors.New("conn refused")),
			expected: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	err := shared.ValidateRequest(&GenerateScheduleRequest{Topic: "Go", DurationUnit: "fortnights", DurationValue: 2})
	require.Error(t, err)
	assert.Equal(t, "Invalid durationUnit: invalid value", SanitizeValidationError(err))

	err = validator.New().Struct(&struct {
		Name string `validate:"required"`
	}{})
	assert.Equal(t, "Invalid name: required field", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("something else")))
}

func TestHandleAPIError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(shared.WithTraceID(req.Context(), "trace-1"))

	t.Run("safe message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleAPIError(rec, req, fmt.Errorf("lookup postgres://u:secret@db: %w", service.ErrPlanItemNotFound), "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Plan item not found")
		assert.Contains(t, rec.Body.String(), "trace-1")
		assert.False(t, strings.Contains(rec.Body.String(), "secret"))
	})

	t.Run("explicit message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleAPIError(rec, req, domain.ErrInvalidID, "Invalid job ID")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid job ID")
	})
}
