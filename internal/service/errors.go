package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-planner/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// Callers use errors.Is to check for them; the API layer maps them to status codes.
var (
	// ErrNotOwned indicates a resource is owned by a different user than the one making the request.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrScheduleNotFound indicates the schedule does not exist.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrPlanItemNotFound indicates no plan item matches the given ID or range.
	ErrPlanItemNotFound = errors.New("plan item not found")

	// ErrSubtopicNotFound indicates the subtopic index is outside the plan item's subtopics.
	ErrSubtopicNotFound = errors.New("subtopic not found")

	// ErrSubtopicsIncomplete indicates a quiz was requested before every subtopic was completed.
	ErrSubtopicsIncomplete = errors.New("all subtopics must be completed before generating a quiz")

	// ErrEmptyPlan indicates a schedule was submitted without plan items.
	ErrEmptyPlan = errors.New("plan must contain at least one item")
)

// ServiceError wraps unexpected errors from a service operation with context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "update_subtopic", "create_schedule")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
// Service sentinels are returned as is, and store "not found" sentinels are
// mapped to their service equivalents.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		ErrNotOwned,
		ErrScheduleNotFound,
		ErrPlanItemNotFound,
		ErrSubtopicNotFound,
		ErrSubtopicsIncomplete,
		ErrEmptyPlan,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	switch {
	case errors.Is(err, store.ErrScheduleNotFound):
		return ErrScheduleNotFound
	case errors.Is(err, store.ErrPlanItemNotFound):
		return ErrPlanItemNotFound
	case errors.Is(err, store.ErrSubtopicNotFound):
		return ErrSubtopicNotFound
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// QuizGenerationFailedError reports that quiz generation failed after the
// last subtopic was completed, and that the completion was reverted.
type QuizGenerationFailedError struct {
	RolledBack bool
	Details    string
	Err        error
}

// Error implements the error interface for QuizGenerationFailedError.
func (e *QuizGenerationFailedError) Error() string {
	return "quiz generation failed: " + e.Details
}

// Unwrap returns the generation error.
func (e *QuizGenerationFailedError) Unwrap() error {
	return e.Err
}

// CriticalFailureError reports that quiz generation failed and reverting the
// subtopic failed too. The subtopic stays completed without a quiz.
type CriticalFailureError struct {
	Details     string
	Err         error
	RollbackErr error
}

// Error implements the error interface for CriticalFailureError.
func (e *CriticalFailureError) Error() string {
	return fmt.Sprintf("critical failure: quiz generation and rollback both failed: %s (rollback: %v)",
		e.Details, e.RollbackErr)
}

// Unwrap returns both the generation and the rollback error.
func (e *CriticalFailureError) Unwrap() []error {
	return []error{e.Err, e.RollbackErr}
}
