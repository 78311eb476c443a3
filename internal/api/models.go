package api

import (
	"time"

	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/generation"
)

// GenerateScheduleRequest is the body of POST /api/v1/schedules/generate.
type GenerateScheduleRequest struct {
	Topic         string `json:"topic"         validate:"required,min=2"`
	DurationUnit  string `json:"durationUnit"  validate:"required,oneof=days weeks months"`
	DurationValue int    `json:"durationValue" validate:"required,min=1,max=52"`
}

// GenerateQuizRequest is the body of POST /api/v1/quiz/generate.
type GenerateQuizRequest struct {
	PlanItemID string `json:"planItemId" validate:"required,uuid"`
}

// JobAcceptedResponse is returned with 202 once a job is enqueued.
type JobAcceptedResponse struct {
	Message   string `json:"message"`
	JobID     string `json:"jobId"`
	RequestID string `json:"requestId"`
	StatusURL string `json:"statusUrl"`
}

// CreateScheduleRequest is the body of POST /api/v1/schedules. Plan is the
// plan returned by a schedule generation job.
type CreateScheduleRequest struct {
	Title    string                `json:"title"    validate:"omitempty,max=200"`
	Plan     []generation.PlanItem `json:"plan"     validate:"required,min=1,dive"`
	RemindAt *time.Time            `json:"remindAt"`
}

// CreateScheduleResponse is returned with 201 once a plan is saved.
type CreateScheduleResponse struct {
	Schedule      *domain.Schedule `json:"schedule"`
	ReminderJobID string           `json:"reminderJobId,omitempty"`
}

// ToggleRemindersRequest is the body of PATCH /api/v1/schedules/{scheduleId}/reminders.
// StartDate schedules the first reminder when reminders are turned on.
type ToggleRemindersRequest struct {
	ToggleInput *bool      `json:"toggleInput" validate:"required"`
	StartDate   *time.Time `json:"startDate"`
}

// ToggleRemindersResponse is returned with the updated schedule.
type ToggleRemindersResponse struct {
	Schedule      *domain.Schedule `json:"schedule"`
	ReminderJobID string           `json:"reminderJobId,omitempty"`
}

// UpdateSubtopicRequest is the body of PATCH /api/v1/subtopic/update.
// Pointers distinguish a missing field from its zero value.
type UpdateSubtopicRequest struct {
	ScheduleID string `json:"scheduleId" validate:"required,uuid"`
	Range      string `json:"range"      validate:"required"`
	SubIdx     *int   `json:"subIdx"     validate:"required,min=0"`
	Completed  *bool  `json:"completed"  validate:"required"`
}

// SubtopicUpdateData is the payload of a successful subtopic update.
type SubtopicUpdateData struct {
	Updated       domain.Subtopic `json:"updated"`
	AllCompleted  bool            `json:"allCompleted"`
	QuizGenerated bool            `json:"quizGenerated"`
	Quiz          *domain.Quiz    `json:"quiz"`
}

// SubtopicUpdateResponse wraps a successful subtopic update.
type SubtopicUpdateResponse struct {
	Success bool               `json:"success"`
	Data    SubtopicUpdateData `json:"data"`
}

// Subtopic failure error types
const (
	ErrorTypeQuizGenerationFailed = "QUIZ_GENERATION_FAILED"
	ErrorTypeCriticalFailure      = "CRITICAL_FAILURE"
)

// SubtopicFailureResponse reports a failed quiz generation after the last
// subtopic of a plan item was completed.
type SubtopicFailureResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	ErrorType  string `json:"errorType"`
	RolledBack bool   `json:"rolledBack"`
	Critical   bool   `json:"critical,omitempty"`
	Details    string `json:"details"`
	TraceID    string `json:"trace_id,omitempty"`
}
