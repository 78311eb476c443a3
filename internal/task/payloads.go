package task

// ScheduleGenerationPayload is the payload of a generate-schedule job.
type ScheduleGenerationPayload struct {
	Topic         string `json:"topic"         validate:"required,min=2"`
	DurationUnit  string `json:"durationUnit"  validate:"required,oneof=days weeks months"`
	DurationValue int    `json:"durationValue" validate:"required,min=1,max=52"`
	UserID        string `json:"userId,omitempty"`
	RequestID     string `json:"requestId"     validate:"required"`
}

// QuizGenerationPayload is the payload of a generate-quiz job.
type QuizGenerationPayload struct {
	PlanItemID string `json:"planItemId" validate:"required,uuid"`
	UserID     string `json:"userId"     validate:"required,uuid"`
	RequestID  string `json:"requestId"  validate:"required"`
}

// ReminderPayload is the payload of a send-reminder job.
type ReminderPayload struct {
	UserID     string `json:"userId"     validate:"required,uuid"`
	ScheduleID string `json:"scheduleId" validate:"required,uuid"`
	Message    string `json:"message"`
}

// AnalyticsType selects which statistics an analytics job computes.
const AnalyticsTypeQuizPerformance = "quiz_performance"

// AnalyticsPayload is the payload of a calculate-analytics job.
type AnalyticsPayload struct {
	UserID string `json:"userId" validate:"required,uuid"`
	Type   string `json:"type"   validate:"required"`
}

// Email types
const (
	EmailTypeVerification = "verification"
	EmailTypeLoginCode    = "login_code"
	EmailTypeWelcome      = "welcome"
)

// EmailPayload is the payload of a send-email job.
type EmailPayload struct {
	To       string    `json:"to"       validate:"required,email"`
	Username string    `json:"username"`
	Type     string    `json:"type"     validate:"required"`
	Data     EmailData `json:"data"`
}

// EmailData carries the type-specific secret of an email.
type EmailData struct {
	Token string `json:"token,omitempty"`
	Code  string `json:"code,omitempty"`
}
