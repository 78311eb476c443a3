package task

import (
	"fmt"
	"time"
)

// Family identifies a class of jobs. The string value is the queue name.
type Family string

// Job families
const (
	FamilyScheduleGeneration Family = "schedule-generation"
	FamilyQuizGeneration     Family = "quiz-generation"
	FamilyReminders          Family = "reminders"
	FamilyAnalytics          Family = "analytics"
	FamilyEmail              Family = "email"
)

// Job names carried into status responses.
const (
	JobNameGenerateSchedule   = "generate-schedule"
	JobNameGenerateQuiz       = "generate-quiz"
	JobNameSendReminder       = "send-reminder"
	JobNameCalculateAnalytics = "calculate-analytics"
	JobNameSendEmail          = "send-email"
)

// Families lists every known family in a stable order.
func Families() []Family {
	return []Family{
		FamilyScheduleGeneration,
		FamilyQuizGeneration,
		FamilyReminders,
		FamilyAnalytics,
		FamilyEmail,
	}
}

// ParseFamily converts a queue name into a Family.
func ParseFamily(name string) (Family, error) {
	for _, f := range Families() {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFamily, name)
}

// RateLimit caps how many jobs of a family may start per window.
type RateLimit struct {
	Max int
	Per time.Duration
}

// FamilyConfig holds the queue and worker settings for one family.
type FamilyConfig struct {
	JobName          string
	Concurrency      int
	MaxAttempts      int
	Backoff          BackoffPolicy
	Priority         int
	RateLimit        *RateLimit
	RemoveOnComplete RetentionPolicy
	RemoveOnFail     RetentionPolicy
}

var (
	defaultRemoveOnComplete = RetentionPolicy{Count: 100, MaxAge: 24 * time.Hour}
	defaultRemoveOnFail     = RetentionPolicy{Count: 500}
)

// DefaultFamilies returns the production configuration of every family.
// The returned map is a fresh copy and may be modified by the caller.
func DefaultFamilies() map[Family]FamilyConfig {
	exp := func(d time.Duration) BackoffPolicy {
		return BackoffPolicy{Type: BackoffExponential, Delay: d}
	}

	return map[Family]FamilyConfig{
		FamilyScheduleGeneration: {
			JobName:          JobNameGenerateSchedule,
			Concurrency:      2,
			MaxAttempts:      3,
			Backoff:          exp(time.Second),
			Priority:         PriorityNormal,
			RateLimit:        &RateLimit{Max: 5, Per: time.Minute},
			RemoveOnComplete: defaultRemoveOnComplete,
			RemoveOnFail:     defaultRemoveOnFail,
		},
		FamilyQuizGeneration: {
			JobName:          JobNameGenerateQuiz,
			Concurrency:      2,
			MaxAttempts:      2,
			Backoff:          exp(time.Second),
			Priority:         PriorityHigh,
			RemoveOnComplete: defaultRemoveOnComplete,
			RemoveOnFail:     defaultRemoveOnFail,
		},
		FamilyReminders: {
			JobName:          JobNameSendReminder,
			Concurrency:      1,
			MaxAttempts:      3,
			Backoff:          exp(time.Second),
			Priority:         PriorityNormal,
			RemoveOnComplete: defaultRemoveOnComplete,
			RemoveOnFail:     defaultRemoveOnFail,
		},
		FamilyAnalytics: {
			JobName:          JobNameCalculateAnalytics,
			Concurrency:      5,
			MaxAttempts:      3,
			Backoff:          exp(time.Second),
			Priority:         PriorityLow,
			RemoveOnComplete: defaultRemoveOnComplete,
			RemoveOnFail:     defaultRemoveOnFail,
		},
		FamilyEmail: {
			JobName:          JobNameSendEmail,
			Concurrency:      1,
			MaxAttempts:      5,
			Backoff:          exp(2 * time.Second),
			Priority:         PriorityNormal,
			RemoveOnComplete: defaultRemoveOnComplete,
			RemoveOnFail:     defaultRemoveOnFail,
		},
	}
}
