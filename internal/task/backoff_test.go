package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffPolicy_Next(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		policy       BackoffPolicy
		attemptsMade int
		want         time.Duration
	}{
		{"exponential first retry", BackoffPolicy{BackoffExponential, time.Second}, 1, time.Second},
		{"exponential second retry", BackoffPolicy{BackoffExponential, time.Second}, 2, 2 * time.Second},
		{"exponential fourth retry", BackoffPolicy{BackoffExponential, 2 * time.Second}, 4, 16 * time.Second},
		{"exponential capped", BackoffPolicy{BackoffExponential, time.Second}, 40, MaxBackoff},
		{"fixed", BackoffPolicy{BackoffFixed, 3 * time.Second}, 5, 3 * time.Second},
		{"zero delay", BackoffPolicy{BackoffExponential, 0}, 3, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.policy.Next(tc.attemptsMade))
		})
	}
}

func TestDefaultFamilies(t *testing.T) {
	t.Parallel()

	families := DefaultFamilies()
	assert.Len(t, families, len(Families()))

	schedule := families[FamilyScheduleGeneration]
	assert.Equal(t, 2, schedule.Concurrency)
	assert.Equal(t, 3, schedule.MaxAttempts)
	if assert.NotNil(t, schedule.RateLimit) {
		assert.Equal(t, 5, schedule.RateLimit.Max)
		assert.Equal(t, time.Minute, schedule.RateLimit.Per)
	}

	assert.Equal(t, PriorityHigh, families[FamilyQuizGeneration].Priority)
	assert.Equal(t, 2, families[FamilyQuizGeneration].MaxAttempts)
	assert.Equal(t, PriorityLow, families[FamilyAnalytics].Priority)
	assert.Equal(t, 5, families[FamilyAnalytics].Concurrency)
	assert.Equal(t, 5, families[FamilyEmail].MaxAttempts)
	assert.Equal(t, 2*time.Second, families[FamilyEmail].Backoff.Delay)
	assert.Equal(t, RetentionPolicy{Count: 100, MaxAge: 24 * time.Hour}, families[FamilyEmail].RemoveOnComplete)
	assert.Equal(t, RetentionPolicy{Count: 500}, families[FamilyEmail].RemoveOnFail)
}

func TestParseFamily(t *testing.T) {
	t.Parallel()

	f, err := ParseFamily("quiz-generation")
	assert.NoError(t, err)
	assert.Equal(t, FamilyQuizGeneration, f)

	_, err = ParseFamily("nope")
	assert.ErrorIs(t, err, ErrUnknownFamily)
}
