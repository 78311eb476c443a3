package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedule_DefaultTitle(t *testing.T) {
	t.Parallel()
	userID := uuid.New()

	s, err := NewSchedule(userID, "", "Go Concurrency")
	require.NoError(t, err)
	assert.Equal(t, "Go Concurrency Plan", s.Title)
	assert.False(t, s.RemindersEnabled)

	s, err = NewSchedule(userID, "  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Study Plan", s.Title)

	s, err = NewSchedule(userID, "My Plan", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "My Plan", s.Title)

	_, err = NewSchedule(uuid.Nil, "x", "")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestNewPlanItem(t *testing.T) {
	t.Parallel()
	scheduleID := uuid.New()

	item, err := NewPlanItem(scheduleID, "Week 1", "Basics", []string{"Goroutines", "Channels"})
	require.NoError(t, err)
	require.Len(t, item.Subtopics, 2)
	for i, s := range item.Subtopics {
		assert.Equal(t, i, s.Position)
		assert.Equal(t, item.ID, s.PlanItemID)
		assert.False(t, s.Completed)
	}

	_, err = NewPlanItem(scheduleID, "Week 1", "Basics", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewPlanItem(scheduleID, "", "Basics", []string{"a"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewPlanItem(scheduleID, "Week 1", "Basics", []string{" "})
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestPlanItem_AllCompleted(t *testing.T) {
	t.Parallel()

	item := &PlanItem{}
	assert.False(t, item.AllCompleted(), "no subtopics is never complete")

	item.Subtopics = []Subtopic{{Title: "a", Completed: true}, {Title: "b"}}
	assert.False(t, item.AllCompleted())
	assert.Equal(t, []string{"a"}, item.CompletedTitles())

	item.Subtopics[1].Completed = true
	assert.True(t, item.AllCompleted())
	assert.Equal(t, []string{"a", "b"}, item.CompletedTitles())
}

func TestPlanItem_SubtopicAt(t *testing.T) {
	t.Parallel()
	item := &PlanItem{Subtopics: []Subtopic{{Title: "a"}, {Title: "b"}}}

	s, err := item.SubtopicAt(1)
	require.NoError(t, err)
	s.Completed = true
	assert.True(t, item.Subtopics[1].Completed, "SubtopicAt returns a pointer into the slice")

	_, err = item.SubtopicAt(2)
	assert.ErrorIs(t, err, ErrSubtopicIndexOutOfRange)
	_, err = item.SubtopicAt(-1)
	assert.ErrorIs(t, err, ErrSubtopicIndexOutOfRange)
}
