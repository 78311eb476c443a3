package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Schedule is a user's study plan, split into ranged plan items.
type Schedule struct {
	ID               uuid.UUID   `json:"id"`
	UserID           uuid.UUID   `json:"userId"`
	Title            string      `json:"title"`
	RemindersEnabled bool        `json:"remindersEnabled"`
	PlanItems        []*PlanItem `json:"planItems,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// PlanItem is one range of a schedule ("Week 1", "Days 1-3") with its checkable subtopics.
// A plan item holds a quiz only once every subtopic is completed.
type PlanItem struct {
	ID         uuid.UUID  `json:"id"`
	ScheduleID uuid.UUID  `json:"scheduleId"`
	Range      string     `json:"range"`
	Topic      string     `json:"topic"`
	Subtopics  []Subtopic `json:"subtopics"`
	Quiz       *Quiz      `json:"quiz,omitempty"`
}

// Subtopic is a single checkable unit of study inside a plan item.
type Subtopic struct {
	ID         uuid.UUID `json:"id"`
	PlanItemID uuid.UUID `json:"planItemId"`
	Position   int       `json:"position"`
	Title      string    `json:"title"`
	Completed  bool      `json:"completed"`
}

// NewSchedule creates a schedule for userID with reminders off. An empty title
// is replaced with "<first topic> Plan", or "Study Plan" when there is no
// topic to borrow.
func NewSchedule(userID uuid.UUID, title, firstTopic string) (*Schedule, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: schedule user ID cannot be empty", ErrInvalidID)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		if firstTopic = strings.TrimSpace(firstTopic); firstTopic == "" {
			firstTopic = "Study"
		}
		title = firstTopic + " Plan"
	}
	return &Schedule{
		ID:               uuid.New(),
		UserID:           userID,
		Title:            title,
		RemindersEnabled: false,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// NewPlanItem creates a plan item with one incomplete subtopic per title.
func NewPlanItem(scheduleID uuid.UUID, rng, topic string, subtopicTitles []string) (*PlanItem, error) {
	item := &PlanItem{
		ID:         uuid.New(),
		ScheduleID: scheduleID,
		Range:      rng,
		Topic:      topic,
	}
	for i, title := range subtopicTitles {
		item.Subtopics = append(item.Subtopics, Subtopic{
			ID:         uuid.New(),
			PlanItemID: item.ID,
			Position:   i,
			Title:      title,
		})
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// Validate checks if the PlanItem has valid data.
func (p *PlanItem) Validate() error {
	if p.ID == uuid.Nil || p.ScheduleID == uuid.Nil {
		return fmt.Errorf("%w: plan item IDs cannot be empty", ErrInvalidID)
	}
	if strings.TrimSpace(p.Range) == "" || strings.TrimSpace(p.Topic) == "" {
		return fmt.Errorf("%w: plan item range and topic are required", ErrValidation)
	}
	if len(p.Subtopics) == 0 {
		return fmt.Errorf("%w: plan item needs at least one subtopic", ErrValidation)
	}
	for _, s := range p.Subtopics {
		if strings.TrimSpace(s.Title) == "" {
			return fmt.Errorf("%w: subtopic title", ErrEmptyContent)
		}
	}
	return nil
}

// AllCompleted reports whether the plan item has subtopics and every one of them is completed.
func (p *PlanItem) AllCompleted() bool {
	if len(p.Subtopics) == 0 {
		return false
	}
	for _, s := range p.Subtopics {
		if !s.Completed {
			return false
		}
	}
	return true
}

// SubtopicAt returns a pointer into Subtopics for the given position.
func (p *PlanItem) SubtopicAt(index int) (*Subtopic, error) {
	if index < 0 || index >= len(p.Subtopics) {
		return nil, fmt.Errorf("%w: %d of %d", ErrSubtopicIndexOutOfRange, index, len(p.Subtopics))
	}
	return &p.Subtopics[index], nil
}

// CompletedTitles lists the titles of completed subtopics in position order.
func (p *PlanItem) CompletedTitles() []string {
	titles := make([]string, 0, len(p.Subtopics))
	for _, s := range p.Subtopics {
		if s.Completed {
			titles = append(titles, s.Title)
		}
	}
	return titles
}

// ReminderTarget is what a study reminder needs to know about its recipient and schedule.
type ReminderTarget struct {
	UserID           uuid.UUID
	Email            string
	Username         string
	ScheduleID       uuid.UUID
	ScheduleTitle    string
	RemindersEnabled bool
}
