package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionOptionCount is the fixed number of options on every quiz question.
const QuestionOptionCount = 4

// Quiz is generated for a plan item once all of its subtopics are completed.
type Quiz struct {
	ID         uuid.UUID  `json:"id"`
	PlanItemID uuid.UUID  `json:"planItemId"`
	Title      string     `json:"title"`
	Questions  []Question `json:"questions"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Question is a multiple-choice question with options labelled A through D.
type Question struct {
	ID                 uuid.UUID `json:"id"`
	Position           int       `json:"position"`
	Text               string    `json:"text"`
	Options            []Option  `json:"options"`
	CorrectOptionLabel string    `json:"correctOptionLabel"`
}

// Option is one labelled answer of a question.
type Option struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
	Text  string    `json:"text"`
}

// OptionLabel returns the label for the option at index i ("A" for 0).
func OptionLabel(i int) string {
	return string(rune('A' + i))
}

// NewQuestion builds a question, labelling options in order.
func NewQuestion(position int, text string, options []string, correctLabel string) (Question, error) {
	if strings.TrimSpace(text) == "" {
		return Question{}, fmt.Errorf("%w: question text", ErrEmptyContent)
	}
	if len(options) != QuestionOptionCount {
		return Question{}, ErrInvalidOptionCount
	}

	q := Question{
		ID:                 uuid.New(),
		Position:           position,
		Text:               text,
		CorrectOptionLabel: strings.ToUpper(strings.TrimSpace(correctLabel)),
	}
	found := false
	for i, opt := range options {
		label := OptionLabel(i)
		if label == q.CorrectOptionLabel {
			found = true
		}
		q.Options = append(q.Options, Option{ID: uuid.New(), Label: label, Text: opt})
	}
	if !found {
		return Question{}, ErrInvalidOptionLabel
	}
	return q, nil
}

// NewQuiz creates a quiz for planItemID from already-built questions.
func NewQuiz(planItemID uuid.UUID, title string, questions []Question) (*Quiz, error) {
	if planItemID == uuid.Nil {
		return nil, fmt.Errorf("%w: quiz plan item ID cannot be empty", ErrInvalidID)
	}
	if len(questions) == 0 {
		return nil, ErrQuizWithoutQuestions
	}
	if strings.TrimSpace(title) == "" {
		title = "Quiz"
	}
	return &Quiz{
		ID:         uuid.New(),
		PlanItemID: planItemID,
		Title:      title,
		Questions:  questions,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
