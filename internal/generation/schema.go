package generation

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/phrazzld/scry-planner/internal/domain"
)

// ScheduleRequest is the structured input of the study-planner tool.
type ScheduleRequest struct {
	Topic         string `json:"topic"         validate:"required,min=2"`
	DurationUnit  string `json:"durationUnit"  validate:"required,oneof=days weeks months"`
	DurationValue int    `json:"durationValue" validate:"required,min=1,max=52"`
}

// QuizRequest is the structured input of the quiz-generator tool.
type QuizRequest struct {
	CompletedTopic     string   `json:"completedTopic"     validate:"required"`
	CompletedSubTopics []string `json:"completedSubTopics" validate:"required,min=1,dive,required"`
}

// GeneratedPlan is a study plan as produced by the agent.
type GeneratedPlan struct {
	Items []PlanItem `json:"plan" validate:"required,min=1,dive"`
}

// PlanItem is one range of a generated plan.
type PlanItem struct {
	Range     string         `json:"range"     validate:"required"`
	Topic     string         `json:"topic"     validate:"required"`
	Subtopics []PlanSubtopic `json:"subtopics" validate:"required,min=1,dive"`
}

// PlanSubtopic is a generated subtopic. Generated subtopics always start incomplete.
type PlanSubtopic struct {
	Title     string `json:"title"     validate:"required"`
	Completed bool   `json:"completed"`
}

// UnmarshalJSON accepts the object form, or a bare array of plan items.
// The object may name the list "plan" or "items".
func (p *GeneratedPlan) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &p.Items)
	}
	var obj struct {
		Plan  []PlanItem `json:"plan"`
		Items []PlanItem `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	p.Items = obj.Plan
	if len(p.Items) == 0 {
		p.Items = obj.Items
	}
	return nil
}

// UnmarshalJSON accepts {"title": ...}, the compact {"t": ...} form, or a plain string.
func (s *PlanSubtopic) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &s.Title)
	}
	var raw struct {
		Title     string `json:"title"`
		T         string `json:"t"`
		Completed bool   `json:"completed"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	s.Title = raw.Title
	if s.Title == "" {
		s.Title = raw.T
	}
	s.Completed = raw.Completed
	return nil
}

func (p *GeneratedPlan) normalize() {
	for i := range p.Items {
		p.Items[i].Range = strings.TrimSpace(p.Items[i].Range)
		p.Items[i].Topic = strings.TrimSpace(p.Items[i].Topic)
		for j := range p.Items[i].Subtopics {
			p.Items[i].Subtopics[j].Title = strings.TrimSpace(p.Items[i].Subtopics[j].Title)
			p.Items[i].Subtopics[j].Completed = false
		}
	}
}

// GeneratedQuiz is a quiz as produced by the agent.
type GeneratedQuiz struct {
	Title     string              `json:"title"`
	Questions []GeneratedQuestion `json:"questions" validate:"required,min=1,dive"`
}

// GeneratedQuestion is a multiple-choice question with exactly four options.
type GeneratedQuestion struct {
	Text               string   `json:"question" validate:"required"`
	Options            []string `json:"options"  validate:"len=4,dive,required"`
	CorrectOptionLabel string   `json:"answer"   validate:"required,oneof=A B C D"`
}

// normalize upper-cases answer labels and maps an answer given as option text to its label.
func (q *GeneratedQuiz) normalize() {
	q.Title = strings.TrimSpace(q.Title)
	for i := range q.Questions {
		question := &q.Questions[i]
		answer := strings.TrimSpace(question.CorrectOptionLabel)
		if len(answer) == 1 {
			question.CorrectOptionLabel = strings.ToUpper(answer)
			continue
		}
		for j, opt := range question.Options {
			if strings.EqualFold(strings.TrimSpace(opt), answer) {
				answer = domain.OptionLabel(j)
				break
			}
		}
		question.CorrectOptionLabel = answer
	}
}
