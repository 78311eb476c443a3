package generation

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// PromptKind names the agent tool a prompt asks for.
type PromptKind string

// Supported prompt kinds.
const (
	PromptKindStudyPlan PromptKind = "study-planner-tool"
	PromptKindQuiz      PromptKind = "quiz-generator-tool"
)

const toolPrompt = `Call the "{{.Tool}}" tool with this exact JSON input:
{{.Input}}

Return ONLY the pure JSON output from the tool. Do not add text, markdown, or explanation. The final response must match this format:
{{.Format}}
`

const studyPlanFormat = `{
  "plan": [
    { "range": "string", "topic": "string", "subtopics": [{ "title": "string", "completed": false }] }
  ]
}`

const quizFormat = `{
  "title": "string",
  "questions": [
    { "question": "string", "options": ["string", "string", "string", "string"], "answer": "A" }
  ]
}`

var promptTemplate = template.Must(template.New("tool_prompt").Parse(toolPrompt))

var responseFormats = map[PromptKind]string{
	PromptKindStudyPlan: studyPlanFormat,
	PromptKindQuiz:      quizFormat,
}

// RenderPrompt builds the instruction for kind with input embedded as indented JSON.
func RenderPrompt(kind PromptKind, input any) (string, error) {
	format, ok := responseFormats[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPromptKind, kind)
	}
	encoded, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encoding tool input: %v", ErrInvalidRequest, err)
	}

	var sb strings.Builder
	err = promptTemplate.Execute(&sb, struct {
		Tool   PromptKind
		Input  string
		Format string
	}{kind, string(encoded), format})
	if err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", kind, err)
	}
	return sb.String(), nil
}
