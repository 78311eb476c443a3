package generation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgent returns canned text and records prompts.
type fakeAgent struct {
	GenerateFn func(ctx context.Context, prompt string) (string, error)
	prompts    []string
}

func (f *fakeAgent) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.GenerateFn(ctx, prompt)
}

func respond(text string) *fakeAgent {
	return &fakeAgent{GenerateFn: func(context.Context, string) (string, error) { return text, nil }}
}

func newTestAdapter(t *testing.T, agent Agent) *Adapter {
	t.Helper()
	a, err := NewAdapter(agent, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return a
}

var validQuizRequest = QuizRequest{CompletedTopic: "Channels", CompletedSubTopics: []string{"Buffered"}}

const validQuizJSON = `{"title":"Channels quiz","questions":[
 {"question":"What blocks on a full buffer?","options":["send","receive","close","len"],"answer":"a"}]}`

func TestNewAdapter_NilAgent(t *testing.T) {
	t.Parallel()
	_, err := NewAdapter(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGenerateQuiz_Success(t *testing.T) {
	t.Parallel()
	agent := respond("Sure! ```json\n" + validQuizJSON + "\n```")
	a := newTestAdapter(t, agent)

	quiz, err := a.GenerateQuiz(context.Background(), validQuizRequest)

	require.NoError(t, err)
	assert.Equal(t, "Channels quiz", quiz.Title)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "A", quiz.Questions[0].CorrectOptionLabel, "answer label is upper-cased")
	require.Len(t, agent.prompts, 1, "exactly one agent call, no retries")
}

func TestGenerateQuiz_AnswerGivenAsOptionText(t *testing.T) {
	t.Parallel()
	a := newTestAdapter(t, respond(`{"title":"t","questions":[
		{"question":"q","options":["red","green","blue","cyan"],"answer":"Blue"}]}`))

	quiz, err := a.GenerateQuiz(context.Background(), validQuizRequest)

	require.NoError(t, err)
	assert.Equal(t, "C", quiz.Questions[0].CorrectOptionLabel)
}

func TestGenerateQuiz_ErrorTaxonomy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"blank", "   \n", ErrEmptyResponse},
		{"no json", "I am unable to call tools right now.", ErrUnparsableResponse},
		{"malformed", `{"title": "x", "questions": [1, }`, ErrUnparsableResponse},
		{"wrong types", `{"title": 5, "questions": []}`, ErrMalformedJSON},
		{"no questions", `{"title":"t","questions":[]}`, ErrSchemaValidation},
		{"three options", `{"title":"t","questions":[{"question":"q","options":["a","b","c"],"answer":"A"}]}`, ErrSchemaValidation},
		{"bad label", `{"title":"t","questions":[{"question":"q","options":["a","b","c","d"],"answer":"E"}]}`, ErrSchemaValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t, respond(tt.raw))

			quiz, err := a.GenerateQuiz(context.Background(), validQuizRequest)

			assert.Nil(t, quiz)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsUnusableResponse(err))
		})
	}
}

func TestGenerateQuiz_SchemaErrorListsFields(t *testing.T) {
	t.Parallel()
	a := newTestAdapter(t, respond(`{"title":"t","questions":[
		{"question":"","options":["a","b","c"],"answer":"A"}]}`))

	_, err := a.GenerateQuiz(context.Background(), validQuizRequest)

	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, PromptKindQuiz, schemaErr.Kind)
	assert.Contains(t, schemaErr.Fields, "questions[0].question (required)")
	assert.Contains(t, schemaErr.Fields, "questions[0].options (len)")
}

func TestGenerate_AgentFailureIsWrapped(t *testing.T) {
	t.Parallel()
	cause := errors.New("503 from upstream")
	a := newTestAdapter(t, &fakeAgent{GenerateFn: func(context.Context, string) (string, error) {
		return "", cause
	}})

	_, err := a.GenerateQuiz(context.Background(), validQuizRequest)

	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsUnusableResponse(err))
}

func TestGenerate_ContentBlockedPassesThrough(t *testing.T) {
	t.Parallel()
	a := newTestAdapter(t, &fakeAgent{GenerateFn: func(context.Context, string) (string, error) {
		return "", ErrContentBlocked
	}})

	_, err := a.GenerateQuiz(context.Background(), validQuizRequest)

	assert.ErrorIs(t, err, ErrContentBlocked)
}

func TestGenerateQuiz_InvalidRequestSkipsAgent(t *testing.T) {
	t.Parallel()
	agent := respond(validQuizJSON)
	a := newTestAdapter(t, agent)

	_, err := a.GenerateQuiz(context.Background(), QuizRequest{CompletedTopic: "x"})

	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, agent.prompts)
}

func TestGeneratePlan_Success(t *testing.T) {
	t.Parallel()
	a := newTestAdapter(t, respond(`Plan follows {"plan":[
		{"range":"Week 1","topic":"Basics","subtopics":[{"t":"Syntax","completed":true},{"title":"Types"}]},
		{"range":"Week 2","topic":"Concurrency","subtopics":["Goroutines"]}]}`))

	plan, err := a.GeneratePlan(context.Background(), ScheduleRequest{Topic: "Go", DurationUnit: "weeks", DurationValue: 2})

	require.NoError(t, err)
	require.Len(t, plan.Items, 2)
	assert.Equal(t, "Syntax", plan.Items[0].Subtopics[0].Title)
	assert.False(t, plan.Items[0].Subtopics[0].Completed, "generated subtopics always start incomplete")
	assert.Equal(t, "Goroutines", plan.Items[1].Subtopics[0].Title)
}

func TestGeneratePlan_BareArray(t *testing.T) {
	t.Parallel()
	a := newTestAdapter(t, respond(`[{"range":"Day 1","topic":"Intro","subtopics":[{"title":"Setup"}]}]`))

	plan, err := a.GeneratePlan(context.Background(), ScheduleRequest{Topic: "Go", DurationUnit: "days", DurationValue: 1})

	require.NoError(t, err)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, "Day 1", plan.Items[0].Range)
}

func TestGeneratePlan_ItemWithoutSubtopics(t *testing.T) {
	t.Parallel()
	a := newTestAdapter(t, respond(`{"plan":[{"range":"Week 1","topic":"Basics","subtopics":[]}]}`))

	_, err := a.GeneratePlan(context.Background(), ScheduleRequest{Topic: "Go", DurationUnit: "weeks", DurationValue: 1})

	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Fields, "plan[0].subtopics (min)")
}

func TestGeneratePlan_InvalidRequest(t *testing.T) {
	t.Parallel()
	a := newTestAdapter(t, respond(`{}`))

	_, err := a.GeneratePlan(context.Background(), ScheduleRequest{Topic: "Go", DurationUnit: "years", DurationValue: 60})

	assert.ErrorIs(t, err, ErrInvalidRequest)
}
