package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
)

// Agent is the external LLM service. It receives a fully rendered prompt and
// returns the raw text of its answer.
type Agent interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator defines the typed generation operations used by the job handlers
// and the quiz services.
type Generator interface {
	GeneratePlan(ctx context.Context, req ScheduleRequest) (*GeneratedPlan, error)
	GenerateQuiz(ctx context.Context, req QuizRequest) (*GeneratedQuiz, error)
}

// Adapter turns agent text into validated plans and quizzes.
type Adapter struct {
	agent    Agent
	validate *validator.Validate
	logger   *slog.Logger
}

var _ Generator = (*Adapter)(nil)

// NewAdapter creates an Adapter over agent.
func NewAdapter(agent Agent, logger *slog.Logger) (*Adapter, error) {
	if agent == nil {
		return nil, fmt.Errorf("%w: agent cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()
	// Report violations with the JSON names the agent used.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	return &Adapter{
		agent:    agent,
		validate: v,
		logger:   logger.With("component", "generation_adapter"),
	}, nil
}

// GeneratePlan asks the study-planner tool for a plan.
func (a *Adapter) GeneratePlan(ctx context.Context, req ScheduleRequest) (*GeneratedPlan, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	var plan GeneratedPlan
	if err := a.Generate(ctx, PromptKindStudyPlan, req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// GenerateQuiz asks the quiz-generator tool for a quiz over the completed subtopics.
func (a *Adapter) GenerateQuiz(ctx context.Context, req QuizRequest) (*GeneratedQuiz, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	var quiz GeneratedQuiz
	if err := a.Generate(ctx, PromptKindQuiz, req, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// Generate renders the prompt for kind, calls the agent once and decodes the
// answer into out, which must be a pointer to the kind's response struct.
func (a *Adapter) Generate(ctx context.Context, kind PromptKind, input any, out any) error {
	log := logger.FromContextOrDefault(ctx, a.logger).With("prompt_kind", string(kind))

	prompt, err := RenderPrompt(kind, input)
	if err != nil {
		return err
	}

	raw, err := a.agent.Generate(ctx, prompt)
	if err != nil {
		log.Warn("agent call failed", "error", err)
		if errors.Is(err, ErrContentBlocked) || errors.Is(err, ErrGenerationFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	if err := a.decode(kind, raw, out); err != nil {
		log.Warn("agent response rejected",
			"error", err,
			"response_length", len(raw))
		return err
	}

	log.Debug("agent response accepted", "response_length", len(raw))
	return nil
}

type normalizer interface {
	normalize()
}

func (a *Adapter) decode(kind PromptKind, raw string, out any) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyResponse
	}

	payload, ok := ExtractJSON(raw)
	if !ok {
		return ErrUnparsableResponse
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	if n, ok := out.(normalizer); ok {
		n.normalize()
	}

	if err := a.validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return &SchemaValidationError{Kind: kind, Fields: violatedFields(verrs)}
		}
		return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	return nil
}

// violatedFields converts validator namespaces ("GeneratedQuiz.questions[0].options")
// into JSON paths ("questions[0].options (len)"), without duplicates.
func violatedFields(verrs validator.ValidationErrors) []string {
	seen := make(map[string]bool, len(verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		entry := fmt.Sprintf("%s (%s)", path, fe.Tag())
		if !seen[entry] {
			seen[entry] = true
			fields = append(fields, entry)
		}
	}
	return fields
}
