package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-planner/internal/config"
	"github.com/phrazzld/scry-planner/internal/generation"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
	"google.golang.org/genai"
)

const systemInstruction = `You are a study planning assistant with two tools.
"study-planner-tool" takes {"topic", "durationUnit", "durationValue"} and splits the topic into
consecutive ranges covering the whole duration, each with a focused topic and 3-6 subtopics.
"quiz-generator-tool" takes {"completedTopic", "completedSubTopics"} and writes 5-10 multiple-choice
questions about those subtopics, each with exactly four options and the letter of the correct one.
When asked to call a tool, answer with the tool's JSON output only.`

// Agent implements generation.Agent using the Gemini API.
type Agent struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

var _ generation.Agent = (*Agent)(nil)

// Option customizes the underlying genai client.
type Option func(*genai.ClientConfig)

// WithBaseURL points the client at a different endpoint (tests, proxies).
func WithBaseURL(url string) Option {
	return func(cc *genai.ClientConfig) {
		cc.HTTPOptions.BaseURL = url
	}
}

// NewAgent creates a Gemini-backed agent after validating cfg.
func NewAgent(ctx context.Context, log *slog.Logger, cfg config.LLMConfig, opts ...Option) (*Agent, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := validateConfig(ctx, log, cfg); err != nil {
		return nil, err
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("%w: creating gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Agent{
		client:      client,
		model:       cfg.ModelName,
		temperature: cfg.Temperature,
		logger:      log.With("component", "gemini_agent", "model", cfg.ModelName),
	}, nil
}

// Generate sends prompt to the model and returns the text of the first candidate.
func (a *Agent) Generate(ctx context.Context, prompt string) (string, error) {
	log := logger.FromContextOrDefault(ctx, a.logger)
	start := time.Now()

	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(a.temperature),
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	})
	if err != nil {
		log.Error("gemini request failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		log.Warn("prompt blocked", "block_reason", resp.PromptFeedback.BlockReason)
		return "", fmt.Errorf("%w: %s", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		log.Warn("response blocked by safety filters")
		return "", generation.ErrContentBlocked
	}

	text := resp.Text()
	log.Debug("gemini response received",
		"duration_ms", time.Since(start).Milliseconds(),
		"response_length", len(text))
	return text, nil
}
