package gemini

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/phrazzld/scry-planner/internal/config"
	"github.com/phrazzld/scry-planner/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{GeminiAPIKey: "test-key", ModelName: "gemini-2.0-flash", Temperature: 0.4}
}

// fakeGemini serves a fixed generateContent response and captures the request body.
func fakeGemini(t *testing.T, status int, body string) (*httptest.Server, *atomic.Value) {
	t.Helper()
	captured := &atomic.Value{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		captured.Store(string(raw))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestNewAgent_ConfigValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := NewAgent(ctx, nil, testConfig())
	assert.Error(t, err)

	cfg := testConfig()
	cfg.GeminiAPIKey = ""
	_, err = NewAgent(ctx, testLogger(), cfg)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	cfg = testConfig()
	cfg.ModelName = ""
	_, err = NewAgent(ctx, testLogger(), cfg)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	cfg = testConfig()
	cfg.Temperature = 3
	_, err = NewAgent(ctx, testLogger(), cfg)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestAgent_Generate_ReturnsCandidateText(t *testing.T) {
	t.Parallel()
	srv, captured := fakeGemini(t, http.StatusOK, `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "{\"plan\": []}"}]},
			"finishReason": "STOP"
		}]
	}`)

	agent, err := NewAgent(context.Background(), testLogger(), testConfig(), WithBaseURL(srv.URL))
	require.NoError(t, err)

	text, err := agent.Generate(context.Background(), "Call the \"study-planner-tool\" tool")

	require.NoError(t, err)
	assert.Equal(t, `{"plan": []}`, text)

	var req map[string]any
	require.NoError(t, json.Unmarshal([]byte(captured.Load().(string)), &req))
	assert.Contains(t, captured.Load().(string), "study-planner-tool")
	assert.Contains(t, req, "systemInstruction")
}

func TestAgent_Generate_SafetyBlock(t *testing.T) {
	t.Parallel()
	srv, _ := fakeGemini(t, http.StatusOK, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "partial"}]}, "finishReason": "SAFETY"}]
	}`)

	agent, err := NewAgent(context.Background(), testLogger(), testConfig(), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = agent.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, generation.ErrContentBlocked)
}

func TestAgent_Generate_PromptBlocked(t *testing.T) {
	t.Parallel()
	srv, _ := fakeGemini(t, http.StatusOK, `{"promptFeedback": {"blockReason": "SAFETY"}}`)

	agent, err := NewAgent(context.Background(), testLogger(), testConfig(), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = agent.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, generation.ErrContentBlocked)
}

func TestAgent_Generate_ServerError(t *testing.T) {
	t.Parallel()
	srv, _ := fakeGemini(t, http.StatusInternalServerError, `{"error": {"code": 500, "message": "backend unavailable", "status": "INTERNAL"}}`)

	agent, err := NewAgent(context.Background(), testLogger(), testConfig(), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = agent.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
	assert.True(t, strings.Contains(err.Error(), "backend unavailable") || strings.Contains(err.Error(), "500"))
}
