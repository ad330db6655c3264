package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/vocab/pkg/config"
	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/logging"
)

func TestNewAnthropicRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewAnthropic(config.LLMConfig{Model: "m"}, logging.Discard())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingCredentials))
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestAnthropicComplete(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [
				{"type": "text", "text": "Let me check."},
				{"type": "tool_use", "id": "toolu_2", "name": "search_theme_words", "input": {"table_name": "vocab_cooking"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	a, err := NewAnthropic(config.LLMConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "claude-test", Timeout: 5 * time.Second}, logging.Discard())
	require.NoError(t, err)

	transcript := NewTranscript(UserText("make words")).Append(
		AssistantTurn("", []ToolCall{{ID: "toolu_1", Name: "list_themes", Arguments: json.RawMessage(`{}`)}}),
		ToolResults([]ToolResult{{CallID: "toolu_1", Content: "vocab_cooking: cooking"}}),
	)
	resp, err := a.Complete(context.Background(), Request{
		System:    "be brief",
		Messages:  transcript.Messages(),
		MaxTokens: 200,
		Tools: []ToolDefinition{{
			Name:        "search_theme_words",
			Description: "look up words",
			Parameters:  map[string]any{"table_name": map[string]any{"type": "string"}},
			Required:    []string{"table_name"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, StopToolUse, resp.StopReason)
	assert.Equal(t, "Let me check.", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_2", resp.ToolCalls[0].ID)
	assert.Equal(t, "search_theme_words", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"table_name":"vocab_cooking"}`, string(resp.ToolCalls[0].Arguments))

	assert.Equal(t, "claude-test", got["model"])
	assert.EqualValues(t, 200, got["max_tokens"])

	tools := got["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "search_theme_words", tools[0].(map[string]any)["name"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 3)
	assistant := msgs[1].(map[string]any)
	assert.Equal(t, "assistant", assistant["role"])
	toolUse := assistant["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_use", toolUse["type"])
	assert.Equal(t, "toolu_1", toolUse["id"])

	result := msgs[2].(map[string]any)["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_result", result["type"])
	assert.Equal(t, "toolu_1", result["tool_use_id"])
}

func TestAnthropicCompleteServerError(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"boom"}}`)
	}))
	defer srv.Close()

	a, err := NewAnthropic(config.LLMConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", Timeout: 5 * time.Second}, logging.Discard())
	require.NoError(t, err)

	_, err = a.Complete(context.Background(), Request{Messages: []Message{UserText("hi")}})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "the backend must not retry on its own")
}

func TestAnthropicCompleteRejectedKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	a, err := NewAnthropic(config.LLMConfig{APIKey: "wrong", BaseURL: srv.URL, Model: "m", Timeout: 5 * time.Second}, logging.Discard())
	require.NoError(t, err)

	_, err = a.Complete(context.Background(), Request{Messages: []Message{UserText("hi")}})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
