package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/llm"
)

func themeRequest() ThemeRequest {
	return ThemeRequest{Description: "cooking vocabulary", SourceLang: "Dutch", TargetLang: "English", Count: 1}
}

func TestGenerateForThemeDirectAnswer(t *testing.T) {
	t.Parallel()

	b := &scriptedBackend{responses: []llm.Response{final(kokenJSON)}}
	catalog := &fakeCatalog{}
	got, err := newTestClient(b).GenerateForTheme(context.Background(), themeRequest(), catalog)
	require.NoError(t, err)

	assert.Equal(t, []string{"koken"}, domain.Lemmas(got))
	assert.Equal(t, 1, b.calls())
	assert.Len(t, b.requests[0].Tools, 2)
	assert.Equal(t, 0, catalog.listCalls+catalog.searchCalls)
}

func TestGenerateForThemeToolLoop(t *testing.T) {
	t.Parallel()

	b := &scriptedBackend{responses: []llm.Response{
		toolUse(llm.ToolCall{ID: "tool_1", Name: toolSearchWords,
			Arguments: json.RawMessage(`{"table_name": "vocab_kitchen", "search_term": "pan"}`)}),
		final(kokenJSON),
	}}
	catalog := &fakeCatalog{words: map[string][]domain.Record{
		"vocab_kitchen": {{Lemma: "pan", Translation: "pan"}},
	}}

	got, err := newTestClient(b).GenerateForTheme(context.Background(), themeRequest(), catalog)
	require.NoError(t, err)
	assert.Equal(t, []string{"koken"}, domain.Lemmas(got))

	assert.Equal(t, 1, catalog.searchCalls)
	assert.Equal(t, []string{"vocab_kitchen|pan"}, catalog.searched)
	require.Equal(t, 2, b.calls())

	// the second turn carries the tool request and its result
	second := b.requests[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, llm.RoleAssistant, second[1].Role)
	assert.Equal(t, "tool_1", second[1].ToolCalls[0].ID)
	require.Len(t, second[2].ToolResults, 1)
	assert.Equal(t, "tool_1", second[2].ToolResults[0].CallID)
	assert.Equal(t, "1 words: pan (pan)", second[2].ToolResults[0].Content)
	assert.False(t, second[2].ToolResults[0].IsError)

	// the first request was not mutated by the loop
	assert.Len(t, b.requests[0].Messages, 1)
}

func TestGenerateForThemeToolErrorsGoBackToModel(t *testing.T) {
	t.Parallel()

	b := &scriptedBackend{responses: []llm.Response{
		toolUse(
			llm.ToolCall{ID: "a", Name: toolSearchWords, Arguments: json.RawMessage(`{"table_name": "vocab_missing"}`)},
			llm.ToolCall{ID: "b", Name: "delete_everything"},
			llm.ToolCall{ID: "c", Name: toolListThemes},
		),
		final(kokenJSON),
	}}
	catalog := &fakeCatalog{themes: []domain.Theme{{TableName: "vocab_cooking", Description: "cooking",
		SourceLang: "Dutch", TargetLang: "English", WordCount: 3}}}

	_, err := newTestClient(b).GenerateForTheme(context.Background(), themeRequest(), catalog)
	require.NoError(t, err)

	results := b.requests[1].Messages[2].ToolResults
	require.Len(t, results, 3)
	assert.True(t, results[0].IsError)
	assert.Contains(t, results[0].Content, "not found")
	assert.True(t, results[1].IsError)
	assert.Contains(t, results[1].Content, "unknown tool")
	assert.False(t, results[2].IsError)
	assert.Equal(t, "vocab_cooking: cooking (Dutch -> English, 3 words)", results[2].Content)
}

func TestGenerateForThemeDiverges(t *testing.T) {
	t.Parallel()

	responses := make([]llm.Response, 0, 10)
	for i := 0; i < 10; i++ {
		responses = append(responses, toolUse(llm.ToolCall{ID: "t", Name: toolListThemes}))
	}
	b := &scriptedBackend{responses: responses}
	catalog := &fakeCatalog{}

	_, err := newTestClient(b).GenerateForTheme(context.Background(), themeRequest(), catalog)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrToolLoopDiverged))
	assert.Equal(t, 5, b.calls(), "divergence is fatal and not retried")
	assert.Equal(t, 5, catalog.listCalls)
}

func TestGenerateForThemeResetsOnParseFailure(t *testing.T) {
	t.Parallel()

	b := &scriptedBackend{responses: []llm.Response{
		toolUse(llm.ToolCall{ID: "t1", Name: toolListThemes}),
		final("Sorry, here are the words: koken"),
		final(kokenJSON),
	}}
	got, err := newTestClient(b).GenerateForTheme(context.Background(), themeRequest(), &fakeCatalog{})
	require.NoError(t, err)
	assert.Equal(t, []string{"koken"}, domain.Lemmas(got))

	require.Equal(t, 3, b.calls())
	// the retry starts over from the first turn
	assert.Len(t, b.requests[2].Messages, 1)
}

func TestGenerateForThemeExhaustsAttempts(t *testing.T) {
	t.Parallel()

	b := &scriptedBackend{responses: []llm.Response{final("nope"), final("nope"), final("nope")}}
	_, err := newTestClient(b).GenerateForTheme(context.Background(), themeRequest(), &fakeCatalog{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExtraction))
	assert.Equal(t, 3, b.calls())
}

func TestLoopStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "awaiting_model", stateAwaitingModel.String())
	assert.Equal(t, "executing_tool", stateExecutingTool.String())
	assert.Equal(t, "done", stateDone.String())
	assert.Equal(t, "failed", stateFailed.String())
}
