package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/japaniel/vocab/pkg/config"
	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/llm"
	"github.com/japaniel/vocab/pkg/logging"
)

// scriptedBackend replays responses in order and records every request.
type scriptedBackend struct {
	mu        sync.Mutex
	responses []llm.Response
	errs      []error
	requests  []llm.Request
}

func (b *scriptedBackend) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := len(b.requests)
	b.requests = append(b.requests, req)
	if i < len(b.errs) && b.errs[i] != nil {
		return llm.Response{}, b.errs[i]
	}
	if i >= len(b.responses) {
		return llm.Response{}, fmt.Errorf("unexpected call %d", i+1)
	}
	return b.responses[i], nil
}

func (b *scriptedBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func final(text string) llm.Response {
	return llm.Response{Text: text, StopReason: llm.StopEndTurn}
}

func toolUse(calls ...llm.ToolCall) llm.Response {
	return llm.Response{ToolCalls: calls, StopReason: llm.StopToolUse}
}

type fakeCatalog struct {
	themes      []domain.Theme
	words       map[string][]domain.Record
	listCalls   int
	searchCalls int
	searched    []string
}

func (f *fakeCatalog) ListThemes(context.Context) ([]domain.Theme, error) {
	f.listCalls++
	return f.themes, nil
}

func (f *fakeCatalog) Search(_ context.Context, tableName, term string) ([]domain.Record, error) {
	f.searchCalls++
	f.searched = append(f.searched, tableName+"|"+term)
	words, ok := f.words[tableName]
	if !ok {
		return nil, fmt.Errorf("theme %q: %w", tableName, domain.ErrNotFound)
	}
	return words, nil
}

func newTestClient(b llm.Backend) *Client {
	return NewClient(b, config.LLMConfig{MaxAttempts: 3, MaxToolTurns: 5}, logging.Discard())
}
