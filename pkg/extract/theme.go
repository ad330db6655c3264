package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/llm"
)

// ThemeRequest asks for vocabulary on a topic.
type ThemeRequest struct {
	Description string
	SourceLang  string
	TargetLang  string
	KnownLemmas []string
	Count       int
}

func (r ThemeRequest) validate() error {
	var errs []domain.FieldError
	if r.Description == "" {
		errs = append(errs, domain.FieldError{Field: "description", Message: "required"})
	}
	if r.SourceLang == "" {
		errs = append(errs, domain.FieldError{Field: "source_lang", Message: "required"})
	}
	if r.TargetLang == "" {
		errs = append(errs, domain.FieldError{Field: "target_lang", Message: "required"})
	}
	if r.Count <= 0 {
		errs = append(errs, domain.FieldError{Field: "count", Message: "must be positive"})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

type loopState int

const (
	stateAwaitingModel loopState = iota
	stateExecutingTool
	stateDone
	stateFailed
)

func (s loopState) String() string {
	switch s {
	case stateAwaitingModel:
		return "awaiting_model"
	case stateExecutingTool:
		return "executing_tool"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// GenerateForTheme runs the tool loop for a theme. The model may call
// list_themes and search_theme_words, served by catalog, before answering.
// An unparsable final answer restarts the conversation from the first turn;
// a loop that does not finish within the turn limit fails with
// ErrToolLoopDiverged and is not retried.
func (c *Client) GenerateForTheme(ctx context.Context, req ThemeRequest, catalog ThemeCatalog) ([]domain.Candidate, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	start := llm.NewTranscript(llm.UserText(themeUserPrompt(req)))
	system := themeSystemPrompt(req)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		answer, err := c.runToolLoop(ctx, system, start, maxTokensFor(req.Count), catalog)
		if err == nil {
			var candidates []domain.Candidate
			candidates, err = parseCandidates(answer)
			if err == nil {
				c.log.Info("theme vocabulary generated", "count", len(candidates), "attempt", attempt)
				return candidates, nil
			}
		}
		if isFatal(err) {
			return nil, wrapAttempt(attempt, err)
		}
		lastErr = err
		c.log.Warn("theme generation attempt failed", "attempt", attempt, "max_attempts", c.maxAttempts, "error", err)
	}
	return nil, &domain.ExtractionError{Attempts: c.maxAttempts, Err: lastErr}
}

// runToolLoop drives one conversation to a final answer.
func (c *Client) runToolLoop(ctx context.Context, system string, transcript llm.Transcript, maxTokens int64, catalog ThemeCatalog) (string, error) {
	var (
		state = stateAwaitingModel
		resp  llm.Response
		err   error
		turns int
	)
	for {
		switch state {
		case stateAwaitingModel:
			if turns >= c.maxToolTurns {
				err = fmt.Errorf("%w after %d turns", domain.ErrToolLoopDiverged, turns)
				state = stateFailed
				continue
			}
			turns++
			resp, err = c.backend.Complete(ctx, llm.Request{
				System:    system,
				Messages:  transcript.Messages(),
				Tools:     themeTools,
				MaxTokens: maxTokens,
			})
			switch {
			case err != nil:
				state = stateFailed
			case resp.WantsTools():
				state = stateExecutingTool
			default:
				state = stateDone
			}

		case stateExecutingTool:
			results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
			for _, call := range resp.ToolCalls {
				c.log.Debug("tool call", "tool", call.Name, "turn", turns)
				results = append(results, runTool(ctx, catalog, call))
			}
			transcript = transcript.Append(
				llm.AssistantTurn(resp.Text, resp.ToolCalls),
				llm.ToolResults(results),
			)
			state = stateAwaitingModel

		case stateDone:
			return resp.Text, nil

		case stateFailed:
			return "", err

		default:
			return "", errors.New("tool loop reached an unknown state")
		}
	}
}
