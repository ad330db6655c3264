// Package extract turns article text or a theme request into vocabulary
// candidates using a language-model backend.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/japaniel/vocab/pkg/config"
	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/llm"
)

const (
	defaultMaxAttempts  = 3
	defaultMaxToolTurns = 5
)

// Client runs extraction prompts against an injected backend.
type Client struct {
	backend      llm.Backend
	log          *slog.Logger
	maxAttempts  int
	maxToolTurns int
}

// NewClient creates a Client. Zero limits in cfg fall back to 3 attempts
// and 5 tool turns.
func NewClient(backend llm.Backend, cfg config.LLMConfig, log *slog.Logger) *Client {
	c := &Client{
		backend:      backend,
		log:          log.With("component", "extract"),
		maxAttempts:  cfg.MaxAttempts,
		maxToolTurns: cfg.MaxToolTurns,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.maxToolTurns <= 0 {
		c.maxToolTurns = defaultMaxToolTurns
	}
	return c
}

// SelectRequest asks for vocabulary picked from a source text.
type SelectRequest struct {
	Text         string
	KnownLemmas  []string
	SourceLang   string
	TargetLang   string
	Instructions string
	Count        int
}

func (r SelectRequest) validate() error {
	var errs []domain.FieldError
	if r.Text == "" {
		errs = append(errs, domain.FieldError{Field: "text", Message: "required"})
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

// SelectFromText asks the model for req.Count candidates from req.Text,
// excluding known lemmas. A failed call or an unparsable answer is retried
// from scratch unless the credentials were rejected. After the last attempt
// the result is an *ExtractionError carrying the last failure.
func (c *Client) SelectFromText(ctx context.Context, req SelectRequest) ([]domain.Candidate, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	request := llm.Request{
		System:    selectSystemPrompt(req.SourceLang, req.TargetLang, req.Count),
		Messages:  []llm.Message{llm.UserText(selectUserPrompt(req))},
		MaxTokens: maxTokensFor(req.Count),
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.backend.Complete(ctx, request)
		if err == nil {
			var candidates []domain.Candidate
			candidates, err = parseCandidates(resp.Text)
			if err == nil {
				c.log.Info("vocabulary selected", "count", len(candidates), "attempt", attempt)
				return candidates, nil
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if isFatal(err) {
			return nil, wrapAttempt(attempt, err)
		}
		lastErr = err
		c.log.Warn("selection attempt failed", "attempt", attempt, "max_attempts", c.maxAttempts, "error", err)
	}
	return nil, &domain.ExtractionError{Attempts: c.maxAttempts, Err: lastErr}
}

// maxTokensFor leaves room for roughly 150 output tokens per word.
func maxTokensFor(count int) int64 {
	return int64(count)*150 + 1000
}

// isFatal reports errors that another attempt cannot fix.
func isFatal(err error) bool {
	return errors.Is(err, domain.ErrToolLoopDiverged) ||
		errors.Is(err, domain.ErrMissingCredentials) ||
		errors.Is(err, domain.ErrInvalidCredentials) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func wrapAttempt(attempt int, err error) error {
	return fmt.Errorf("attempt %d: %w", attempt, err)
}
