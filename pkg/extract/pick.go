package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/llm"
)

var indexPattern = regexp.MustCompile(`-?\d+`)

// PickByQuery asks the model which record best matches a natural-language
// query. An answer that is not an index into records fails with
// ErrInvalidIndex.
func (c *Client) PickByQuery(ctx context.Context, records []domain.Record, query string) (domain.Record, error) {
	if len(records) == 0 {
		return domain.Record{}, fmt.Errorf("no records to pick from: %w", domain.ErrNotFound)
	}
	if strings.TrimSpace(query) == "" {
		return domain.Record{}, domain.NewValidationError("query", "required")
	}

	resp, err := c.backend.Complete(ctx, llm.Request{
		Messages:  []llm.Message{llm.UserText(pickPrompt(records, query))},
		MaxTokens: 50,
	})
	if err != nil {
		return domain.Record{}, fmt.Errorf("pick: %w", err)
	}

	raw := indexPattern.FindString(resp.Text)
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: model answered %q", domain.ErrInvalidIndex, strings.TrimSpace(resp.Text))
	}
	if idx < 0 || idx >= len(records) {
		return domain.Record{}, fmt.Errorf("%w: %d not in [0, %d)", domain.ErrInvalidIndex, idx, len(records))
	}

	c.log.Debug("record picked", "index", idx, "lemma", records[idx].Lemma)
	return records[idx], nil
}
