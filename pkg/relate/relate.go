// Package relate finds an existing theme that a new theme request overlaps.
package relate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/llm"
)

// noneAnswer is what the model replies when no theme is related.
const noneAnswer = "NONE"

// Detector asks the model which registered theme a description belongs to.
// It is an optimization: failures are logged and reported as "no match".
type Detector struct {
	backend llm.Backend
	log     *slog.Logger
}

// NewDetector returns a Detector asking backend for related words.
func NewDetector(backend llm.Backend, log *slog.Logger) *Detector {
	return &Detector{backend: backend, log: log.With("component", "relate")}
}

// Detect returns the most related theme sharing the language pair, if any.
// No model call is made when no theme shares the pair.
func (d *Detector) Detect(ctx context.Context, description, sourceLang, targetLang string, existing []domain.Theme) (domain.Theme, bool) {
	candidates := samePair(existing, sourceLang, targetLang)
	if len(candidates) == 0 {
		return domain.Theme{}, false
	}

	resp, err := d.backend.Complete(ctx, llm.Request{
		Messages:  []llm.Message{llm.UserText(prompt(description, candidates))},
		MaxTokens: 100,
	})
	if err != nil {
		d.log.Warn("related theme detection failed", "description", description, "error", err)
		return domain.Theme{}, false
	}

	answer := cleanAnswer(resp.Text)
	if strings.EqualFold(answer, noneAnswer) {
		return domain.Theme{}, false
	}
	for _, t := range candidates {
		if t.TableName == answer {
			d.log.Debug("related theme found", "description", description, "table", t.TableName)
			return t, true
		}
	}
	d.log.Debug("model named an unknown theme", "answer", answer)
	return domain.Theme{}, false
}

func samePair(themes []domain.Theme, sourceLang, targetLang string) []domain.Theme {
	var out []domain.Theme
	for _, t := range themes {
		if t.SameLanguagePair(sourceLang, targetLang) {
			out = append(out, t)
		}
	}
	return out
}

func prompt(description string, candidates []domain.Theme) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A user wants to create a vocabulary theme: %q\n\nExisting themes:\n", description)
	for _, t := range candidates {
		fmt.Fprintf(&b, "- %s: %s\n", t.TableName, t.Description)
	}
	b.WriteString("\nIf one existing theme covers substantially the same topic, answer with its table name only. ")
	b.WriteString("Otherwise answer NONE.")
	return b.String()
}

// cleanAnswer keeps the first line and drops quotes or backticks around it.
func cleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(strings.TrimSpace(s), "`\"'. ")
}
