package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/japaniel/vocab/pkg/domain"
)

var errNoJSONArray = errors.New("no JSON array in response")

// parseCandidates pulls the JSON array out of a model answer.
func parseCandidates(raw string) ([]domain.Candidate, error) {
	body, err := extractJSONArray(raw)
	if err != nil {
		return nil, err
	}
	var out []domain.Candidate
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("parse candidates: %w", err)
	}
	for i := range out {
		out[i].Word = strings.TrimSpace(out[i].Word)
		out[i].Lemma = strings.TrimSpace(out[i].Lemma)
		out[i].POS = strings.TrimSpace(out[i].POS)
		out[i].Translation = strings.TrimSpace(out[i].Translation)
		out[i].Gender = strings.TrimSpace(out[i].Gender)
	}
	return out, nil
}

// extractJSONArray returns the text between the first '[' and the last ']'
// after any code fence is removed.
func extractJSONArray(s string) (string, error) {
	s = stripCodeFence(strings.TrimSpace(s))
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end <= start {
		return "", errNoJSONArray
	}
	return s[start : end+1], nil
}

// stripCodeFence removes markdown code block wrappers (```json ... ```).
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
