package domain

import (
	"strings"
	"time"
)

// MaxExamples caps the example sentences kept per record.
const MaxExamples = 5

// Record is one stored vocabulary entry.
type Record struct {
	ID          int64
	Word        string
	Lemma       string
	POS         string
	Gender      string
	Translation string
	SourceLang  string
	TargetLang  string
	Examples    []string
	Source      string
	Theme       string
	AddedAt     time.Time
}

// Candidate is a vocabulary entry proposed by the model, before it is stored.
type Candidate struct {
	Word        string   `json:"word"`
	Lemma       string   `json:"lemma"`
	POS         string   `json:"pos,omitempty"`
	Translation string   `json:"translation"`
	Gender      string   `json:"gender,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// Validate reports the required fields a candidate is missing.
func (c Candidate) Validate() error {
	var errs []FieldError
	if strings.TrimSpace(c.Word) == "" {
		errs = append(errs, FieldError{Field: "word", Message: "required"})
	}
	if strings.TrimSpace(c.Lemma) == "" {
		errs = append(errs, FieldError{Field: "lemma", Message: "required"})
	}
	if strings.TrimSpace(c.Translation) == "" {
		errs = append(errs, FieldError{Field: "translation", Message: "required"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// Lemmas returns the lemma of every candidate, in order.
func Lemmas(cs []Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, strings.TrimSpace(c.Lemma))
	}
	return out
}

// Theme describes a registered topical vocabulary set.
type Theme struct {
	ID          int64
	TableName   string
	Description string
	SourceLang  string
	TargetLang  string
	DeckName    string
	CreatedAt   time.Time
	WordCount   int
}

// SameLanguagePair reports whether the theme uses the given pair, ignoring case.
func (t Theme) SameLanguagePair(sourceLang, targetLang string) bool {
	return strings.EqualFold(t.SourceLang, sourceLang) && strings.EqualFold(t.TargetLang, targetLang)
}

// Count is one bucket of an aggregate.
type Count struct {
	Key string
	N   int
}

// Stats aggregates stored vocabulary.
type Stats struct {
	TotalWords     int
	ByPartOfSpeech []Count
	ByTheme        []Count
}

// MergeExamples appends incoming to existing, drops blank and repeated
// sentences while keeping the first occurrence, and caps the result at
// MaxExamples.
func MergeExamples(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]string, 0, MaxExamples)
	for _, list := range [][]string{existing, incoming} {
		for _, ex := range list {
			if strings.TrimSpace(ex) == "" {
				continue
			}
			if _, ok := seen[ex]; ok {
				continue
			}
			seen[ex] = struct{}{}
			if len(out) < MaxExamples {
				out = append(out, ex)
			}
		}
	}
	return out
}
