package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/japaniel/vocab/pkg/db"
	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/extract"
)

// ErrCanceled is returned when Confirm cancels a theme build.
var ErrCanceled = errors.New("theme creation canceled")

// Decision is the answer to "add to the related theme?".
type Decision int

const (
	DecisionReuse Decision = iota
	DecisionNew
	DecisionCancel
)

// ConfirmFunc is asked whether to reuse a related theme.
type ConfirmFunc func(ctx context.Context, related domain.Theme) (Decision, error)

// maxSuffix bounds the search for a free table name.
const maxSuffix = 1000

// ThemeRequest builds or extends a theme. Count defaults to the configured
// count.
type ThemeRequest struct {
	Description string
	SourceLang  string
	TargetLang  string
	Count       int
	// ForceNew skips related-theme detection.
	ForceNew bool
}

// ThemeReport summarizes a BuildTheme run.
type ThemeReport struct {
	RunID    string
	Theme    domain.Theme
	Reused   bool
	New      int
	Updated  int
	Outcomes []domain.Outcome
	Audio    []domain.Outcome
}

// BuildTheme finds or creates the theme for a description, generates new
// vocabulary for it and stores it.
func (p *Pipeline) BuildTheme(ctx context.Context, req ThemeRequest) (ThemeReport, error) {
	rep := ThemeReport{RunID: p.newRunID()}
	log := p.log.With("run_id", rep.RunID)

	req.Description = strings.TrimSpace(req.Description)
	if err := req.validate(); err != nil {
		return rep, err
	}
	if req.Count <= 0 {
		req.Count = p.Defaults.Count
	}

	theme, reused, err := p.targetTheme(ctx, req)
	if err != nil {
		return rep, err
	}
	rep.Reused = reused
	log.Info("theme selected", "table", theme.TableName, "reused", reused)

	known, err := p.Store.KnownLemmas(ctx, theme.TableName)
	if err != nil {
		return rep, fmt.Errorf("known lemmas: %w", err)
	}

	p.progress("generating vocabulary")
	candidates, err := p.Extractor.GenerateForTheme(ctx, extract.ThemeRequest{
		Description: req.Description,
		SourceLang:  theme.SourceLang,
		TargetLang:  theme.TargetLang,
		KnownLemmas: known,
		Count:       req.Count,
	}, p.Store)
	if err != nil {
		return rep, err
	}

	p.progress("saving words")
	res, err := p.Store.Upsert(ctx, db.Target{Theme: theme.TableName}, candidates)
	if err != nil {
		return rep, err
	}
	rep.New, rep.Updated, rep.Outcomes = res.New, res.Updated, res.Outcomes

	rep.Audio = p.generateAudio(ctx, log, domain.KeysOf(res.Outcomes, domain.OutcomeAdded), theme.SourceLang)

	if rep.Theme, err = p.Store.GetTheme(ctx, theme.TableName); err != nil {
		return rep, err
	}
	log.Info("theme built", "table", theme.TableName, "new", rep.New, "updated", rep.Updated)
	return rep, nil
}

func (r ThemeRequest) validate() error {
	var errs []domain.FieldError
	if r.Description == "" {
		errs = append(errs, domain.FieldError{Field: "description", Message: "required"})
	}
	if strings.TrimSpace(r.SourceLang) == "" {
		errs = append(errs, domain.FieldError{Field: "source_lang", Message: "required"})
	}
	if strings.TrimSpace(r.TargetLang) == "" {
		errs = append(errs, domain.FieldError{Field: "target_lang", Message: "required"})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// targetTheme returns the theme to extend and whether it already existed.
func (p *Pipeline) targetTheme(ctx context.Context, req ThemeRequest) (domain.Theme, bool, error) {
	if !req.ForceNew && p.Related != nil {
		themes, err := p.Store.ListThemes(ctx)
		if err != nil {
			return domain.Theme{}, false, err
		}
		p.progress("checking related themes")
		if related, ok := p.Related.Detect(ctx, req.Description, req.SourceLang, req.TargetLang, themes); ok {
			decision := DecisionReuse
			if p.Confirm != nil {
				if decision, err = p.Confirm(ctx, related); err != nil {
					return domain.Theme{}, false, err
				}
			}
			switch decision {
			case DecisionReuse:
				return related, true, nil
			case DecisionCancel:
				return domain.Theme{}, false, ErrCanceled
			}
		}
	}

	table, err := p.ResolveTableName(ctx, req.Description)
	if err != nil {
		return domain.Theme{}, false, err
	}
	theme, err := p.Store.CreateTheme(ctx, db.NewTheme{
		TableName:   table,
		Description: req.Description,
		SourceLang:  req.SourceLang,
		TargetLang:  req.TargetLang,
		DeckName:    DeckName(req.Description, table),
	})
	return theme, false, err
}

// ResolveTableName derives a table name from a description that no
// registered theme uses yet, appending _2, _3, ... on collision.
func (p *Pipeline) ResolveTableName(ctx context.Context, description string) (string, error) {
	base := db.SanitizeThemeName(description)
	for i := 1; i <= maxSuffix; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		_, err := p.Store.GetTheme(ctx, name)
		if errors.Is(err, domain.ErrNotFound) {
			return name, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free table name for %q: %w", description, domain.ErrAlreadyExists)
}

// DeckName builds a deck name from up to three words longer than three
// letters, capitalized and joined with "-". It falls back to the table name.
func DeckName(description, tableName string) string {
	var parts []string
	for _, w := range strings.Fields(description) {
		if utf8.RuneCountInString(w) <= 3 {
			continue
		}
		parts = append(parts, capitalize(w))
		if len(parts) == 3 {
			break
		}
	}
	if len(parts) == 0 {
		return tableName
	}
	return strings.Join(parts, "-")
}

func capitalize(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}
