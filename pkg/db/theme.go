package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	sq "github.com/Masterminds/squirrel"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/japaniel/vocab/pkg/domain"
)

// ThemePrefix starts every generated theme table name.
const ThemePrefix = "vocab_"

// maxSlugLen bounds the slug so the prefixed name stays a short identifier.
const maxSlugLen = 45

var (
	nonAlnum       = regexp.MustCompile(`[^a-z0-9]+`)
	validTableName = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// SanitizeThemeName derives a table name from a free-text theme description.
// Accents are folded ("café" becomes "cafe"), every run of other characters
// becomes a single underscore, and the slug is capped at 45 characters.
func SanitizeThemeName(description string) string {
	slug := strings.Trim(nonAlnum.ReplaceAllString(foldText(description), "_"), "_")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "_")
	}
	if slug == "" {
		slug = "untitled"
	}
	return ThemePrefix + slug
}

// foldText lower-cases s and strips combining accents.
func foldText(s string) string {
	lower := strings.ToLower(s)
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), lower)
	if err != nil {
		return lower
	}
	return folded
}

// NewTheme is the input to CreateTheme.
type NewTheme struct {
	TableName   string
	Description string
	SourceLang  string
	TargetLang  string
	DeckName    string
}

func (n NewTheme) validate() error {
	var errs []domain.FieldError
	if !validTableName.MatchString(n.TableName) {
		errs = append(errs, domain.FieldError{Field: "table_name", Message: "must match [a-z0-9_]+"})
	}
	if strings.TrimSpace(n.Description) == "" {
		errs = append(errs, domain.FieldError{Field: "theme_description", Message: "required"})
	}
	if strings.TrimSpace(n.SourceLang) == "" {
		errs = append(errs, domain.FieldError{Field: "source_lang", Message: "required"})
	}
	if strings.TrimSpace(n.TargetLang) == "" {
		errs = append(errs, domain.FieldError{Field: "target_lang", Message: "required"})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// CreateTheme registers a theme. Registering an existing table name is a
// no-op that returns the stored descriptor unchanged.
func (s *Store) CreateTheme(ctx context.Context, in NewTheme) (domain.Theme, error) {
	if err := in.validate(); err != nil {
		return domain.Theme{}, err
	}
	deck := strings.TrimSpace(in.DeckName)
	if deck == "" {
		deck = in.TableName
	}

	var theme domain.Theme
	err := s.RunInTx(ctx, func(ex DBExecutor) error {
		_, err := ex.ExecContext(ctx,
			`INSERT OR IGNORE INTO theme_registry
			   (table_name, theme_description, source_lang, target_lang, deck_name, created_at, word_count)
			 VALUES (?, ?, ?, ?, ?, ?, 0)`,
			in.TableName, strings.TrimSpace(in.Description), strings.TrimSpace(in.SourceLang),
			strings.TrimSpace(in.TargetLang), deck, s.now())
		if err != nil {
			return fmt.Errorf("insert theme %s: %w", in.TableName, err)
		}
		theme, err = getTheme(ctx, ex, in.TableName)
		return err
	})
	if err != nil {
		return domain.Theme{}, err
	}

	s.log.Debug("theme registered", "table", theme.TableName, "deck", theme.DeckName)
	return theme, nil
}

var themeColumns = []string{
	"id", "table_name", "theme_description", "source_lang", "target_lang",
	"deck_name", "created_at", "word_count",
}

func scanTheme(row rowScanner) (domain.Theme, error) {
	var t domain.Theme
	err := row.Scan(&t.ID, &t.TableName, &t.Description, &t.SourceLang, &t.TargetLang,
		&t.DeckName, &t.CreatedAt, &t.WordCount)
	return t, err
}

// GetTheme returns the descriptor registered under tableName, or an error
// wrapping domain.ErrNotFound.
func (s *Store) GetTheme(ctx context.Context, tableName string) (domain.Theme, error) {
	return getTheme(ctx, s.db, tableName)
}

func getTheme(ctx context.Context, ex DBExecutor, tableName string) (domain.Theme, error) {
	query, args, err := sq.Select(themeColumns...).
		From("theme_registry").
		Where(sq.Eq{"table_name": tableName}).
		ToSql()
	if err != nil {
		return domain.Theme{}, fmt.Errorf("build query: %w", err)
	}

	t, err := scanTheme(ex.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Theme{}, fmt.Errorf("theme %q: %w", tableName, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Theme{}, fmt.Errorf("get theme %q: %w", tableName, err)
	}
	return t, nil
}

// ListThemes returns every registered theme, oldest first.
func (s *Store) ListThemes(ctx context.Context) ([]domain.Theme, error) {
	query, args, err := sq.Select(themeColumns...).
		From("theme_registry").
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	var out []domain.Theme
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// refreshWordCount recomputes the denormalized word count of a theme.
func refreshWordCount(ctx context.Context, ex DBExecutor, tableName string) error {
	_, err := ex.ExecContext(ctx,
		`UPDATE theme_registry
		    SET word_count = (SELECT COUNT(*) FROM vocabulary WHERE theme = ?)
		  WHERE table_name = ?`,
		tableName, tableName)
	if err != nil {
		return fmt.Errorf("refresh word count for %s: %w", tableName, err)
	}
	return nil
}
