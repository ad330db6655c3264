package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/japaniel/vocab/pkg/domain"
)

// Target names the partition an Upsert writes to. When Theme is a
// registered table name the language pair comes from the registry and
// Source is ignored; any other label is a default partition and must carry
// its own language pair.
type Target struct {
	Theme      string
	Source     string
	SourceLang string
	TargetLang string
}

// UpsertResult reports a batch upsert. Outcomes holds one entry per input
// candidate, in input order, keyed by lemma.
type UpsertResult struct {
	New      int
	Updated  int
	Outcomes []domain.Outcome
}

type partition struct {
	theme      string
	themed     bool
	source     string
	sourceLang string
	targetLang string
}

func (s *Store) resolveTarget(ctx context.Context, target Target) (partition, error) {
	label := strings.TrimSpace(target.Theme)
	if label == "" {
		return partition{}, domain.NewValidationError("theme", "required")
	}

	theme, err := s.GetTheme(ctx, label)
	switch {
	case err == nil:
		return partition{
			theme:      theme.TableName,
			themed:     true,
			sourceLang: theme.SourceLang,
			targetLang: theme.TargetLang,
		}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return partition{}, err
	case strings.HasPrefix(label, ThemePrefix):
		return partition{}, err
	}

	var errs []domain.FieldError
	if strings.TrimSpace(target.SourceLang) == "" {
		errs = append(errs, domain.FieldError{Field: "source_lang", Message: "required"})
	}
	if strings.TrimSpace(target.TargetLang) == "" {
		errs = append(errs, domain.FieldError{Field: "target_lang", Message: "required"})
	}
	if len(errs) > 0 {
		return partition{}, domain.NewValidationErrors(errs)
	}
	return partition{
		theme:      label,
		source:     strings.TrimSpace(target.Source),
		sourceLang: strings.TrimSpace(target.SourceLang),
		targetLang: strings.TrimSpace(target.TargetLang),
	}, nil
}

// Upsert inserts candidates whose lemma is new to the partition and merges
// the examples of those already stored. A malformed or failing candidate is
// reported as a failed outcome and the rest of the batch still proceeds.
func (s *Store) Upsert(ctx context.Context, target Target, candidates []domain.Candidate) (UpsertResult, error) {
	p, err := s.resolveTarget(ctx, target)
	if err != nil {
		return UpsertResult{}, err
	}

	res := UpsertResult{Outcomes: make([]domain.Outcome, 0, len(candidates))}
	err = s.RunInTx(ctx, func(ex DBExecutor) error {
		for _, c := range candidates {
			key := strings.TrimSpace(c.Lemma)
			if err := c.Validate(); err != nil {
				res.Outcomes = append(res.Outcomes, domain.Failed(key, err))
				continue
			}
			kind, err := s.upsertOne(ctx, ex, p, c)
			if err != nil {
				s.log.Warn("upsert failed", "theme", p.theme, "lemma", key, "error", err)
				res.Outcomes = append(res.Outcomes, domain.Failed(key, err))
				continue
			}
			switch kind {
			case domain.OutcomeAdded:
				res.New++
				res.Outcomes = append(res.Outcomes, domain.Added(key))
			case domain.OutcomeUpdated:
				res.Updated++
				res.Outcomes = append(res.Outcomes, domain.Updated(key))
			}
		}
		if p.themed {
			return refreshWordCount(ctx, ex, p.theme)
		}
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}

	s.log.Info("upsert complete", "theme", p.theme, "new", res.New, "updated", res.Updated,
		"failed", len(res.Outcomes)-res.New-res.Updated)
	return res, nil
}

// upsertOne inserts or merges a single candidate. A concurrent insert of the
// same lemma surfaces as a unique violation, in which case the merge is retried.
func (s *Store) upsertOne(ctx context.Context, ex DBExecutor, p partition, c domain.Candidate) (domain.OutcomeKind, error) {
	const maxRetries = 3

	lemma := strings.TrimSpace(c.Lemma)
	for attempt := 0; attempt < maxRetries; attempt++ {
		var (
			id  int64
			raw string
		)
		err := ex.QueryRowContext(ctx,
			`SELECT id, examples FROM vocabulary WHERE theme = ? AND lemma = ?`,
			p.theme, lemma,
		).Scan(&id, &raw)

		if err == nil {
			existing, err := decodeExamples(raw)
			if err != nil {
				return 0, err
			}
			merged, err := encodeExamples(domain.MergeExamples(existing, c.Examples))
			if err != nil {
				return 0, err
			}
			if p.themed {
				_, err = ex.ExecContext(ctx, `UPDATE vocabulary SET examples = ? WHERE id = ?`, merged, id)
			} else {
				_, err = ex.ExecContext(ctx,
					`UPDATE vocabulary SET examples = ?, source = COALESCE(NULLIF(?, ''), source) WHERE id = ?`,
					merged, p.source, id)
			}
			if err != nil {
				return 0, fmt.Errorf("merge %q: %w", lemma, err)
			}
			return domain.OutcomeUpdated, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("lookup %q: %w", lemma, err)
		}

		examples, err := encodeExamples(domain.MergeExamples(nil, c.Examples))
		if err != nil {
			return 0, err
		}
		_, err = ex.ExecContext(ctx,
			`INSERT INTO vocabulary
			   (theme, word, lemma, pos, gender, translation, source_lang, target_lang, examples, source, added_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.theme, strings.TrimSpace(c.Word), lemma, strings.TrimSpace(c.POS), strings.TrimSpace(c.Gender),
			strings.TrimSpace(c.Translation), p.sourceLang, p.targetLang, examples, p.source, s.now())
		if err != nil {
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, fmt.Errorf("insert %q: %w", lemma, err)
		}
		return domain.OutcomeAdded, nil
	}

	return 0, fmt.Errorf("could not upsert %q after %d retries", lemma, maxRetries)
}

// ListAll returns records newest first, optionally limited to one theme.
func (s *Store) ListAll(ctx context.Context, theme string) ([]domain.Record, error) {
	q := sq.Select(recordColumns...).From("vocabulary").OrderBy("added_at DESC", "id DESC")
	if theme != "" {
		q = q.Where(sq.Eq{"theme": theme})
	}
	out, err := s.queryRecords(ctx, s.db, q)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

// ListPage returns one page of records, newest first, and the total count.
func (s *Store) ListPage(ctx context.Context, theme string, limit, offset int) ([]domain.Record, int, error) {
	if limit <= 0 {
		return nil, 0, domain.NewValidationError("limit", "must be positive")
	}
	if offset < 0 {
		return nil, 0, domain.NewValidationError("offset", "must not be negative")
	}

	countQ := sq.Select("COUNT(*)").From("vocabulary")
	q := sq.Select(recordColumns...).From("vocabulary").
		OrderBy("added_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	if theme != "" {
		countQ = countQ.Where(sq.Eq{"theme": theme})
		q = q.Where(sq.Eq{"theme": theme})
	}

	query, args, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}
	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	out, err := s.queryRecords(ctx, s.db, q)
	if err != nil {
		return nil, 0, fmt.Errorf("list page: %w", err)
	}
	return out, total, nil
}

// KnownLemmas returns the lemmas stored under a theme label, sorted.
func (s *Store) KnownLemmas(ctx context.Context, theme string) ([]string, error) {
	query, args, err := sq.Select("lemma").From("vocabulary").
		Where(sq.Eq{"theme": theme}).
		OrderBy("lemma").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("known lemmas: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var lemma string
		if err := rows.Scan(&lemma); err != nil {
			return nil, err
		}
		out = append(out, lemma)
	}
	return out, rows.Err()
}

// Search returns the records of a registered theme whose lemma or
// translation contains term, sorted by lemma. Matching ignores case and
// accents for any script, so it runs in Go over the theme's rows rather than
// with SQLite's ASCII-only LOWER. An empty term lists the whole theme.
func (s *Store) Search(ctx context.Context, tableName, term string) ([]domain.Record, error) {
	if _, err := s.GetTheme(ctx, tableName); err != nil {
		return nil, err
	}

	q := sq.Select(recordColumns...).From("vocabulary").
		Where(sq.Eq{"theme": tableName}).
		OrderBy("lemma")
	out, err := s.queryRecords(ctx, s.db, q)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", tableName, err)
	}

	needle := foldText(strings.TrimSpace(term))
	if needle == "" {
		return out, nil
	}
	hits := out[:0]
	for _, r := range out {
		if strings.Contains(foldText(r.Lemma), needle) || strings.Contains(foldText(r.Translation), needle) {
			hits = append(hits, r)
		}
	}
	return hits, nil
}

// Stats aggregates counts, optionally limited to one theme.
func (s *Store) Stats(ctx context.Context, theme string) (domain.Stats, error) {
	var st domain.Stats

	total := sq.Select("COUNT(*)").From("vocabulary")
	byPOS := sq.Select("pos", "COUNT(*) AS n").From("vocabulary").
		Where(sq.NotEq{"pos": ""}).
		GroupBy("pos").
		OrderBy("n DESC", "pos")
	byTheme := sq.Select("theme", "COUNT(*) AS n").From("vocabulary").
		GroupBy("theme").
		OrderBy("n DESC", "theme")
	if theme != "" {
		total = total.Where(sq.Eq{"theme": theme})
		byPOS = byPOS.Where(sq.Eq{"theme": theme})
		byTheme = byTheme.Where(sq.Eq{"theme": theme})
	}

	query, args, err := total.ToSql()
	if err != nil {
		return st, fmt.Errorf("build query: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&st.TotalWords); err != nil {
		return st, fmt.Errorf("count records: %w", err)
	}

	if st.ByPartOfSpeech, err = s.queryCounts(ctx, byPOS); err != nil {
		return st, fmt.Errorf("count by pos: %w", err)
	}
	if st.ByTheme, err = s.queryCounts(ctx, byTheme); err != nil {
		return st, fmt.Errorf("count by theme: %w", err)
	}
	return st, nil
}

func (s *Store) queryCounts(ctx context.Context, q sq.SelectBuilder) ([]domain.Count, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Count
	for rows.Next() {
		var c domain.Count
		if err := rows.Scan(&c.Key, &c.N); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, id int64) (domain.Record, error) {
	query, args, err := sq.Select(recordColumns...).From("vocabulary").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Record{}, fmt.Errorf("build query: %w", err)
	}
	r, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, fmt.Errorf("record %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("get record %d: %w", id, err)
	}
	return r, nil
}

// Delete removes one record by id and refreshes its theme's word count.
func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.RunInTx(ctx, func(ex DBExecutor) error {
		var theme string
		err := ex.QueryRowContext(ctx, `SELECT theme FROM vocabulary WHERE id = ?`, id).Scan(&theme)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("record %d: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lookup record %d: %w", id, err)
		}
		if _, err := ex.ExecContext(ctx, `DELETE FROM vocabulary WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete record %d: %w", id, err)
		}
		// No-op for default partitions, which have no registry row.
		return refreshWordCount(ctx, ex, theme)
	})
}
