package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"github.com/japaniel/vocab/pkg/domain"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists vocabulary records and the theme registry.
type Store struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// NewStore wraps an open database. Call EnsureSchema before use.
func NewStore(conn *sql.DB, log *slog.Logger) *Store {
	return &Store{
		db:  conn,
		log: log.With("component", "store"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureSchema creates the vocabulary and registry tables if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return InitDB(ctx, s.db)
}

// RunInTx runs fn inside a transaction, committing when fn returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(ex DBExecutor) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isUniqueConstraintErr returns true when the error indicates a unique constraint violation.
func isUniqueConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

var recordColumns = []string{
	"id", "theme", "word", "lemma", "pos", "gender", "translation",
	"source_lang", "target_lang", "examples", "source", "added_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.Record, error) {
	var (
		r        domain.Record
		examples string
	)
	err := row.Scan(&r.ID, &r.Theme, &r.Word, &r.Lemma, &r.POS, &r.Gender, &r.Translation,
		&r.SourceLang, &r.TargetLang, &examples, &r.Source, &r.AddedAt)
	if err != nil {
		return domain.Record{}, err
	}
	r.Examples, err = decodeExamples(examples)
	if err != nil {
		return domain.Record{}, fmt.Errorf("record %d: %w", r.ID, err)
	}
	return r, nil
}

func (s *Store) queryRecords(ctx context.Context, ex DBExecutor, q sq.SelectBuilder) ([]domain.Record, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeExamples(examples []string) (string, error) {
	if examples == nil {
		examples = []string{}
	}
	b, err := json.Marshal(examples)
	if err != nil {
		return "", fmt.Errorf("encode examples: %w", err)
	}
	return string(b), nil
}

func decodeExamples(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode examples: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
