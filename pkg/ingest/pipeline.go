// Package ingest wires fetching, extraction, storage and audio into the two
// ways vocabulary enters the store: from an article and from a theme.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/japaniel/vocab/pkg/article"
	"github.com/japaniel/vocab/pkg/config"
	"github.com/japaniel/vocab/pkg/db"
	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/extract"
)

// Store is the persistence the pipeline needs.
type Store interface {
	extract.ThemeCatalog
	GetTheme(ctx context.Context, tableName string) (domain.Theme, error)
	CreateTheme(ctx context.Context, in db.NewTheme) (domain.Theme, error)
	KnownLemmas(ctx context.Context, theme string) ([]string, error)
	Upsert(ctx context.Context, target db.Target, candidates []domain.Candidate) (db.UpsertResult, error)
	ListAll(ctx context.Context, theme string) ([]domain.Record, error)
}

// ArticleSource fetches article text.
type ArticleSource interface {
	Fetch(ctx context.Context, rawURL string, opts ...article.Option) (article.Article, error)
}

// Extractor produces vocabulary candidates with a language model.
type Extractor interface {
	SelectFromText(ctx context.Context, req extract.SelectRequest) ([]domain.Candidate, error)
	GenerateForTheme(ctx context.Context, req extract.ThemeRequest, catalog extract.ThemeCatalog) ([]domain.Candidate, error)
	PickByQuery(ctx context.Context, records []domain.Record, query string) (domain.Record, error)
}

// RelatedFinder looks for an existing theme overlapping a new one.
type RelatedFinder interface {
	Detect(ctx context.Context, description, sourceLang, targetLang string, existing []domain.Theme) (domain.Theme, bool)
}

// AudioMaker creates pronunciation files.
type AudioMaker interface {
	Generate(ctx context.Context, lemmas []string, language string) ([]domain.Outcome, error)
}

// Pipeline runs ingestion end to end. Audio and Related may be nil, which
// turns audio generation and related-theme detection off.
type Pipeline struct {
	Store     Store
	Articles  ArticleSource
	Extractor Extractor
	Related   RelatedFinder
	Audio     AudioMaker
	Defaults  config.DefaultsConfig

	// Confirm decides what to do when a related theme exists. nil reuses it.
	Confirm ConfirmFunc

	// OnProgress is called with a short description of each stage.
	OnProgress func(stage string)

	log      *slog.Logger
	newRunID func() string
}

// NewPipeline creates a Pipeline.
func NewPipeline(store Store, articles ArticleSource, extractor Extractor, related RelatedFinder,
	audio AudioMaker, defaults config.DefaultsConfig, log *slog.Logger) *Pipeline {
	return &Pipeline{
		Store:     store,
		Articles:  articles,
		Extractor: extractor,
		Related:   related,
		Audio:     audio,
		Defaults:  defaults,
		log:       log.With("component", "ingest"),
		newRunID:  uuid.NewString,
	}
}

func (p *Pipeline) progress(stage string) {
	if p.OnProgress != nil {
		p.OnProgress(stage)
	}
}

// ArticleRequest adds vocabulary from one article. Zero fields take the
// configured defaults.
type ArticleRequest struct {
	URL          string
	Cookie       string
	Instructions string
	Count        int
	Theme        string
	SourceLang   string
	TargetLang   string
	// AllowShort keeps going when the extracted text is suspiciously short.
	AllowShort bool
}

// ArticleReport summarizes an AddArticle run.
type ArticleReport struct {
	RunID     string
	Article   article.Article
	WordCount int
	New       int
	Updated   int
	Outcomes  []domain.Outcome
	Audio     []domain.Outcome
}

// AddArticle fetches an article, asks the model for new vocabulary, stores
// it under the article's URL and generates audio for the new lemmas.
func (p *Pipeline) AddArticle(ctx context.Context, req ArticleRequest) (ArticleReport, error) {
	req = p.articleDefaults(req)
	rep := ArticleReport{RunID: p.newRunID()}
	log := p.log.With("run_id", rep.RunID)

	if strings.TrimSpace(req.URL) == "" {
		return rep, domain.NewValidationError("url", "required")
	}
	req, err := p.themePair(ctx, req)
	if err != nil {
		return rep, err
	}

	p.progress("fetching article")
	var opts []article.Option
	if req.Cookie != "" {
		opts = append(opts, article.WithCookie(req.Cookie))
	}
	a, err := p.Articles.Fetch(ctx, req.URL, opts...)
	switch {
	case errors.Is(err, domain.ErrTextTooShort) && req.AllowShort:
		log.Warn("article text is short, continuing", "url", req.URL, "error", err)
	case err != nil:
		return rep, err
	}
	rep.Article = a

	if n, err := article.CountWords(a.Text, req.SourceLang); err != nil {
		log.Warn("word count failed", "error", err)
	} else {
		rep.WordCount = n
	}

	known, err := p.Store.KnownLemmas(ctx, req.Theme)
	if err != nil {
		return rep, fmt.Errorf("known lemmas: %w", err)
	}

	p.progress("selecting vocabulary")
	candidates, err := p.Extractor.SelectFromText(ctx, extract.SelectRequest{
		Text:         a.Text,
		KnownLemmas:  known,
		SourceLang:   req.SourceLang,
		TargetLang:   req.TargetLang,
		Instructions: req.Instructions,
		Count:        req.Count,
	})
	if err != nil {
		return rep, err
	}

	p.progress("saving words")
	res, err := p.Store.Upsert(ctx, db.Target{
		Theme:      req.Theme,
		Source:     req.URL,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
	}, candidates)
	if err != nil {
		return rep, err
	}
	rep.New, rep.Updated, rep.Outcomes = res.New, res.Updated, res.Outcomes

	rep.Audio = p.generateAudio(ctx, log, domain.KeysOf(res.Outcomes, domain.OutcomeAdded), req.SourceLang)

	log.Info("article ingested", "url", req.URL, "words", rep.WordCount, "new", rep.New, "updated", rep.Updated)
	return rep, nil
}

func (p *Pipeline) articleDefaults(req ArticleRequest) ArticleRequest {
	if req.Theme == "" {
		req.Theme = p.Defaults.Theme
	}
	if req.SourceLang == "" {
		req.SourceLang = p.Defaults.SourceLang
	}
	if req.TargetLang == "" {
		req.TargetLang = p.Defaults.TargetLang
	}
	if req.Count <= 0 {
		req.Count = p.Defaults.Count
	}
	return req
}

// themePair gives a request aimed at a registered theme the theme's
// language pair. An unregistered label carrying the theme prefix fails.
func (p *Pipeline) themePair(ctx context.Context, req ArticleRequest) (ArticleRequest, error) {
	theme, err := p.Store.GetTheme(ctx, req.Theme)
	switch {
	case err == nil:
		req.SourceLang, req.TargetLang = theme.SourceLang, theme.TargetLang
		return req, nil
	case errors.Is(err, domain.ErrNotFound) && !strings.HasPrefix(req.Theme, db.ThemePrefix):
		return req, nil
	default:
		return req, err
	}
}

// generateAudio is best effort: failures are logged and reported, never returned.
func (p *Pipeline) generateAudio(ctx context.Context, log *slog.Logger, lemmas []string, lang string) []domain.Outcome {
	if p.Audio == nil || len(lemmas) == 0 {
		return nil
	}
	p.progress("generating audio")
	outcomes, err := p.Audio.Generate(ctx, lemmas, lang)
	if err != nil {
		log.Warn("audio generation skipped", "language", lang, "error", err)
		return nil
	}
	return outcomes
}

// Pick returns the stored record that best matches a natural-language query.
// An empty theme searches every record.
func (p *Pipeline) Pick(ctx context.Context, query, theme string) (domain.Record, error) {
	records, err := p.Store.ListAll(ctx, theme)
	if err != nil {
		return domain.Record{}, err
	}
	return p.Extractor.PickByQuery(ctx, records, query)
}
