// Package audio produces one pronunciation file per lemma.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"

	"github.com/japaniel/vocab/pkg/config"
	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/pool"
)

// Generator writes <dir>/<lemma>.mp3 files.
type Generator struct {
	tts     Synthesizer
	dir     string
	limiter *rate.Limiter
	workers int
	log     *slog.Logger
}

// NewGenerator returns a Generator writing clips under cfg.Dir.
func NewGenerator(tts Synthesizer, cfg config.AudioConfig, log *slog.Logger) *Generator {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	return &Generator{
		tts:     tts,
		dir:     cfg.Dir,
		limiter: rate.NewLimiter(limit, 1),
		workers: cfg.Workers,
		log:     log.With("component", "audio"),
	}
}

// Dir is the directory holding the audio files.
func (g *Generator) Dir() string { return g.dir }

// FileName is the canonical audio file name of a lemma.
func FileName(lemma string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(lemma) + ".mp3"
}

// Path is where the audio of lemma lives.
func (g *Generator) Path(lemma string) string {
	return filepath.Join(g.dir, FileName(lemma))
}

// Exists reports whether the audio of lemma has been generated.
func (g *Generator) Exists(lemma string) bool {
	info, err := os.Stat(g.Path(lemma))
	return err == nil && !info.IsDir()
}

// Generate creates missing audio files for lemmas in the given language.
// Existing files are skipped and per-word failures are reported as Failed
// outcomes; only an unsupported language or an unusable directory fails the
// whole call.
func (g *Generator) Generate(ctx context.Context, lemmas []string, language string) ([]domain.Outcome, error) {
	code, err := LanguageCode(language)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}

	outcomes := make([]domain.Outcome, 0, len(lemmas))
	var todo []string
	seen := make(map[string]struct{}, len(lemmas))
	for _, lemma := range lemmas {
		lemma = strings.TrimSpace(lemma)
		if lemma == "" {
			continue
		}
		if _, dup := seen[lemma]; dup {
			continue
		}
		seen[lemma] = struct{}{}
		if g.Exists(lemma) {
			outcomes = append(outcomes, domain.Skipped(lemma, "audio exists"))
			continue
		}
		todo = append(todo, lemma)
	}

	results := make([]domain.Outcome, len(todo))
	p := pool.NewWorkerPool(g.workers, len(todo))
	p.Start(ctx)
	for i, lemma := range todo {
		i, lemma := i, lemma
		results[i] = domain.Failed(lemma, context.Canceled)
		err := p.SubmitCtx(ctx, func(ctx context.Context) error {
			if err := g.generateOne(ctx, lemma, code); err != nil {
				g.log.Warn("audio generation failed", "lemma", lemma, "error", err)
				results[i] = domain.Failed(lemma, err)
				return err
			}
			results[i] = domain.Added(lemma)
			return nil
		})
		if err != nil {
			results[i] = domain.Failed(lemma, err)
		}
	}
	p.Close()

	outcomes = append(outcomes, results...)
	t := domain.Summarize(outcomes)
	g.log.Info("audio generated", "generated", t.Added, "skipped", t.Skipped, "failed", t.Failed)
	return outcomes, nil
}

func (g *Generator) generateOne(ctx context.Context, lemma, code string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	data, err := g.tts.Synthesize(ctx, lemma, code)
	if err != nil {
		return err
	}

	// write then rename so a partial file never looks generated
	tmp, err := os.CreateTemp(g.dir, ".tts-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	if err := os.Rename(tmp.Name(), g.Path(lemma)); err != nil {
		return fmt.Errorf("save audio: %w", err)
	}
	return nil
}
