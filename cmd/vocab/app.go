package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/japaniel/vocab/pkg/anki"
	"github.com/japaniel/vocab/pkg/article"
	"github.com/japaniel/vocab/pkg/audio"
	"github.com/japaniel/vocab/pkg/config"
	"github.com/japaniel/vocab/pkg/db"
	"github.com/japaniel/vocab/pkg/extract"
	"github.com/japaniel/vocab/pkg/ingest"
	"github.com/japaniel/vocab/pkg/llm"
	"github.com/japaniel/vocab/pkg/logging"
	"github.com/japaniel/vocab/pkg/relate"
)

// app holds what every command shares. The model client is built on demand
// so offline commands work without credentials.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	conn  *sql.DB
	store *db.Store
	audio *audio.Generator
}

var current *app

func openApp(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(flagConfig)
	if err != nil {
		return err
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	if flagAudioDir != "" {
		cfg.Audio.Dir = flagAudioDir
	}

	log := logging.NewLogger(cfg.Log)

	conn, err := db.Open(cfg.Database.Path, cfg.Database.BusyTimeout)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	store := db.NewStore(conn, log)
	if err := store.EnsureSchema(cmd.Context()); err != nil {
		conn.Close()
		return fmt.Errorf("initialize database: %w", err)
	}

	tts := audio.NewGoogleTTS(cfg.Audio.Endpoint, cfg.Article.UserAgent, cfg.Article.Timeout)
	current = &app{
		cfg:   cfg,
		log:   log,
		conn:  conn,
		store: store,
		audio: audio.NewGenerator(tts, cfg.Audio, log),
	}
	log.Debug("database ready", "path", cfg.Database.Path)
	return nil
}

func closeApp() {
	if current == nil {
		return
	}
	if err := current.conn.Close(); err != nil {
		current.log.Warn("close database", "error", err)
	}
	current = nil
}

func (a *app) backend() (*llm.Anthropic, error) {
	return llm.NewAnthropic(a.cfg.LLM, a.log)
}

func (a *app) pipeline() (*ingest.Pipeline, error) {
	backend, err := a.backend()
	if err != nil {
		return nil, err
	}
	return ingest.NewPipeline(
		a.store,
		article.NewFetcher(a.cfg.Article, a.log),
		extract.NewClient(backend, a.cfg.LLM, a.log),
		relate.NewDetector(backend, a.log),
		a.audio,
		a.cfg.Defaults,
		a.log,
	), nil
}

func (a *app) syncer() *anki.Syncer {
	return anki.NewSyncer(anki.NewClient(a.cfg.Anki), a.store, a.audio, a.cfg.Anki.ModelName, a.log)
}
