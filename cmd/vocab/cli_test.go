package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/vocab/pkg/db"
	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/ingest"
	"github.com/japaniel/vocab/pkg/logging"
)

// resetFlags restores every flag to its default, since cobra keeps values
// between Execute calls.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.Flags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

type fixture struct {
	dbPath   string
	audioDir string
	ids      map[string]int64
}

func (f fixture) args(args ...string) []string {
	return append([]string{"--db", f.dbPath, "--audio-dir", f.audioDir}, args...)
}

func setupFixture(t *testing.T) fixture {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ANTHROPIC_API_KEY", "")

	dir := t.TempDir()
	f := fixture{
		dbPath:   filepath.Join(dir, "vocab.db"),
		audioDir: filepath.Join(dir, "audio"),
		ids:      make(map[string]int64),
	}

	ctx := context.Background()
	conn, err := db.Open(f.dbPath, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	store := db.NewStore(conn, logging.Discard())
	require.NoError(t, store.EnsureSchema(ctx))

	_, err = store.Upsert(ctx, db.Target{
		Theme: "el_pais", Source: "https://elpais.com/a", SourceLang: "Spanish", TargetLang: "French",
	}, []domain.Candidate{
		{Word: "gatos", Lemma: "gato", POS: "noun", Translation: "chat", Examples: []string{"Los gatos duermen."}},
		{Word: "comió", Lemma: "comer", POS: "verb", Translation: "manger"},
	})
	require.NoError(t, err)

	_, err = store.CreateTheme(ctx, db.NewTheme{
		TableName: "vocab_cooking", Description: "cooking", SourceLang: "Dutch", TargetLang: "English", DeckName: "Cooking",
	})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, db.Target{Theme: "vocab_cooking"}, []domain.Candidate{
		{Word: "koken", Lemma: "koken", POS: "verb", Translation: "to cook"},
	})
	require.NoError(t, err)

	all, err := store.ListAll(ctx, "")
	require.NoError(t, err)
	for _, r := range all {
		f.ids[r.Lemma] = r.ID
	}
	return f
}

func TestRootCmd_Flags(t *testing.T) {
	for _, name := range []string{"db", "audio-dir", "config"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
	flag := listCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}

func TestListAndStats(t *testing.T) {
	f := setupFixture(t)

	out, err := execute(t, "", f.args("list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "gato (noun) - chat  [el_pais]")
	assert.Contains(t, out, "koken (verb) - to cook  [vocab_cooking]")
	assert.Contains(t, out, "Showing 3 of 3")

	out, err = execute(t, "", f.args("list", "--theme", "vocab_cooking")...)
	require.NoError(t, err)
	assert.NotContains(t, out, "gato")
	assert.Contains(t, out, "Showing 1 of 1")

	out, err = execute(t, "", f.args("stats")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Total words: 3")
	assert.Contains(t, out, "By part of speech:")
	assert.Contains(t, out, "vocab_cooking")
}

func TestThemeListAndSearch(t *testing.T) {
	f := setupFixture(t)

	out, err := execute(t, "", f.args("theme", "--list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "vocab_cooking  cooking  (Dutch -> English, 1 words, deck Cooking)")

	out, err = execute(t, "", f.args("search", "vocab_cooking", "COOK")...)
	require.NoError(t, err)
	assert.Contains(t, out, "koken")

	_, err = execute(t, "", f.args("search", "vocab_missing")...)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestShowAndDelete(t *testing.T) {
	f := setupFixture(t)
	id := strconv.FormatInt(f.ids["gato"], 10)

	out, err := execute(t, "", f.args("show", id)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Lemma:       gato")
	assert.Contains(t, out, "Source:      https://elpais.com/a")
	assert.Contains(t, out, "Los gatos duermen.")

	out, err = execute(t, "", f.args("delete", id)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted word "+id)

	_, err = execute(t, "", f.args("show", id)...)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = execute(t, "", f.args("show", "abc")...)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestExport(t *testing.T) {
	f := setupFixture(t)

	out, err := execute(t, "", f.args("export", "--theme", "el_pais")...)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "lemma;translation;examples;word_as_found;pos;audio\n"))
	assert.Contains(t, out, "gato;chat;Los gatos duermen.;gatos;noun;")

	require.NoError(t, os.MkdirAll(f.audioDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.audioDir, "koken.mp3"), []byte("ID3"), 0o644))

	path := filepath.Join(t.TempDir(), "out.csv")
	out, err = execute(t, "", f.args("export", "-o", path)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 words to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "koken;to cook;;koken;verb;[sound:koken.mp3]")
}

func TestAudio(t *testing.T) {
	f := setupFixture(t)
	var (
		mu    sync.Mutex
		langs []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		langs = append(langs, r.URL.Query().Get("tl"))
		mu.Unlock()
		w.Write([]byte("ID3fake"))
	}))
	defer srv.Close()
	t.Setenv("VOCAB_AUDIO_ENDPOINT", srv.URL)
	t.Setenv("VOCAB_AUDIO_RATE", "100")
	t.Setenv("VOCAB_AUDIO_WORKERS", "1")

	out, err := execute(t, "", f.args("audio")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Audio: 3 generated, 0 existing, 0 failed")
	mu.Lock()
	assert.ElementsMatch(t, []string{"nl", "es", "es"}, langs)
	mu.Unlock()
	assert.FileExists(t, filepath.Join(f.audioDir, "gato.mp3"))

	out, err = execute(t, "", f.args("audio", "--theme", "vocab_cooking")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Audio: 0 generated, 1 existing, 0 failed")
}

func TestModelCommandsNeedCredentials(t *testing.T) {
	f := setupFixture(t)

	_, err := execute(t, "", f.args("add", "https://elpais.com/a")...)
	require.ErrorIs(t, err, domain.ErrMissingCredentials)

	_, err = execute(t, "", f.args("theme", "cooking")...)
	require.ErrorIs(t, err, domain.ErrMissingCredentials)

	_, err = execute(t, "", f.args("pick", "a", "cat")...)
	require.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestThemeRequiresDescription(t *testing.T) {
	f := setupFixture(t)

	_, err := execute(t, "", f.args("theme")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "description is required")
}

func TestSyncServiceUnavailable(t *testing.T) {
	f := setupFixture(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	t.Setenv("VOCAB_ANKI_URL", url)

	_, err := execute(t, "", f.args("sync")...)
	require.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "AnkiConnect")
}

func TestPromptConfirm(t *testing.T) {
	related := domain.Theme{TableName: "vocab_cooking", Description: "cooking", WordCount: 4}
	tests := []struct {
		input string
		want  ingest.Decision
	}{
		{"\n", ingest.DecisionReuse},
		{"y\n", ingest.DecisionReuse},
		{"", ingest.DecisionReuse},
		{"N\n", ingest.DecisionNew},
		{"cancel\n", ingest.DecisionCancel},
		{"maybe\nno\n", ingest.DecisionNew},
		{"maybe", ingest.DecisionCancel},
	}
	for _, tt := range tests {
		t.Run(strconv.Quote(tt.input), func(t *testing.T) {
			out := new(bytes.Buffer)
			got, err := promptConfirm(strings.NewReader(tt.input), out)(context.Background(), related)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "vocab_cooking (cooking, 4 words)")
		})
	}
}
