package audio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/vocab/pkg/config"
	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/logging"
)

func TestLanguageCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Spanish", "es"},
		{"spanish", "es"},
		{"SPANISH", "es"},
		{"Dutch", "nl"},
		{"French", "fr"},
		{"German", "de"},
		{"es", "es"},
		{"nl", "nl"},
		{"zh-CN", "zh-cn"},
	}
	for _, tt := range tests {
		got, err := LanguageCode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for name, code := range languageCodes {
		got, err := LanguageCode(name)
		require.NoError(t, err)
		assert.Equal(t, code, got)
	}

	_, err := LanguageCode("Klingon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

type fakeTTS struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeTTS) Synthesize(_ context.Context, text, lang string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text+"|"+lang)
	if f.fail[text] {
		return nil, errors.New("tts down")
	}
	return []byte("ID3-" + text), nil
}

func newTestGenerator(t *testing.T, tts Synthesizer) *Generator {
	t.Helper()
	return NewGenerator(tts, config.AudioConfig{Dir: filepath.Join(t.TempDir(), "audio"), Workers: 2}, logging.Discard())
}

func TestGenerateWritesFilesAndSkipsExisting(t *testing.T) {
	t.Parallel()

	tts := &fakeTTS{fail: map[string]bool{"roto": true}}
	g := newTestGenerator(t, tts)

	require.NoError(t, os.MkdirAll(g.Dir(), 0o755))
	require.NoError(t, os.WriteFile(g.Path("casa"), []byte("old"), 0o644))

	outcomes, err := g.Generate(context.Background(), []string{"casa", "querer", "roto", "querer", " "}, "Spanish")
	require.NoError(t, err)

	byKey := map[string]domain.Outcome{}
	for _, o := range outcomes {
		byKey[o.Key] = o
	}
	require.Len(t, byKey, 3)
	assert.Equal(t, domain.OutcomeSkipped, byKey["casa"].Kind)
	assert.Equal(t, domain.OutcomeAdded, byKey["querer"].Kind)
	assert.Equal(t, domain.OutcomeFailed, byKey["roto"].Kind)
	assert.Contains(t, byKey["roto"].Reason, "tts down")

	data, err := os.ReadFile(filepath.Join(g.Dir(), "querer.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "ID3-querer", string(data))

	old, err := os.ReadFile(g.Path("casa"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))

	assert.False(t, g.Exists("roto"))
	entries, err := os.ReadDir(g.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")

	sort.Strings(tts.calls)
	assert.Equal(t, []string{"querer|es", "roto|es"}, tts.calls)
}

func TestGenerateUnsupportedLanguage(t *testing.T) {
	t.Parallel()

	tts := &fakeTTS{}
	g := newTestGenerator(t, tts)
	_, err := g.Generate(context.Background(), []string{"a"}, "Klingon")
	require.Error(t, err)
	assert.Empty(t, tts.calls)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "querer.mp3", FileName("querer"))
	assert.Equal(t, "y_o.mp3", FileName("y/o"))
}

func TestGoogleTTS(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "nl", q.Get("tl"))
		assert.Equal(t, "tw-ob", q.Get("client"))
		assert.Equal(t, "agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3:" + q.Get("q")))
	}))
	defer srv.Close()

	tts := NewGoogleTTS(srv.URL, "agent", 5*time.Second)
	data, err := tts.Synthesize(context.Background(), "koken", "nl")
	require.NoError(t, err)
	assert.Equal(t, "mp3:koken", string(data))

	_, err = tts.Synthesize(context.Background(), "", "nl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
