package anki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/japaniel/vocab/pkg/audio"
	"github.com/japaniel/vocab/pkg/domain"
)

// RecordSource is the part of the store the syncer reads.
type RecordSource interface {
	ListAll(ctx context.Context, theme string) ([]domain.Record, error)
	ListThemes(ctx context.Context) ([]domain.Theme, error)
	GetTheme(ctx context.Context, tableName string) (domain.Theme, error)
}

// AudioFiles locates generated pronunciation files.
type AudioFiles interface {
	Path(lemma string) string
	Exists(lemma string) bool
}

// Syncer pushes stored records into Anki decks. A note is keyed by its
// lemma within a deck; existing notes are never modified.
type Syncer struct {
	client    *Client
	records   RecordSource
	audio     AudioFiles
	modelName string
	log       *slog.Logger
}

// NewSyncer returns a Syncer that creates notes of the modelName note type.
func NewSyncer(client *Client, records RecordSource, audio AudioFiles, modelName string, log *slog.Logger) *Syncer {
	return &Syncer{
		client:    client,
		records:   records,
		audio:     audio,
		modelName: modelName,
		log:       log.With("component", "anki"),
	}
}

// DeckResult reports one synced deck.
type DeckResult struct {
	Deck     string
	Theme    string
	Outcomes []domain.Outcome
}

func (r DeckResult) Tally() domain.Tally { return domain.Summarize(r.Outcomes) }

// EnsureSetup checks the connection and creates the deck and the note type
// when they are missing.
func (s *Syncer) EnsureSetup(ctx context.Context, deck string) error {
	v, err := s.client.Version(ctx)
	if err != nil {
		return err
	}
	if v < apiVersion {
		return fmt.Errorf("ankiconnect version %d, need %d: %w", v, apiVersion, domain.ErrServiceUnavailable)
	}

	decks, err := s.client.DeckNames(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(decks, deck) {
		if err := s.client.CreateDeck(ctx, deck); err != nil {
			return err
		}
		s.log.Info("deck created", "deck", deck)
	}

	models, err := s.client.ModelNames(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(models, s.modelName) {
		if err := s.client.CreateModel(ctx, noteModel(s.modelName)); err != nil {
			return err
		}
		s.log.Info("note type created", "model", s.modelName)
	}
	return nil
}

// Sync adds a note for every record not yet in deck. Per-note failures are
// Failed outcomes; losing the connection aborts with the outcomes so far.
func (s *Syncer) Sync(ctx context.Context, deck string, records []domain.Record, tags []string) ([]domain.Outcome, error) {
	if err := s.EnsureSetup(ctx, deck); err != nil {
		return nil, err
	}

	outcomes := make([]domain.Outcome, 0, len(records))
	for _, r := range records {
		o, err := s.syncOne(ctx, deck, r, tags)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, o)
	}

	t := domain.Summarize(outcomes)
	s.log.Info("deck synced", "deck", deck, "added", t.Added, "skipped", t.Skipped, "failed", t.Failed)
	return outcomes, nil
}

func (s *Syncer) syncOne(ctx context.Context, deck string, r domain.Record, tags []string) (domain.Outcome, error) {
	ids, err := s.client.FindNotes(ctx, noteQuery(deck, r.Lemma))
	switch {
	case errors.Is(err, domain.ErrServiceUnavailable):
		return domain.Outcome{}, err
	case err != nil:
		// a failed search must not hide the note; try to add it
		s.log.Debug("note lookup failed", "lemma", r.Lemma, "error", err)
	case len(ids) > 0:
		return domain.Skipped(r.Lemma, "note exists"), nil
	}

	note := Note{
		DeckName:  deck,
		ModelName: s.modelName,
		Fields:    s.noteFields(ctx, r),
		Options:   NoteOptions{AllowDuplicate: false},
		Tags:      tags,
	}
	if _, err := s.client.AddNote(ctx, note); err != nil {
		if errors.Is(err, domain.ErrServiceUnavailable) {
			return domain.Outcome{}, err
		}
		s.log.Warn("note not added", "lemma", r.Lemma, "error", err)
		return domain.Failed(r.Lemma, err), nil
	}
	return domain.Added(r.Lemma), nil
}

func (s *Syncer) noteFields(ctx context.Context, r domain.Record) map[string]string {
	word := r.Word
	if word == "" {
		word = r.Lemma
	}
	fields := map[string]string{
		"Lemma":        r.Lemma,
		"Translation":  r.Translation,
		"PartOfSpeech": r.POS,
		"WordAsFound":  word,
		"Example1":     "",
		"Example2":     "",
		"Audio":        s.uploadAudio(ctx, r.Lemma),
		"SourceURL":    r.Source,
	}
	if len(r.Examples) > 0 {
		fields["Example1"] = r.Examples[0]
	}
	if len(r.Examples) > 1 {
		fields["Example2"] = r.Examples[1]
	}
	return fields
}

// uploadAudio stores the lemma's audio in Anki and returns the sound tag,
// or "" when there is no audio or the upload fails.
func (s *Syncer) uploadAudio(ctx context.Context, lemma string) string {
	if s.audio == nil || !s.audio.Exists(lemma) {
		return ""
	}
	data, err := os.ReadFile(s.audio.Path(lemma))
	if err != nil {
		s.log.Warn("audio not readable", "lemma", lemma, "error", err)
		return ""
	}
	if err := s.client.StoreMediaFile(ctx, audio.FileName(lemma), data); err != nil {
		s.log.Warn("audio upload failed", "lemma", lemma, "error", err)
		return ""
	}
	return SoundTag(lemma)
}

// SyncTheme syncs a registered theme into its own deck.
func (s *Syncer) SyncTheme(ctx context.Context, tableName string) (DeckResult, error) {
	theme, err := s.records.GetTheme(ctx, tableName)
	if err != nil {
		return DeckResult{}, err
	}
	records, err := s.records.ListAll(ctx, theme.TableName)
	if err != nil {
		return DeckResult{}, err
	}
	outcomes, err := s.Sync(ctx, theme.DeckName, records, themeTags(theme.TableName))
	return DeckResult{Deck: theme.DeckName, Theme: theme.TableName, Outcomes: outcomes}, err
}

// SyncDefault syncs a default partition into deck.
func (s *Syncer) SyncDefault(ctx context.Context, theme, deck string) (DeckResult, error) {
	records, err := s.records.ListAll(ctx, theme)
	if err != nil {
		return DeckResult{}, err
	}
	outcomes, err := s.Sync(ctx, deck, records, []string{"vocab", theme})
	return DeckResult{Deck: deck, Theme: theme, Outcomes: outcomes}, err
}

// SyncAll syncs the default partition and then every registered theme.
// It stops at the first deck that cannot be synced.
func (s *Syncer) SyncAll(ctx context.Context, defaultTheme, defaultDeck string) ([]DeckResult, error) {
	var results []DeckResult

	res, err := s.SyncDefault(ctx, defaultTheme, defaultDeck)
	results = append(results, res)
	if err != nil {
		return results, err
	}

	themes, err := s.records.ListThemes(ctx)
	if err != nil {
		return results, err
	}
	for _, t := range themes {
		res, err := s.SyncTheme(ctx, t.TableName)
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("sync %s: %w", t.TableName, err)
		}
	}
	return results, nil
}

func themeTags(tableName string) []string {
	return []string{"vocab", "theme-" + tableName}
}

// noteQuery finds a lemma in a deck with Anki search syntax.
func noteQuery(deck, lemma string) string {
	esc := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return fmt.Sprintf(`deck:"%s" "Lemma:%s"`, esc.Replace(deck), esc.Replace(lemma))
}

// SoundTag is the field value that plays a lemma's audio.
func SoundTag(lemma string) string {
	return "[sound:" + audio.FileName(lemma) + "]"
}
