package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/vocab/pkg/db"
	"github.com/japaniel/vocab/pkg/domain"
)

func TestBuildThemeCreatesTheme(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.extractor.candidates = []domain.Candidate{
		cand("koken", "to cook", "Ik kook graag."),
		cand("pan", "pan", "De pan is heet."),
	}

	rep, err := h.pipeline.BuildTheme(ctx, ThemeRequest{
		Description: "cooking in Dutch", SourceLang: "Dutch", TargetLang: "English", Count: 10,
	})
	require.NoError(t, err)
	assert.False(t, rep.Reused)
	assert.Equal(t, "vocab_cooking_in_dutch", rep.Theme.TableName)
	assert.Equal(t, "Cooking-Dutch", rep.Theme.DeckName)
	assert.Equal(t, 2, rep.Theme.WordCount)
	assert.Equal(t, 2, rep.New)
	assert.Equal(t, "Dutch", h.audio.language)

	require.Len(t, h.extractor.themes, 1)
	assert.Equal(t, 10, h.extractor.themes[0].Count)
	assert.Same(t, h.store, h.extractor.catalog)

	records, err := h.store.ListAll(ctx, "vocab_cooking_in_dutch")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Dutch", records[0].SourceLang)
	assert.Empty(t, records[0].Source)
}

func TestBuildThemeReusesRelated(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	existing, err := h.store.CreateTheme(ctx, db.NewTheme{
		TableName: "vocab_cooking", Description: "cooking", SourceLang: "Dutch", TargetLang: "English",
	})
	require.NoError(t, err)
	_, err = h.store.Upsert(ctx, db.Target{Theme: existing.TableName}, []domain.Candidate{cand("koken", "to cook", "Ik kook.")})
	require.NoError(t, err)

	h.related.theme, h.related.found = existing, true
	h.extractor.candidates = []domain.Candidate{cand("bakken", "to bake", "Wij bakken brood.")}

	rep, err := h.pipeline.BuildTheme(ctx, ThemeRequest{
		Description: "kitchen vocabulary", SourceLang: "Dutch", TargetLang: "English",
	})
	require.NoError(t, err)
	assert.True(t, rep.Reused)
	assert.Equal(t, "vocab_cooking", rep.Theme.TableName)
	assert.Equal(t, 2, rep.Theme.WordCount)
	assert.Equal(t, []string{"koken"}, h.extractor.themes[0].KnownLemmas)
	assert.Equal(t, 20, h.extractor.themes[0].Count)

	themes, err := h.store.ListThemes(ctx)
	require.NoError(t, err)
	assert.Len(t, themes, 1)
}

func TestBuildThemeConfirm(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, decision Decision) *harness {
		h := newHarness(t)
		existing, err := h.store.CreateTheme(ctx, db.NewTheme{
			TableName: "vocab_cooking", Description: "cooking", SourceLang: "Dutch", TargetLang: "English",
		})
		require.NoError(t, err)
		h.related.theme, h.related.found = existing, true
		h.extractor.candidates = []domain.Candidate{cand("bakken", "to bake", "Wij bakken.")}
		h.pipeline.Confirm = func(_ context.Context, related domain.Theme) (Decision, error) {
			assert.Equal(t, "vocab_cooking", related.TableName)
			return decision, nil
		}
		return h
	}

	t.Run("new theme", func(t *testing.T) {
		h := setup(t, DecisionNew)
		rep, err := h.pipeline.BuildTheme(ctx, ThemeRequest{Description: "cooking", SourceLang: "Dutch", TargetLang: "English"})
		require.NoError(t, err)
		assert.False(t, rep.Reused)
		assert.Equal(t, "vocab_cooking_2", rep.Theme.TableName)
	})

	t.Run("cancel", func(t *testing.T) {
		h := setup(t, DecisionCancel)
		_, err := h.pipeline.BuildTheme(ctx, ThemeRequest{Description: "cooking", SourceLang: "Dutch", TargetLang: "English"})
		require.ErrorIs(t, err, ErrCanceled)
		assert.Empty(t, h.extractor.themes)
	})
}

func TestBuildThemeForceNewSkipsDetection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	for _, name := range []string{"vocab_travel", "vocab_travel_2"} {
		_, err := h.store.CreateTheme(ctx, db.NewTheme{
			TableName: name, Description: "travel", SourceLang: "Spanish", TargetLang: "English",
		})
		require.NoError(t, err)
	}
	h.related.found = true
	h.extractor.candidates = []domain.Candidate{cand("viaje", "trip", "Buen viaje.")}

	rep, err := h.pipeline.BuildTheme(ctx, ThemeRequest{
		Description: "Travel", SourceLang: "Spanish", TargetLang: "English", ForceNew: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, h.related.calls)
	assert.Equal(t, "vocab_travel_3", rep.Theme.TableName)
	assert.Equal(t, "Travel", rep.Theme.DeckName)
}

func TestBuildThemeValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.pipeline.BuildTheme(context.Background(), ThemeRequest{Description: "  "})
	require.ErrorIs(t, err, domain.ErrValidation)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestDeckName(t *testing.T) {
	tests := []struct {
		desc  string
		table string
		want  string
	}{
		{"cooking in Dutch", "vocab_cooking_in_dutch", "Cooking-Dutch"},
		{"the big LONG story about winter sports", "t", "Long-Story-About"},
		{"a b c", "vocab_a_b_c", "vocab_a_b_c"},
		{"économie mondiale", "t", "Économie-Mondiale"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, DeckName(tt.desc, tt.table))
		})
	}
}

// takenNames reports every table name as registered except free.
type takenNames struct {
	Store
	free   string
	looked []string
}

func (s *takenNames) GetTheme(_ context.Context, name string) (domain.Theme, error) {
	s.looked = append(s.looked, name)
	if name == s.free {
		return domain.Theme{}, fmt.Errorf("theme %s: %w", name, domain.ErrNotFound)
	}
	return domain.Theme{TableName: name}, nil
}

func TestResolveTableNameChecksEverySuffix(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	store := &takenNames{free: "vocab_travel_1000"}
	h.pipeline.Store = store
	name, err := h.pipeline.ResolveTableName(ctx, "travel")
	require.NoError(t, err)
	assert.Equal(t, "vocab_travel_1000", name)
	assert.Len(t, store.looked, 1000)
	assert.Equal(t, "vocab_travel", store.looked[0])
	assert.Equal(t, "vocab_travel_2", store.looked[1])

	h.pipeline.Store = &takenNames{}
	_, err = h.pipeline.ResolveTableName(ctx, "travel")
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
}
