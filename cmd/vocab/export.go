package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/japaniel/vocab/pkg/anki"
	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/export"
)

var (
	exportOutput string
	exportTheme  string
	audioTheme   string
	syncAll      bool
	syncTheme    string
	syncDeck     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export words as a ;-separated CSV for Anki import",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var audioCmd = &cobra.Command{
	Use:   "audio",
	Short: "Generate missing pronunciation audio",
	Args:  cobra.NoArgs,
	RunE:  runAudio,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync words to Anki through AnkiConnect",
	Long: `Creates one note per word in the matching deck. Without flags the
default partition goes to the default deck. Words already in the deck are
skipped, so sync can be rerun safely.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "output file, - for stdout")
	exportCmd.Flags().StringVar(&exportTheme, "theme", "", "only export one theme or partition")
	audioCmd.Flags().StringVar(&audioTheme, "theme", "", "only cover one theme or partition")
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync the default partition and every theme")
	syncCmd.Flags().StringVar(&syncTheme, "theme", "", "sync one registered theme into its deck")
	syncCmd.Flags().StringVar(&syncDeck, "deck", "", "deck for the default partition (default from config)")
	syncCmd.MarkFlagsMutuallyExclusive("all", "theme")

	rootCmd.AddCommand(exportCmd, audioCmd, syncCmd)
}

func runExport(cmd *cobra.Command, _ []string) (err error) {
	records, err := current.store.ListAll(cmd.Context(), exportTheme)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "-" {
		f, ferr := os.Create(exportOutput)
		if ferr != nil {
			return fmt.Errorf("create %s: %w", exportOutput, ferr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}

	n, err := export.WriteCSV(w, records, current.audio.Exists)
	if err != nil {
		return err
	}
	if exportOutput != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d words to %s\n", n, exportOutput)
	}
	return nil
}

func runAudio(cmd *cobra.Command, _ []string) error {
	records, err := current.store.ListAll(cmd.Context(), audioTheme)
	if err != nil {
		return err
	}

	byLang := make(map[string][]string)
	for _, r := range records {
		byLang[r.SourceLang] = append(byLang[r.SourceLang], r.Lemma)
	}
	langs := make([]string, 0, len(byLang))
	for l := range byLang {
		langs = append(langs, l)
	}
	sort.Strings(langs)

	out := cmd.OutOrStdout()
	var total domain.Tally
	for _, lang := range langs {
		outcomes, err := current.audio.Generate(cmd.Context(), byLang[lang], lang)
		if err != nil {
			fmt.Fprintf(out, "skipped %s: %v\n", lang, err)
			continue
		}
		t := domain.Summarize(outcomes)
		total.Added += t.Added
		total.Skipped += t.Skipped
		total.Failed += t.Failed
		for _, o := range outcomes {
			if o.Kind == domain.OutcomeFailed {
				fmt.Fprintf(out, "  failed %s: %s\n", o.Key, o.Reason)
			}
		}
	}
	fmt.Fprintf(out, "Audio: %d generated, %d existing, %d failed\n", total.Added, total.Skipped, total.Failed)
	return nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	s := current.syncer()
	ctx := cmd.Context()
	deck := syncDeck
	if deck == "" {
		deck = current.cfg.Defaults.Deck
	}

	var (
		results []anki.DeckResult
		err     error
	)
	switch {
	case syncAll:
		results, err = s.SyncAll(ctx, current.cfg.Defaults.Theme, deck)
	case syncTheme != "":
		var res anki.DeckResult
		res, err = s.SyncTheme(ctx, syncTheme)
		results = append(results, res)
	default:
		var res anki.DeckResult
		res, err = s.SyncDefault(ctx, current.cfg.Defaults.Theme, deck)
		results = append(results, res)
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Deck == "" {
			continue
		}
		t := r.Tally()
		fmt.Fprintf(out, "%s: %d added, %d skipped, %d failed\n", r.Deck, t.Added, t.Skipped, t.Failed)
		for _, o := range r.Outcomes {
			if o.Kind == domain.OutcomeFailed {
				fmt.Fprintf(out, "  failed %s: %s\n", o.Key, o.Reason)
			}
		}
	}
	if errors.Is(err, domain.ErrServiceUnavailable) {
		return fmt.Errorf("%w (is Anki running with AnkiConnect?)", err)
	}
	return err
}
