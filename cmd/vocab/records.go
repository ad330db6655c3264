package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/vocab/pkg/domain"
)

var (
	listTheme  string
	listLimit  int
	listOffset int
	statsTheme string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored words, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show word counts by part of speech and theme",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var searchCmd = &cobra.Command{
	Use:   "search <table> [term]",
	Short: "Search a theme by lemma or translation",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSearch,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored word",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one stored word",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	listCmd.Flags().StringVar(&listTheme, "theme", "", "only list one theme or partition")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "maximum number of words")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "number of words to skip")
	statsCmd.Flags().StringVar(&statsTheme, "theme", "", "only count one theme or partition")

	rootCmd.AddCommand(listCmd, statsCmd, searchCmd, showCmd, deleteCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	records, total, err := current.store.ListPage(cmd.Context(), listTheme, listLimit, listOffset)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No words found.")
		return nil
	}
	for _, r := range records {
		printRow(out, r)
	}
	fmt.Fprintf(out, "Showing %d of %d\n", len(records), total)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	st, err := current.store.Stats(cmd.Context(), statsTheme)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total words: %d\n", st.TotalWords)
	printCounts(out, "By part of speech", st.ByPartOfSpeech)
	printCounts(out, "By theme", st.ByTheme)
	return nil
}

func printCounts(out io.Writer, title string, counts []domain.Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n", title)
	for _, c := range counts {
		key := c.Key
		if key == "" {
			key = "(none)"
		}
		fmt.Fprintf(out, "  %-20s %d\n", key, c.N)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	var term string
	if len(args) == 2 {
		term = args[1]
	}
	records, err := current.store.Search(cmd.Context(), args[0], term)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No words found.")
		return nil
	}
	for _, r := range records {
		printRow(out, r)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	r, err := current.store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	printRecord(cmd.OutOrStdout(), r)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := current.store.Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted word %d\n", id)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", fmt.Sprintf("%q is not a word id", s))
	}
	return id, nil
}

func printRow(out io.Writer, r domain.Record) {
	pos := ""
	if r.POS != "" {
		pos = " (" + r.POS + ")"
	}
	fmt.Fprintf(out, "%5d  %s%s - %s  [%s]\n", r.ID, r.Lemma, pos, r.Translation, r.Theme)
}

func printRecord(out io.Writer, r domain.Record) {
	fmt.Fprintf(out, "ID:          %d\n", r.ID)
	fmt.Fprintf(out, "Lemma:       %s\n", r.Lemma)
	fmt.Fprintf(out, "Word:        %s\n", r.Word)
	fmt.Fprintf(out, "Translation: %s\n", r.Translation)
	if r.POS != "" {
		fmt.Fprintf(out, "POS:         %s\n", r.POS)
	}
	if r.Gender != "" {
		fmt.Fprintf(out, "Gender:      %s\n", r.Gender)
	}
	fmt.Fprintf(out, "Languages:   %s -> %s\n", r.SourceLang, r.TargetLang)
	fmt.Fprintf(out, "Theme:       %s\n", r.Theme)
	if r.Source != "" {
		fmt.Fprintf(out, "Source:      %s\n", r.Source)
	}
	fmt.Fprintf(out, "Added:       %s\n", r.AddedAt.Format("2006-01-02 15:04"))
	if len(r.Examples) > 0 {
		fmt.Fprintf(out, "Examples:\n  %s\n", strings.Join(r.Examples, "\n  "))
	}
}
