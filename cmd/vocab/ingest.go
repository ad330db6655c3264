package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/ingest"
)

var (
	addCount        int
	addInstructions string
	addTheme        string
	addSource       string
	addTarget       string
	addCookie       string
	addAllowShort   bool
)

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add vocabulary from a web article",
	Long: `Fetches the article, asks the model for words you do not know yet and
merges them into the default partition with the article URL as source.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var (
	themeList     bool
	themeSource   string
	themeTarget   string
	themeCount    int
	themeForceNew bool
	themeYes      bool
)

var themeCmd = &cobra.Command{
	Use:   "theme [description]",
	Short: "Generate vocabulary for a theme",
	Long: `Generates vocabulary for a free-text theme such as "cooking in Dutch".
When a registered theme with the same language pair covers the same topic
you are asked whether to add to it instead of creating a new one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTheme,
}

var pickTheme string

var pickCmd = &cobra.Command{
	Use:   "pick <query>",
	Short: "Find the stored word matching a description",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPick,
}

func init() {
	addCmd.Flags().IntVarP(&addCount, "count", "n", 0, "number of words to extract (default from config)")
	addCmd.Flags().StringVarP(&addInstructions, "instructions", "i", "", "extra guidance for the word choice")
	addCmd.Flags().StringVar(&addTheme, "theme", "", "partition label (default from config)")
	addCmd.Flags().StringVar(&addSource, "source", "", "language of the article")
	addCmd.Flags().StringVar(&addTarget, "target", "", "language of the translations")
	addCmd.Flags().StringVar(&addCookie, "cookie", "", "cookie header for paywalled sites")
	addCmd.Flags().BoolVar(&addAllowShort, "allow-short", false, "continue when little text was extracted")
	rootCmd.AddCommand(addCmd)

	themeCmd.Flags().BoolVar(&themeList, "list", false, "list registered themes")
	themeCmd.Flags().StringVar(&themeSource, "source", "", "language to learn (default from config)")
	themeCmd.Flags().StringVar(&themeTarget, "target", "", "language of the translations (default from config)")
	themeCmd.Flags().IntVarP(&themeCount, "count", "n", 0, "number of words to generate (default from config)")
	themeCmd.Flags().BoolVar(&themeForceNew, "force-new", false, "always create a new theme")
	themeCmd.Flags().BoolVarP(&themeYes, "yes", "y", false, "add to a related theme without asking")
	rootCmd.AddCommand(themeCmd)

	pickCmd.Flags().StringVar(&pickTheme, "theme", "", "only consider one theme")
	rootCmd.AddCommand(pickCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	p, err := current.pipeline()
	if err != nil {
		return err
	}
	p.OnProgress = progressTo(cmd.ErrOrStderr())

	cookie := addCookie
	if cookie == "" {
		cookie = current.cfg.Article.Cookie
	}
	rep, err := p.AddArticle(cmd.Context(), ingest.ArticleRequest{
		URL:          args[0],
		Cookie:       cookie,
		Instructions: addInstructions,
		Count:        addCount,
		Theme:        addTheme,
		SourceLang:   addSource,
		TargetLang:   addTarget,
		AllowShort:   addAllowShort,
	})
	if errors.Is(err, domain.ErrTextTooShort) {
		return fmt.Errorf("%w (rerun with --allow-short to use it anyway)", err)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Title: %s\n", rep.Article.Title)
	fmt.Fprintf(out, "Words in article: %d\n", rep.WordCount)
	printOutcomes(out, rep.New, rep.Updated, rep.Outcomes, rep.Audio)
	return nil
}

func runTheme(cmd *cobra.Command, args []string) error {
	if themeList {
		return listThemes(cmd)
	}
	if len(args) == 0 {
		return errors.New("a theme description is required (or use --list)")
	}

	p, err := current.pipeline()
	if err != nil {
		return err
	}
	p.OnProgress = progressTo(cmd.ErrOrStderr())
	if !themeYes {
		p.Confirm = promptConfirm(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	req := ingest.ThemeRequest{
		Description: args[0],
		SourceLang:  themeSource,
		TargetLang:  themeTarget,
		Count:       themeCount,
		ForceNew:    themeForceNew,
	}
	if req.SourceLang == "" {
		req.SourceLang = current.cfg.Defaults.SourceLang
	}
	if req.TargetLang == "" {
		req.TargetLang = current.cfg.Defaults.TargetLang
	}

	rep, err := p.BuildTheme(cmd.Context(), req)
	if errors.Is(err, ingest.ErrCanceled) {
		fmt.Fprintln(cmd.OutOrStdout(), "Canceled.")
		return nil
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	verb := "Created"
	if rep.Reused {
		verb = "Extended"
	}
	fmt.Fprintf(out, "%s theme %s (deck %s, %d words)\n", verb, rep.Theme.TableName, rep.Theme.DeckName, rep.Theme.WordCount)
	printOutcomes(out, rep.New, rep.Updated, rep.Outcomes, rep.Audio)
	return nil
}

func listThemes(cmd *cobra.Command) error {
	themes, err := current.store.ListThemes(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(themes) == 0 {
		fmt.Fprintln(out, "No themes yet.")
		return nil
	}
	for _, t := range themes {
		fmt.Fprintf(out, "%s  %s  (%s -> %s, %d words, deck %s)\n",
			t.TableName, t.Description, t.SourceLang, t.TargetLang, t.WordCount, t.DeckName)
	}
	return nil
}

func runPick(cmd *cobra.Command, args []string) error {
	p, err := current.pipeline()
	if err != nil {
		return err
	}
	r, err := p.Pick(cmd.Context(), strings.Join(args, " "), pickTheme)
	if err != nil {
		return err
	}
	printRecord(cmd.OutOrStdout(), r)
	return nil
}

func progressTo(w io.Writer) func(string) {
	return func(stage string) { fmt.Fprintf(w, "%s...\n", stage) }
}

// promptConfirm asks on in whether to reuse a related theme. An empty
// answer or end of input means yes.
func promptConfirm(in io.Reader, out io.Writer) ingest.ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(_ context.Context, related domain.Theme) (ingest.Decision, error) {
		for {
			fmt.Fprintf(out, "Related theme found: %s (%s, %d words)\nAdd the words to it? [Y/n/c] ",
				related.TableName, related.Description, related.WordCount)
			line, err := reader.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return ingest.DecisionCancel, err
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "", "y", "yes":
				return ingest.DecisionReuse, nil
			case "n", "no":
				return ingest.DecisionNew, nil
			case "c", "cancel":
				return ingest.DecisionCancel, nil
			}
			if errors.Is(err, io.EOF) {
				return ingest.DecisionCancel, nil
			}
		}
	}
}

func printOutcomes(out io.Writer, added, updated int, outcomes, audioOutcomes []domain.Outcome) {
	fmt.Fprintf(out, "Added %d new words, updated %d\n", added, updated)
	for _, o := range outcomes {
		if o.Kind == domain.OutcomeFailed {
			fmt.Fprintf(out, "  failed %s: %s\n", o.Key, o.Reason)
		}
	}
	if len(audioOutcomes) > 0 {
		t := domain.Summarize(audioOutcomes)
		fmt.Fprintf(out, "Audio: %d generated, %d existing, %d failed\n", t.Added, t.Skipped, t.Failed)
	}
}
