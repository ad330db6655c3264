// Command vocab collects foreign-language vocabulary from articles and
// themes, stores it in SQLite and ships it to Anki.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	flagDB       string
	flagAudioDir string
	flagConfig   string
)

var rootCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Build a vocabulary database from articles and themes",
	Long: `vocab asks a language model for useful words from a web article or a
free-text theme, merges them into a local SQLite database, generates
pronunciation audio and syncs everything to Anki.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: openApp,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to the SQLite database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagAudioDir, "audio-dir", "", "directory for audio files (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML config file")

	// Runs after every command, including failed ones.
	cobra.OnFinalize(closeApp)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
