package cmd

import (
	"fmt"
	"os"

	"github.com/sujankapadia/claude-code-utils/internal/config"
	"github.com/sujankapadia/claude-code-utils/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagDB     string
	flagSource string
	flagQuiet  bool
)

var rootCmd = &cobra.Command{
	Use:   "ccu",
	Short: "Claude Code conversation analytics",
	Long: "Import Claude Code conversation transcripts into a local SQLite store,\n" +
		"then browse, search, and summarize them.",
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Path to the SQLite database (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagSource, "source", "", "Conversations root directory (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// loadConfig merges the config file with command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagDB != "" {
		cfg.General.DBPath = flagDB
	}
	if flagSource != "" {
		cfg.General.ConversationsDir = flagSource
	}
	return cfg, nil
}

// openStore opens the database named by config/flags. Callers own Close.
func openStore() (*store.Store, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	st, err := store.Open(cfg.General.DBPath)
	if err != nil {
		return nil, cfg, fmt.Errorf("opening store at %s: %w", cfg.General.DBPath, err)
	}
	return st, cfg, nil
}

func progress(current, total int) {
	if flagQuiet {
		return
	}
	if current%50 == 0 || current == total {
		fmt.Fprintf(os.Stderr, "\r  Importing [%d/%d]", current, total)
	}
}
