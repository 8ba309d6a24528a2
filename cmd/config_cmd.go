// Package cmd implements the ccu CLI commands.
package cmd

import (
	"fmt"

	"github.com/sujankapadia/claude-code-utils/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current defaults",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Conversations dir: %s\n", cfg.General.ConversationsDir)
	fmt.Printf("    Database:          %s\n", cfg.General.DBPath)
	fmt.Println()

	fmt.Println("  [Analysis]")
	fmt.Printf("    Base URL:   %s\n", cfg.Analysis.BaseURL)
	fmt.Printf("    Model:      %s\n", cfg.Analysis.Model)
	fmt.Printf("    Output dir: %s\n", cfg.Analysis.OutputDir)
	if key := config.APIKey(cfg); key != "" {
		fmt.Printf("    API key:    %s\n", maskAPIKey(key))
	} else {
		fmt.Println("    API key:    not configured")
	}

	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	if config.Exists() {
		return fmt.Errorf("config already exists at %s", config.ConfigPath())
	}
	if err := config.Save(config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Printf("  Wrote %s\n", config.ConfigPath())
	return nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
