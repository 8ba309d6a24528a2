// Package config loads ccu configuration from a TOML file with sensible
// defaults and environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all ccu configuration.
type Config struct {
	General  GeneralConfig  `toml:"general"`
	Analysis AnalysisConfig `toml:"analysis"`
}

// GeneralConfig holds pipeline paths.
type GeneralConfig struct {
	// ConversationsDir is the root the export hook writes transcripts under,
	// one subdirectory per project.
	ConversationsDir string `toml:"conversations_dir,omitempty"`
	// DBPath is the SQLite database file.
	DBPath string `toml:"db_path,omitempty"`
}

// AnalysisConfig holds LLM summarization settings.
type AnalysisConfig struct {
	BaseURL   string `toml:"base_url,omitempty"`
	APIKey    string `toml:"api_key,omitempty"`
	Model     string `toml:"model,omitempty"`
	OutputDir string `toml:"output_dir,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		General: GeneralConfig{
			ConversationsDir: filepath.Join(home, ".claude", "projects"),
			DBPath:           filepath.Join(home, "claude-conversations", "conversations.db"),
		},
		Analysis: AnalysisConfig{
			BaseURL:   "https://openrouter.ai/api/v1",
			Model:     "anthropic/claude-sonnet-4",
			OutputDir: filepath.Join(home, "claude-conversations", "analyses"),
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ccu")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ccu")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	if err := os.MkdirAll(ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return toml.NewEncoder(f).Encode(cfg)
}

// APIKey returns the analysis API key from the environment or config, in
// that order.
func APIKey(cfg Config) string {
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		return key
	}
	return cfg.Analysis.APIKey
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
