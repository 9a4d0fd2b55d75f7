// Package config provides configuration management for MockMate.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the MockMate server.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (e.g., ":7080").
	ServerAddr string `env:"MOCKMATE_ADDR" envDefault:":7080"`

	// DataDir is the directory for persistent data (SQLite DB, config file).
	// Defaults to ~/.mockmate.
	DataDir string `env:"MOCKMATE_DATA_DIR"`

	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string `env:"-"`

	// GeminiAPIKey is the provider credential. Without it the relay endpoints
	// answer 500 and never call out.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`

	InterviewModel  string `env:"MOCKMATE_INTERVIEW_MODEL" envDefault:"gemini-2.5-flash"`
	TranscribeModel string `env:"MOCKMATE_TRANSCRIBE_MODEL" envDefault:"gemini-2.0-flash"`

	// ProviderURL overrides the Gemini API base URL. Empty uses the SDK default.
	ProviderURL string `env:"MOCKMATE_PROVIDER_URL"`

	// ProviderTimeout bounds one relay call to the provider, retries included.
	ProviderTimeout time.Duration `env:"MOCKMATE_PROVIDER_TIMEOUT" envDefault:"60s"`

	// MaxRetries is the number of extra attempts for 429/5xx provider
	// responses. 0 means exactly one call.
	MaxRetries     int           `env:"MOCKMATE_MAX_RETRIES" envDefault:"0"`
	RetryBaseDelay time.Duration `env:"MOCKMATE_RETRY_BASE_DELAY" envDefault:"500ms"`

	LogLevel  string `env:"MOCKMATE_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"MOCKMATE_LOG_FORMAT" envDefault:"console"`

	// Store selects the interview history backend: "sqlite" or "memory".
	Store string `env:"MOCKMATE_STORE" envDefault:"sqlite"`
}

// Load creates a Config from the config file and environment variables.
// Values are resolved in order: environment variable > config file > default.
func Load() (*Config, error) {
	// godotenv.Load never overrides variables already in the environment.
	if path := FilePath(); fileExists(path) {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	cfg.DatabasePath = filepath.Join(cfg.DataDir, "mockmate.db")

	return cfg, nil
}

// Validate checks that the configuration is usable. A missing API key is not
// an error: the server still starts and reports the relay as unconfigured.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("MOCKMATE_STORE must be sqlite or memory, got %q", c.Store))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("MOCKMATE_LOG_FORMAT must be console or json, got %q", c.LogFormat))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("MOCKMATE_MAX_RETRIES must not be negative"))
	}
	if c.ProviderTimeout < 0 {
		errs = append(errs, fmt.Errorf("MOCKMATE_PROVIDER_TIMEOUT must not be negative"))
	}
	return errors.Join(errs...)
}

// RelayConfigured reports whether the provider credential is present.
func (c *Config) RelayConfigured() bool {
	return c.GeminiAPIKey != ""
}

// FilePath returns ~/.mockmate/config.env.
func FilePath() string {
	return filepath.Join(DefaultDataDir(), "config.env")
}

// DefaultDataDir returns ~/.mockmate, or .mockmate when there is no home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mockmate"
	}
	return filepath.Join(home, ".mockmate")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
