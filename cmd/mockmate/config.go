package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jxucoder/mockmate/internal/config"
)

// configKey describes a single configuration value.
type configKey struct {
	Key    string
	Desc   string
	Secret bool
}

// allConfigKeys lists every configurable value in display order.
var allConfigKeys = []configKey{
	{"GEMINI_API_KEY", "Gemini API key (required for the relay)", true},
	{"MOCKMATE_ADDR", "Server listen address", false},
	{"MOCKMATE_DATA_DIR", "Data directory", false},
	{"MOCKMATE_STORE", "Interview store (sqlite, memory)", false},
	{"MOCKMATE_INTERVIEW_MODEL", "Model for interview turns", false},
	{"MOCKMATE_TRANSCRIBE_MODEL", "Model for transcription", false},
	{"MOCKMATE_PROVIDER_URL", "Provider base URL override", false},
	{"MOCKMATE_PROVIDER_TIMEOUT", "Provider call timeout", false},
	{"MOCKMATE_MAX_RETRIES", "Retries for 429/5xx provider errors", false},
	{"MOCKMATE_RETRY_BASE_DELAY", "First retry backoff", false},
	{"MOCKMATE_LOG_LEVEL", "Log level (debug, info, warn, error)", false},
	{"MOCKMATE_LOG_FORMAT", "Log format (console, json)", false},
}

// ---------------------------------------------------------------------------
// Cobra commands
// ---------------------------------------------------------------------------

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage MockMate configuration",
	Long: `Manage MockMate server configuration.

Configuration is stored in ~/.mockmate/config.env and can be overridden
by environment variables.

  mockmate config set KEY VALUE      Set a single config value
  mockmate config show               Show current configuration
  mockmate config path               Print config file path`,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a config value",
	Long: `Set a single configuration value. Example:
  mockmate config set GEMINI_API_KEY AIza...`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setConfigValue(cmd.OutOrStdout(), config.FilePath(), args[0], args[1])
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display all configured values. Secrets are masked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(cmd.OutOrStdout(), config.FilePath())
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), config.FilePath())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// ---------------------------------------------------------------------------
// Config file helpers
// ---------------------------------------------------------------------------

// loadConfigFile reads key=value pairs. A missing file is empty.
func loadConfigFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	return values, err
}

func saveConfigFile(path string, values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	for k, v := range values {
		if v == "" {
			delete(values, k)
		}
	}
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	// The file holds the API key.
	return os.Chmod(path, 0o600)
}

func setConfigValue(w io.Writer, path, key, value string) error {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}

	values, err := loadConfigFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	values[key] = value
	if err := saveConfigFile(path, values); err != nil {
		return err
	}

	if findKey(key).Secret {
		value = maskSecret(value)
	}
	fmt.Fprintf(w, "Set %s = %s\n", key, value)
	return nil
}

func showConfig(w io.Writer, path string) error {
	fileValues, err := loadConfigFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	fmt.Fprintf(w, "Config file: %s\n\n", path)
	for _, ck := range allConfigKeys {
		value, source := fileValues[ck.Key], ""
		if v := os.Getenv(ck.Key); v != "" {
			value, source = v, " (from env)"
		} else if value != "" {
			source = " (from config file)"
		}

		display := "(not set)"
		if value != "" {
			display = value
			if ck.Secret {
				display = maskSecret(value)
			}
		}
		fmt.Fprintf(w, "  %-27s %s%s\n", ck.Key, display, source)
	}
	return nil
}

// findKey looks up a configKey by name.
func findKey(name string) configKey {
	for _, ck := range allConfigKeys {
		if ck.Key == name {
			return ck
		}
	}
	return configKey{Key: name}
}

// maskSecret masks a secret string, showing only the first 4 and last 4 characters.
func maskSecret(s string) string {
	if len(s) <= 12 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
