// Package config provides configuration types, defaults, and persistence for procwatch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/procwatch/internal/log"
	"github.com/zjrosen/procwatch/internal/tracing"
)

// Config holds all procwatch configuration.
type Config struct {
	Verbose bool              `mapstructure:"verbose"`
	Label   string            `mapstructure:"label"`
	WinID   int               `mapstructure:"win_id"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Env     map[string]string `mapstructure:"env"`
	History HistoryConfig     `mapstructure:"history"`
	Log     LogConfig         `mapstructure:"log"`
	Tracing TracingConfig     `mapstructure:"tracing"`
	UI      UIConfig          `mapstructure:"ui"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // Empty uses DefaultHistoryPath
	Keep    int    `mapstructure:"keep"` // Runs retained; 0 keeps everything
}

// LogConfig controls the debug log file.
type LogConfig struct {
	Debug bool   `mapstructure:"debug"`
	Path  string `mapstructure:"path"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"` // none, file, stdout, otlp
	FilePath     string  `mapstructure:"file_path"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// UIConfig holds terminal presentation settings.
type UIConfig struct {
	TUI           bool          `mapstructure:"tui"`
	NotifyTimeout time.Duration `mapstructure:"notify_timeout"`
	Plain         bool          `mapstructure:"plain"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Label: "process",
		History: HistoryConfig{
			Enabled: true,
			Keep:    500,
		},
		Log: LogConfig{
			Path: "debug.log",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     DefaultTracesFilePath(),
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		UI: UIConfig{
			NotifyTimeout: 5 * time.Second,
		},
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if c.Label == "" {
		return fmt.Errorf("label must not be empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.History.Keep < 0 {
		return fmt.Errorf("history.keep must not be negative, got %d", c.History.Keep)
	}
	if c.History.Path != "" && !filepath.IsAbs(c.History.Path) {
		return fmt.Errorf("history.path must be an absolute path, got %q", c.History.Path)
	}
	if c.UI.NotifyTimeout < 0 {
		return fmt.Errorf("ui.notify_timeout must not be negative, got %s", c.UI.NotifyTimeout)
	}
	for k := range c.Env {
		if k == "" {
			return fmt.Errorf("env: empty variable name")
		}
	}
	return ValidateTracing(c.Tracing)
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// ToTracing converts the tracing section into the tracing package's Config.
func (t TracingConfig) ToTracing() tracing.Config {
	cfg := tracing.DefaultConfig()
	cfg.Enabled = t.Enabled
	if t.Exporter != "" {
		cfg.Exporter = t.Exporter
	}
	cfg.FilePath = ExpandHome(t.FilePath)
	if t.OTLPEndpoint != "" {
		cfg.OTLPEndpoint = t.OTLPEndpoint
	}
	cfg.SampleRate = t.SampleRate
	return cfg
}

// HistoryPath returns the configured database path or the default.
func (c Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return DefaultHistoryPath()
}

// Dir returns the user config directory for procwatch.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "procwatch")
	}
	return filepath.Join(home, ".config", "procwatch")
}

// DefaultHistoryPath returns ~/.config/procwatch/history.db.
func DefaultHistoryPath() string {
	return filepath.Join(Dir(), "history.db")
}

// DefaultTracesFilePath returns ~/.config/procwatch/traces/traces.jsonl.
func DefaultTracesFilePath() string {
	return filepath.Join(Dir(), "traces", "traces.jsonl")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# procwatch configuration

# Announce "Executing: ..." and successful exits
verbose: false

# Human-readable name used in notifications ("<label> exited with status 1.")
label: process

# Kill the child after this long (0 disables)
timeout: 0s

# Extra environment variables for every spawned child
# env:
#   RUST_BACKTRACE: "1"

# Run history (SQLite)
history:
  enabled: true
  # path: /home/me/.config/procwatch/history.db
  keep: 500            # Runs retained; 0 keeps everything

# Debug logging (also enabled by PROCWATCH_DEBUG=1)
log:
  debug: false
  path: debug.log

# Terminal presentation
ui:
  tui: false           # Show a live status view while the child runs
  notify_timeout: 5s   # How long toasts stay on screen in the TUI
  plain: false         # Print "error: ..." lines instead of boxed toasts

# Distributed tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/procwatch/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
