package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zjrosen/procwatch/internal/config"
	"github.com/zjrosen/procwatch/internal/log"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts so
	// the OSC 11 reply cannot race with the TUI's input loop.
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

// localConfigPath is checked before the user config directory.
const localConfigPath = ".procwatch/config.yaml"

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config

	closeLog = func() {}
)

// configKey annotates flags that override a config key.
const configKey = "procwatch_config_key"

// bindFlag marks flag name of fs as overriding key. Binding happens per
// command in PersistentPreRunE so commands sharing a flag name do not
// overwrite each other's binding.
func bindFlag(fs *pflag.FlagSet, name, key string) {
	_ = fs.SetAnnotation(name, configKey, []string{key})
}

var rootCmd = &cobra.Command{
	Use:   "procwatch",
	Short: "Run programs and report how they ended",
	Long: `procwatch runs an external program, watches its lifecycle and turns each
start, failure, crash and exit into a user-facing notification.

Runs are recorded in a local history database.`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: prepare,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/procwatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"enable debug logging (also: PROCWATCH_DEBUG=1)")
	bindFlag(rootCmd.PersistentFlags(), "debug", "log.debug")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("verbose", defaults.Verbose)
	viper.SetDefault("label", defaults.Label)
	viper.SetDefault("win_id", defaults.WinID)
	viper.SetDefault("timeout", defaults.Timeout)
	viper.SetDefault("history.enabled", defaults.History.Enabled)
	viper.SetDefault("history.keep", defaults.History.Keep)
	viper.SetDefault("log.path", defaults.Log.Path)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("ui.notify_timeout", defaults.UI.NotifyTimeout)

	viper.SetEnvPrefix("PROCWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .procwatch/config.yaml (current directory)
		// 2. ~/.config/procwatch/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			viper.AddConfigPath(config.Dir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// First run: seed the user config so there is something to edit.
			defaultPath := filepath.Join(config.Dir(), "config.yaml")
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
		}
	}
}

// prepare binds the running command's flags, loads cfg and starts logging.
func prepare(cmd *cobra.Command, _ []string) error {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys := f.Annotations[configKey]; len(keys) == 1 {
			_ = viper.BindPFlag(keys[0], f)
		}
	})

	cfg = config.Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	// viper lowercases map keys, so variable names are read verbatim.
	if used := viper.ConfigFileUsed(); used != "" {
		env, err := config.ReadEnv(used)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cfg.Env = env
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Log.Debug || log.DebugEnabled() {
		logPath := cfg.Log.Path
		if logPath == "" {
			logPath = "debug.log"
		}
		cleanup, err := log.InitWithTeaLog(logPath, "procwatch")
		if err != nil {
			return fmt.Errorf("initializing debug log: %w", err)
		}
		closeLog = cleanup
		log.Info(log.CatConfig, "procwatch starting",
			"version", version, "config", viper.ConfigFileUsed(), "logPath", logPath)
	}
	return nil
}

// configFilePath is where "config set" writes when no file was loaded.
func configFilePath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(config.Dir(), "config.yaml")
}

// Execute runs the root command.
func Execute() error {
	defer func() { closeLog() }()

	err := rootCmd.Execute()
	var exit *ExitError
	if err != nil && !errors.As(err, &exit) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// ExitError carries the exit status procwatch should terminate with.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode maps an Execute error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return 1
}
