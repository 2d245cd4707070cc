package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"photopost/pkg/auth"
	"photopost/pkg/config"
	"photopost/pkg/logger"
	"photopost/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
	noColor    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "photopost",
	Short: "Post a photo from a local folder to a Telegram channel",
	Long: `photopost picks one photo from a folder, favouring the ones posted least
often, captions it from its EXIF metadata and posts it to a Telegram channel.

Run it from cron or a systemd timer to keep a channel fed:

  0 10 * * *  photopost post --quiet

Configuration is read from (highest priority first):
  - Command line flags
  - Environment variables (PHOTOPOST_*)
  - .env files
  - Configuration file (.photopost.yaml)
  - Default values`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetQuietMode(quiet)
		ui.SetColor(!noColor && term.IsTerminal(int(os.Stdout.Fd())))
	},
}

// Execute runs the root command and exits non-zero on any error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.photopost.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.SetVersionTemplate(`photopost {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves configuration with the global flags merged in. Only
// commands that post need a validated configuration.
func loadConfig(validate bool, flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	if validate {
		return config.Load(configFile, flags)
	}
	return config.Resolve(configFile, flags)
}

// newLogger builds the process logger. In quiet mode the console only shows
// errors; the log file, if any, keeps its own level.
func newLogger(cfg *config.Config) (logger.Logger, func(), error) {
	logCfg := cfg.Logging
	if quiet {
		logCfg.Level = "error"
	}

	log, err := logger.New(&logCfg)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, func() { _ = logger.Close(log) }, nil
}

// resolveToken returns the bot token from configuration, or from the
// credential store profile named by telegram.account
func resolveToken(cfg *config.Config) (string, error) {
	if token := strings.TrimSpace(cfg.Telegram.Token); token != "" {
		return token, nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return "", fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	cred, err := manager.Retrieve(cfg.Telegram.Account)
	if err != nil {
		return "", fmt.Errorf("no bot token for profile %q (run 'photopost auth login'): %w", cfg.Telegram.Account, err)
	}
	return cred.Token, nil
}
