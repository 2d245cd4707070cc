package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"photopost/pkg/auth"
	"photopost/pkg/ui"
)

const defaultConfigPath = ".photopost.yaml"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage photopost configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (PHOTOPOST_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.photopost.yaml'
unless a different path is specified with the --config flag.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging all sources.

The bot token is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the effective configuration for a post.

This command checks:
  - YAML syntax
  - Required fields (chat ID, folders, extensions)
  - The after-post policy and its paths
  - Resize and logging values`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# photopost configuration
#
# Every value can also be set with a PHOTOPOST_* environment variable,
# for example PHOTOPOST_CHAT_ID or PHOTOPOST_SOURCE_DIR.

telegram:
  # Channel username (@name) or numeric chat ID
  chat_id: "@my_photo_channel"

  # Credential profile holding the bot token (see 'photopost auth login').
  # A token set here or in PHOTOPOST_TELEGRAM_TOKEN takes precedence.
  account: "default"

  base_url: "https://api.telegram.org"
  connect_timeout: 30s
  read_timeout: 30s
  write_timeout: 30s

photos:
  source_dir: "./photos"
  # Working copies of downscaled photos
  resized_dir: "./resized"
  # Posted photos are moved here when after_post is "archive"
  archive_dir: "./posted"
  extensions: ["jpg", "jpeg", "png"]

posting:
  # "ledger" counts posts per photo, "archive" moves posted photos away
  after_post: "ledger"
  ledger_path: "./posted_photos.json"

  # SQLite journal of every post (optional)
  history_path: ""

  # Appended to every caption on its own paragraph
  caption_suffix: ""

  cleanup_resized_on_failure: false
  dry_run: false

resize:
  # Photos wider or taller than this are downscaled before posting
  threshold: 4096
  max_dimension: 2048
  quality: 100
  preserve_exif: true

caption:
  # Label language: ru or en
  language: "ru"

logging:
  level: "info"
  # JSON log file with rotation (optional)
  file: ""
  file_level: "debug"
  max_size: 1
  max_backups: 5
  max_age: 0
  compress: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	ui.PrintBlock(`Next steps:
1. Set telegram.chat_id and photos.source_dir
2. Store the bot token with 'photopost auth login'
3. Check everything with 'photopost config validate'
4. Try a run with 'photopost post --dry-run'`)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false, nil)
	if err != nil {
		return err
	}

	display := *cfg
	if display.Telegram.Token != "" {
		display.Telegram.Token = auth.SanitizeToken(display.Telegram.Token)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(true, nil); err != nil {
		return err
	}
	ui.PrintSuccess("Configuration is valid")
	return nil
}
