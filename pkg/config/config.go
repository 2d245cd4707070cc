package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// After-post policies
const (
	AfterPostLedger  = "ledger"
	AfterPostArchive = "archive"
)

// Config holds all configuration options for photopost
type Config struct {
	// Telegram channel and bot settings
	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`

	// Photo folders
	Photos PhotosConfig `yaml:"photos" json:"photos"`

	// What happens around a post
	Posting PostingConfig `yaml:"posting" json:"posting"`

	// Oversized image handling
	Resize ResizeConfig `yaml:"resize" json:"resize"`

	// Caption rendering
	Caption CaptionConfig `yaml:"caption" json:"caption"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TelegramConfig holds the channel identifier, credentials and per-phase timeouts
type TelegramConfig struct {
	ChatID         string        `yaml:"chat_id" json:"chat_id"`
	Token          string        `yaml:"token" json:"-"`
	Account        string        `yaml:"account" json:"account"`
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// PhotosConfig holds folder locations and the extension allow-list
type PhotosConfig struct {
	SourceDir  string   `yaml:"source_dir" json:"source_dir"`
	ResizedDir string   `yaml:"resized_dir" json:"resized_dir"`
	ArchiveDir string   `yaml:"archive_dir" json:"archive_dir"`
	Extensions []string `yaml:"extensions" json:"extensions"`
}

// PostingConfig holds post bookkeeping options
type PostingConfig struct {
	AfterPost               string `yaml:"after_post" json:"after_post"`
	LedgerPath              string `yaml:"ledger_path" json:"ledger_path"`
	HistoryPath             string `yaml:"history_path" json:"history_path"`
	CaptionSuffix           string `yaml:"caption_suffix" json:"caption_suffix"`
	CleanupResizedOnFailure bool   `yaml:"cleanup_resized_on_failure" json:"cleanup_resized_on_failure"`
	DryRun                  bool   `yaml:"dry_run" json:"dry_run"`
}

// ResizeConfig holds the downscale trigger and target
type ResizeConfig struct {
	Threshold    int  `yaml:"threshold" json:"threshold"`
	MaxDimension int  `yaml:"max_dimension" json:"max_dimension"`
	Quality      int  `yaml:"quality" json:"quality"`
	PreserveExif bool `yaml:"preserve_exif" json:"preserve_exif"`
}

// CaptionConfig selects the caption label language
type CaptionConfig struct {
	Language string `yaml:"language" json:"language"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	FileLevel  string `yaml:"file_level" json:"file_level"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Account:        "default",
			BaseURL:        "https://api.telegram.org",
			ConnectTimeout: 30 * time.Second,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
		},
		Photos: PhotosConfig{
			SourceDir:  "./photos",
			ResizedDir: "./resized",
			ArchiveDir: "./posted",
			Extensions: []string{"jpg", "jpeg", "png"},
		},
		Posting: PostingConfig{
			AfterPost:  AfterPostLedger,
			LedgerPath: "./posted_photos.json",
		},
		Resize: ResizeConfig{
			Threshold:    4096,
			MaxDimension: 2048,
			Quality:      100,
			PreserveExif: true,
		},
		Caption: CaptionConfig{
			Language: "ru",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			FileLevel:  "debug",
			MaxSize:    1,
			MaxBackups: 5,
			MaxAge:     0,
			Compress:   false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if chatID := os.Getenv("PHOTOPOST_CHAT_ID"); chatID != "" {
		c.Telegram.ChatID = chatID
	}
	if token := os.Getenv("PHOTOPOST_TELEGRAM_TOKEN"); token != "" {
		c.Telegram.Token = token
	}
	if account := os.Getenv("PHOTOPOST_ACCOUNT"); account != "" {
		c.Telegram.Account = account
	}

	if dir := os.Getenv("PHOTOPOST_SOURCE_DIR"); dir != "" {
		c.Photos.SourceDir = dir
	}
	if dir := os.Getenv("PHOTOPOST_RESIZED_DIR"); dir != "" {
		c.Photos.ResizedDir = dir
	}
	if dir := os.Getenv("PHOTOPOST_ARCHIVE_DIR"); dir != "" {
		c.Photos.ArchiveDir = dir
	}
	if exts := os.Getenv("PHOTOPOST_EXTENSIONS"); exts != "" {
		c.Photos.Extensions = splitList(exts)
	}

	if path := os.Getenv("PHOTOPOST_LEDGER_PATH"); path != "" {
		c.Posting.LedgerPath = path
	}
	if path := os.Getenv("PHOTOPOST_HISTORY_PATH"); path != "" {
		c.Posting.HistoryPath = path
	}
	if suffix := os.Getenv("PHOTOPOST_CAPTION_SUFFIX"); suffix != "" {
		c.Posting.CaptionSuffix = suffix
	}
	if policy := os.Getenv("PHOTOPOST_AFTER_POST"); policy != "" {
		c.Posting.AfterPost = strings.ToLower(policy)
	}

	if logLevel := os.Getenv("PHOTOPOST_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("PHOTOPOST_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home, _ := os.UserHomeDir()

	locations := []string{
		".photopost.yaml",
		".photopost.yml",
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, ".config", "photopost", "config.yaml"),
			filepath.Join(home, ".config", "photopost", "config.yml"),
			filepath.Join(home, ".photopost.yaml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid for a run
func (c *Config) Validate() error {
	var errs []error

	// Transport
	if !c.Posting.DryRun && c.Telegram.ChatID == "" {
		errs = append(errs, errors.New("telegram chat ID is required"))
	}
	if c.Telegram.BaseURL == "" {
		errs = append(errs, errors.New("telegram base URL is required"))
	}
	if c.Telegram.ConnectTimeout <= 0 || c.Telegram.ReadTimeout <= 0 || c.Telegram.WriteTimeout <= 0 {
		errs = append(errs, errors.New("telegram timeouts must be positive"))
	}

	// Folders
	if c.Photos.SourceDir == "" {
		errs = append(errs, errors.New("photo source directory is required"))
	}
	if c.Photos.ResizedDir == "" {
		errs = append(errs, errors.New("resized photo directory is required"))
	}
	if len(c.Photos.Extensions) == 0 {
		errs = append(errs, errors.New("at least one photo extension is required"))
	}
	if c.Photos.SourceDir != "" && c.Photos.ResizedDir != "" && nested(c.Photos.SourceDir, c.Photos.ResizedDir) {
		errs = append(errs, errors.New("resized photo directory must not be inside the source directory"))
	}

	// Post policy
	switch c.Posting.AfterPost {
	case AfterPostLedger:
		if c.Posting.LedgerPath == "" {
			errs = append(errs, errors.New("ledger path is required in ledger mode"))
		}
	case AfterPostArchive:
		if c.Photos.ArchiveDir == "" {
			errs = append(errs, errors.New("archive directory is required in archive mode"))
		} else if c.Photos.SourceDir != "" && (nested(c.Photos.SourceDir, c.Photos.ArchiveDir) || nested(c.Photos.ArchiveDir, c.Photos.SourceDir)) {
			errs = append(errs, errors.New("archive directory and source directory must not contain each other"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid after_post policy %q (want ledger or archive)", c.Posting.AfterPost))
	}

	// Resize
	if c.Resize.Threshold <= 0 || c.Resize.MaxDimension <= 0 {
		errs = append(errs, errors.New("resize dimensions must be positive"))
	} else if c.Resize.MaxDimension >= c.Resize.Threshold {
		errs = append(errs, errors.New("resize max dimension must be below the threshold"))
	}
	if c.Resize.Quality < 1 || c.Resize.Quality > 100 {
		errs = append(errs, errors.New("resize quality must be between 1 and 100"))
	}

	// Caption
	switch strings.ToLower(c.Caption.Language) {
	case "ru", "en":
	default:
		errs = append(errs, errors.New("invalid caption language"))
	}

	// Logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	if c.Logging.File != "" && !validLogLevels[strings.ToLower(c.Logging.FileLevel)] {
		errs = append(errs, errors.New("invalid file log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if chatID, ok := flags["chat-id"].(string); ok && chatID != "" {
		c.Telegram.ChatID = chatID
	}
	if account, ok := flags["account"].(string); ok && account != "" {
		c.Telegram.Account = account
	}
	if source, ok := flags["source"].(string); ok && source != "" {
		c.Photos.SourceDir = source
	}
	if ledgerPath, ok := flags["ledger"].(string); ok && ledgerPath != "" {
		c.Posting.LedgerPath = ledgerPath
	}
	if dryRun, ok := flags["dry-run"].(bool); ok && dryRun {
		c.Posting.DryRun = true
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence and
// validates it for a post.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	config, err := Resolve(configPath, flags)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Resolve is Load without validation, for commands that only inspect state
func Resolve(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".photopost.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	return config, nil
}

// nested reports whether dir is root or lies below it
func nested(root, dir string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// splitList splits a comma separated list, dropping blanks and leading dots
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), ".")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
