package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"photopost/pkg/auth"
	"photopost/pkg/logger"
	"photopost/pkg/telegram"
	"photopost/pkg/ui"
)

var (
	verifyToken bool
	skipGuide   bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Telegram bot tokens",
	Long: `Manage stored Telegram bot tokens.

Tokens are stored per profile using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - PHOTOPOST_TELEGRAM_TOKEN environment variable (read only)

The profile used for posting is telegram.account (default "default").
Never share your token or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "Store a bot token securely",
	Example: `  # Store the token for the default profile and check it with Telegram
  photopost auth login --verify

  # Store a second bot under its own profile
  photopost auth login travel`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [profile]",
	Short: "Remove a stored bot token",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&verifyToken, "verify", false, "check the token with Telegram before storing it")
	loginCmd.Flags().BoolVar(&skipGuide, "no-guide", false, "do not print the BotFather instructions")
}

func profileArg(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return auth.DefaultProfile
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	profile := profileArg(args)
	reader := bufio.NewReader(os.Stdin)

	if !skipGuide && !quiet {
		auth.ShowBotTokenGuide(os.Stdout)
	}

	if existing, _ := manager.Retrieve(profile); existing != nil && existing.Token != os.Getenv(auth.TokenEnvVar) {
		fmt.Printf("Profile '%s' already has a token. Replace it? (y/N): ", profile)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Print("Bot token (hidden): ")
	token, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if err := auth.ValidateToken(token); err != nil {
		return err
	}

	cred := &auth.Credential{Profile: profile, Token: token}

	if verifyToken {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client := telegram.NewClient(telegram.Options{Token: token}, logger.NewNopLogger())
		bot, err := client.GetMe(ctx)
		if err != nil {
			return fmt.Errorf("token rejected by Telegram: %w", err)
		}
		cred.BotUsername = bot.Username
		ui.PrintInfo("Bot", "@"+bot.Username)
	}

	if err := manager.Store(cred); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Token stored for profile '%s': %s", profile, auth.SanitizeToken(cred.Token)))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	profile := profileArg(args)

	if err := manager.Delete(profile); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			ui.PrintWarning("No stored token for profile", profile)
			return nil
		}
		return err
	}
	ui.PrintSuccess("Token removed for profile: " + profile)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := manager.List()
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		ui.PrintInfo("No stored tokens", "use 'photopost auth login' to add one")
		return nil
	}

	rows := make([][]string, 0, len(creds))
	for _, c := range creds {
		masked := auth.SanitizeCredential(c)
		bot := ""
		if masked.BotUsername != "" {
			bot = "@" + masked.BotUsername
		}
		modified := "-"
		if !masked.LastModified.IsZero() {
			modified = masked.LastModified.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{masked.Profile, masked.Token, bot, modified})
	}
	ui.PrintTable([]string{"PROFILE", "TOKEN", "BOT", "MODIFIED"}, rows)
	return nil
}

// readSecret reads a line from stdin without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
