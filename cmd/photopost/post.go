package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	apierrors "photopost/pkg/errors"
	"photopost/pkg/poster"
	"photopost/pkg/ui"
)

var (
	// Post command flags
	dryRun      bool
	sourceDir   string
	chatID      string
	accountName string
	notify      bool
)

// postCmd represents the post command
var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Post one photo to the channel",
	Long: `Select one photo from the source folder and post it to the configured
Telegram channel.

Photos posted fewer times are more likely to be picked. Photos larger than
resize.threshold pixels are downscaled into the resized folder first. The
caption lists the capture date, camera, lens and exposure from the photo's
EXIF metadata, followed by posting.caption_suffix.

The post is recorded only after Telegram accepts it. A failed post leaves
the ledger untouched and exits with status 1; nothing is retried.`,
	Example: `  # Post with settings from .photopost.yaml
  photopost post

  # See what would be posted without sending anything
  photopost post --dry-run

  # Override the folder and channel
  photopost post --source ~/Pictures/film --chat-id @my_channel`,
	Args: cobra.NoArgs,
	RunE: runPost,
}

func init() {
	rootCmd.AddCommand(postCmd)

	postCmd.Flags().BoolVar(&dryRun, "dry-run", false, "select, resize and caption a photo without posting it")
	postCmd.Flags().StringVarP(&sourceDir, "source", "s", "", "photo source folder")
	postCmd.Flags().StringVar(&chatID, "chat-id", "", "channel to post to (@name or numeric id)")
	postCmd.Flags().StringVarP(&accountName, "account", "a", "", "stored bot token profile to use")
	postCmd.Flags().BoolVar(&notify, "notify", false, "show a desktop notification with the result")
}

func runPost(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"dry-run": dryRun,
		"source":  sourceDir,
		"chat-id": chatID,
		"account": accountName,
	}

	cfg, err := loadConfig(true, flags)
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	var token string
	if !cfg.Posting.DryRun {
		token, err = resolveToken(cfg)
		if err != nil {
			return err
		}
	}

	p, closeJournal, err := poster.FromConfig(cfg, token, log)
	if err != nil {
		return err
	}
	defer closeJournal()

	notifier := ui.NewNotifierWithSender(nil)
	if notify {
		notifier = ui.NewNotifier()
	}

	outcome, err := p.Run(context.Background())
	if err != nil {
		log.WithError(err).Error("Run failed")
		err = describeFailure(err)
		if notify {
			notifier.Notify("Post failed", err.Error())
		}
		return err
	}

	ui.PrintInfo("Photo", outcome.Photo)
	if outcome.Resized {
		ui.PrintInfo("Sent", outcome.Sent+" (resized)")
	}
	if outcome.Caption != "" {
		ui.PrintInfo("Caption", "")
		ui.PrintBlock(outcome.Caption)
	}

	if outcome.DryRun {
		ui.PrintWarning("Dry run: nothing was posted")
		return nil
	}
	if outcome.Archived != "" {
		ui.PrintInfo("Archived", outcome.Archived)
	}

	name := filepath.Base(outcome.Photo)
	if notify {
		notifier.SendSuccess("Posted", name)
	} else {
		ui.PrintSuccess("Posted as message " + strconv.Itoa(outcome.MessageID))
	}
	return nil
}

// describeFailure adds a hint for failures the user can act on
func describeFailure(err error) error {
	var apiErr *apierrors.Error
	if !errors.As(err, &apiErr) {
		if errors.Is(err, poster.ErrNoCandidates) {
			return fmt.Errorf("%w (check photos.source_dir and photos.extensions)", err)
		}
		return err
	}

	switch apiErr.Type {
	case apierrors.ErrorTypeAuth:
		return fmt.Errorf("%w (is the bot token valid and the bot an admin of the channel?)", err)
	case apierrors.ErrorTypeRateLimit:
		if apiErr.RetryAfter > 0 {
			return fmt.Errorf("%w (Telegram asks to wait %s)", err, apiErr.RetryAfter)
		}
	case apierrors.ErrorTypeBadRequest:
		return fmt.Errorf("%w (check telegram.chat_id)", err)
	}
	if apierrors.IsTransient(apiErr.Type) {
		return fmt.Errorf("%w (temporary failure, the next run may succeed)", err)
	}
	return err
}
