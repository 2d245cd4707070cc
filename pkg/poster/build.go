package poster

import (
	"fmt"

	"photopost/pkg/config"
	"photopost/pkg/exifdata"
	"photopost/pkg/history"
	"photopost/pkg/imaging"
	"photopost/pkg/ledger"
	"photopost/pkg/logger"
	"photopost/pkg/storage"
	"photopost/pkg/telegram"
)

// FromConfig wires a Poster from configuration and a bot token. The returned
// close function releases the history journal, when one is open.
func FromConfig(cfg *config.Config, token string, log logger.Logger) (*Poster, func() error, error) {
	closer := func() error { return nil }

	ws, err := storage.NewWorkspace(cfg.Photos.ResizedDir)
	if err != nil {
		return nil, closer, err
	}

	deps := Deps{
		Transport: telegram.NewClient(telegram.Options{
			Token:          token,
			BaseURL:        cfg.Telegram.BaseURL,
			ConnectTimeout: cfg.Telegram.ConnectTimeout,
			ReadTimeout:    cfg.Telegram.ReadTimeout,
			WriteTimeout:   cfg.Telegram.WriteTimeout,
		}, log),
		Resizer: imaging.NewResizer(imaging.Options{
			Threshold:    cfg.Resize.Threshold,
			MaxDimension: cfg.Resize.MaxDimension,
			Quality:      cfg.Resize.Quality,
			PreserveExif: cfg.Resize.PreserveExif,
		}, ws, log),
		Workspace: ws,
		Logger:    log,
	}

	skip := []string{cfg.Photos.ResizedDir}

	switch cfg.Posting.AfterPost {
	case config.AfterPostArchive:
		skip = append(skip, cfg.Photos.ArchiveDir)
		archive, err := storage.NewArchive(cfg.Photos.SourceDir, cfg.Photos.ArchiveDir)
		if err != nil {
			return nil, closer, err
		}
		deps.Archive = archive
	default:
		deps.Ledger = ledger.New(cfg.Posting.LedgerPath, log)
	}

	if cfg.Posting.HistoryPath != "" && !cfg.Posting.DryRun {
		journal, err := history.Open(cfg.Posting.HistoryPath)
		if err != nil {
			return nil, closer, fmt.Errorf("failed to open history: %w", err)
		}
		deps.Journal = journal
		closer = journal.Close
	}

	p := New(deps, Options{
		SourceDir:               cfg.Photos.SourceDir,
		Extensions:              cfg.Photos.Extensions,
		SkipDirs:                skip,
		ChatID:                  cfg.Telegram.ChatID,
		AfterPost:               cfg.Posting.AfterPost,
		CaptionSuffix:           cfg.Posting.CaptionSuffix,
		Labels:                  exifdata.LabelsFor(cfg.Caption.Language),
		CleanupResizedOnFailure: cfg.Posting.CleanupResizedOnFailure,
		DryRun:                  cfg.Posting.DryRun,
	})
	return p, closer, nil
}
