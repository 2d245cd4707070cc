package poster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"photopost/pkg/config"
	"photopost/pkg/discovery"
	apierrors "photopost/pkg/errors"
	"photopost/pkg/exifdata"
	"photopost/pkg/history"
	"photopost/pkg/logger"
	"photopost/pkg/selection"
	"photopost/pkg/telegram"
)

// ErrNoCandidates is returned when the source folder holds no photo to post.
// It wraps selection.ErrNoCandidates.
var ErrNoCandidates = fmt.Errorf("nothing to post: %w", selection.ErrNoCandidates)

// Deps are the collaborators of a Poster. Archive is required in archive
// mode; Resizer, Workspace and Journal are optional.
type Deps struct {
	Transport Transport
	Ledger    Ledger
	Resizer   Resizer
	Workspace Workspace
	Archive   Archive
	Journal   Journal
	Rand      selection.Source
	Logger    logger.Logger
}

// Options control a single run
type Options struct {
	SourceDir  string
	Extensions []string
	ChatID     string

	// SkipDirs are folders below SourceDir that never hold candidates,
	// such as the archive or the resized workspace
	SkipDirs []string

	// AfterPost is config.AfterPostLedger or config.AfterPostArchive
	AfterPost     string
	CaptionSuffix string
	Labels        exifdata.Labels

	CleanupResizedOnFailure bool
	DryRun                  bool
}

// Outcome describes what a run did
type Outcome struct {
	// Photo is the original candidate that was selected
	Photo string
	// Sent is the file that was (or would have been) uploaded
	Sent      string
	Caption   string
	Resized   bool
	MessageID int
	// Archived is where the original was moved in archive mode
	Archived string
	DryRun   bool
}

// Poster posts one photo per Run
type Poster struct {
	deps   Deps
	opts   Options
	logger logger.Logger
}

// New creates a Poster
func New(deps Deps, opts Options) *Poster {
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Rand == nil {
		deps.Rand = selection.NewSource()
	}
	if opts.AfterPost == "" {
		opts.AfterPost = config.AfterPostLedger
	}
	if opts.Labels == (exifdata.Labels{}) {
		opts.Labels = exifdata.RussianLabels
	}

	return &Poster{
		deps:   deps,
		opts:   opts,
		logger: deps.Logger.WithField("component", "poster"),
	}
}

func (p *Poster) archiveMode() bool {
	return p.opts.AfterPost == config.AfterPostArchive
}

// Run selects a photo, prepares it, posts it and records the post. Nothing
// is recorded unless the transport confirms the upload.
func (p *Poster) Run(ctx context.Context) (*Outcome, error) {
	if err := p.check(); err != nil {
		return nil, err
	}

	candidates, err := p.discover()
	if err != nil {
		return nil, err
	}

	photo, err := p.choose(candidates)
	if err != nil {
		return nil, err
	}
	p.logger.InfoWithFields("Photo selected", map[string]interface{}{
		"photo":      photo,
		"candidates": len(candidates),
	})

	sent, resized, err := p.prepare(photo)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Photo:   photo,
		Sent:    sent,
		Resized: resized,
		Caption: p.caption(photo),
		DryRun:  p.opts.DryRun,
	}

	if p.opts.DryRun {
		p.logger.InfoWithFields("Dry run, not posting", map[string]interface{}{
			"photo":   photo,
			"sent":    sent,
			"resized": resized,
			"caption": outcome.Caption,
		})
		p.cleanup(outcome)
		return outcome, nil
	}

	msg, err := p.transmit(ctx, outcome)
	if err != nil {
		if resized && p.opts.CleanupResizedOnFailure {
			p.cleanup(outcome)
		}
		return nil, fmt.Errorf("failed to post %s: %w", filepath.Base(photo), err)
	}
	outcome.MessageID = msg.MessageID

	if err := p.record(ctx, outcome); err != nil {
		return outcome, err
	}

	p.cleanup(outcome)
	return outcome, nil
}

func (p *Poster) check() error {
	var errs []error
	if p.deps.Transport == nil && !p.opts.DryRun {
		errs = append(errs, errors.New("no transport configured"))
	}
	switch p.opts.AfterPost {
	case config.AfterPostLedger:
		if p.deps.Ledger == nil {
			errs = append(errs, errors.New("ledger mode requires a ledger"))
		}
	case config.AfterPostArchive:
		if p.deps.Archive == nil {
			errs = append(errs, errors.New("archive mode requires an archive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown after-post mode %q", p.opts.AfterPost))
	}
	return errors.Join(errs...)
}

// discover lists candidates. In archive mode an empty source folder starts a
// new rotation by restoring every archived photo first.
func (p *Poster) discover() ([]string, error) {
	candidates, err := discovery.FindAll(p.opts.SourceDir, p.opts.Extensions, p.opts.SkipDirs...)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		return candidates, nil
	}

	if !p.archiveMode() {
		p.logger.ErrorWithFields("No photos found", map[string]interface{}{
			"source":     p.opts.SourceDir,
			"extensions": p.opts.Extensions,
		})
		return nil, fmt.Errorf("%w in %s", ErrNoCandidates, p.opts.SourceDir)
	}

	restored, err := p.deps.Archive.RestoreAll()
	if err != nil {
		return nil, fmt.Errorf("failed to start a new rotation: %w", err)
	}
	p.logger.InfoWithFields("Source folder empty, starting a new rotation", map[string]interface{}{
		"restored": restored,
	})

	candidates, err = discovery.FindAll(p.opts.SourceDir, p.opts.Extensions, p.opts.SkipDirs...)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w in %s or its archive", ErrNoCandidates, p.opts.SourceDir)
	}
	return candidates, nil
}

func (p *Poster) choose(candidates []string) (string, error) {
	var counts map[string]int
	if !p.archiveMode() {
		counts = p.deps.Ledger.Load()
	}

	photo, err := selection.Choose(candidates, counts, p.deps.Rand)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCandidates, err)
	}
	return photo, nil
}

// prepare returns the path to upload and whether it is a resized copy
func (p *Poster) prepare(photo string) (string, bool, error) {
	if p.deps.Resizer == nil {
		return photo, false, nil
	}
	res, err := p.deps.Resizer.Prepare(photo)
	if err != nil {
		return "", false, fmt.Errorf("failed to prepare %s: %w", filepath.Base(photo), err)
	}
	return res.Path, res.Resized, nil
}

// caption builds the message text from the original's metadata
func (p *Poster) caption(photo string) string {
	rec := exifdata.ExtractFile(photo)
	if rec == nil {
		p.logger.DebugWithFields("No EXIF metadata", map[string]interface{}{"photo": photo})
	} else if rec.DateTimeOriginal != nil {
		if _, ok := rec.Date(); !ok {
			p.logger.DebugWithFields("Unparseable capture date", map[string]interface{}{
				"photo": photo,
				"raw":   *rec.DateTimeOriginal,
			})
		}
	}

	meta, ok := exifdata.Caption(rec, p.opts.Labels)
	return exifdata.ComposeCaption(meta, ok, p.opts.CaptionSuffix)
}

func (p *Poster) transmit(ctx context.Context, o *Outcome) (*telegram.Message, error) {
	f, err := os.Open(o.Sent)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", o.Sent, err)
	}
	defer f.Close()

	msg, err := p.deps.Transport.SendPhoto(ctx, telegram.SendPhotoRequest{
		ChatID:   p.opts.ChatID,
		Photo:    f,
		FileName: filepath.Base(o.Sent),
		Caption:  o.Caption,
	})
	if err != nil {
		fields := map[string]interface{}{
			"photo":   o.Photo,
			"sent":    o.Sent,
			"chat_id": p.opts.ChatID,
			"type":    string(apierrors.TypeOf(err)),
			"error":   err.Error(),
		}
		var apiErr *apierrors.Error
		if errors.As(err, &apiErr) {
			if apiErr.Code != 0 {
				fields["status"] = apiErr.Code
			}
			if apiErr.RetryAfter > 0 {
				fields["retry_after"] = apiErr.RetryAfter
			}
		}
		p.logger.ErrorWithFields("Post failed", fields)
		return nil, err
	}

	p.logger.InfoWithFields("Posted", map[string]interface{}{
		"photo":      o.Photo,
		"message_id": msg.MessageID,
	})
	return msg, nil
}

// record books a confirmed post exactly once, under the original path
func (p *Poster) record(ctx context.Context, o *Outcome) error {
	if p.archiveMode() {
		dest, err := p.deps.Archive.Move(o.Photo)
		if err != nil {
			return fmt.Errorf("posted but could not archive: %w", err)
		}
		o.Archived = dest
		p.logger.DebugWithFields("Photo archived", map[string]interface{}{
			"photo":    o.Photo,
			"archived": dest,
		})
	} else if err := p.deps.Ledger.MarkPosted(o.Photo); err != nil {
		return fmt.Errorf("posted but could not update ledger: %w", err)
	}

	if p.deps.Journal != nil {
		_, err := p.deps.Journal.Record(ctx, history.Entry{
			Path:      o.Photo,
			ChatID:    p.opts.ChatID,
			MessageID: o.MessageID,
			Caption:   o.Caption,
			Resized:   o.Resized,
		})
		if err != nil {
			p.logger.WithError(err).Warn("Failed to write history entry")
		}
	}
	return nil
}

// cleanup removes the resized copy, if any
func (p *Poster) cleanup(o *Outcome) {
	if !o.Resized || p.deps.Workspace == nil {
		return
	}
	if err := p.deps.Workspace.Remove(o.Sent); err != nil {
		p.logger.WithError(err).Warn("Failed to remove resized copy")
	}
}
