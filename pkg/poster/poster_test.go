package poster

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photopost/internal/testutil"
	"photopost/pkg/config"
	apierrors "photopost/pkg/errors"
	"photopost/pkg/exifdata"
	"photopost/pkg/history"
	"photopost/pkg/imaging"
	"photopost/pkg/ledger"
	"photopost/pkg/logger"
	"photopost/pkg/selection"
	"photopost/pkg/storage"
	"photopost/pkg/telegram"
)

const suffix = "#photo #film"

type sentPhoto struct {
	req  telegram.SendPhotoRequest
	body []byte
}

// fakeTransport captures uploads and answers with err when set
type fakeTransport struct {
	sent []sentPhoto
	err  error
}

func (f *fakeTransport) SendPhoto(ctx context.Context, req telegram.SendPhotoRequest) (*telegram.Message, error) {
	body, err := io.ReadAll(req.Photo)
	if err != nil {
		return nil, err
	}
	f.sent = append(f.sent, sentPhoto{req: req, body: body})
	if f.err != nil {
		return nil, f.err
	}
	return &telegram.Message{MessageID: 100 + len(f.sent)}, nil
}

// firstPick always draws zero
type firstPick struct{}

func (firstPick) IntN(int) int { return 0 }

type fixture struct {
	source    string
	archive   string
	transport *fakeTransport
	ledger    *ledger.Ledger
	workspace *storage.Workspace
	log       *logger.TestLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	f := &fixture{
		source:    filepath.Join(root, "photos"),
		archive:   filepath.Join(root, "posted"),
		transport: &fakeTransport{},
		log:       logger.NewTestLogger(),
	}
	require.NoError(t, os.MkdirAll(f.source, 0755))

	ws, err := storage.NewWorkspace(filepath.Join(root, "resized"))
	require.NoError(t, err)
	f.workspace = ws
	f.ledger = ledger.New(filepath.Join(root, "posted_photos.json"), f.log)
	return f
}

func (f *fixture) deps(t *testing.T) Deps {
	t.Helper()
	return Deps{
		Transport: f.transport,
		Ledger:    f.ledger,
		Resizer: imaging.NewResizer(imaging.Options{
			Threshold:    400,
			MaxDimension: 200,
			Quality:      90,
			PreserveExif: true,
		}, f.workspace, f.log),
		Workspace: f.workspace,
		Rand:      firstPick{},
		Logger:    f.log,
	}
}

func (f *fixture) options() Options {
	return Options{
		SourceDir:     f.source,
		Extensions:    []string{"jpg", "jpeg", "png"},
		ChatID:        "@channel",
		CaptionSuffix: suffix,
	}
}

func workspaceFiles(t *testing.T, ws *storage.Workspace) []string {
	t.Helper()
	entries, err := os.ReadDir(ws.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunPostsAndRecords(t *testing.T) {
	f := newFixture(t)
	photo := testutil.WriteFile(t, f.source, "IMG_0001.jpg", testutil.JPEG(t, 120, 80, testutil.SampleEXIF()))

	journal, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer journal.Close()

	deps := f.deps(t)
	deps.Journal = journal

	out, err := New(deps, f.options()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, photo, out.Photo)
	assert.Equal(t, photo, out.Sent)
	assert.False(t, out.Resized)
	assert.False(t, out.DryRun)
	assert.Equal(t, 101, out.MessageID)

	want := strings.Join([]string{
		"Дата: 15.01.2023",
		"Камера: Test Camera",
		"Объектив: Test Lens",
		"Выдержка: 1/100",
		"Диафрагма: f/4.0",
		"Фокусное расстояние: 50 mm",
		"ISO: 100",
		"Теги: test keywords",
	}, "\n") + "\n\n" + suffix
	assert.Equal(t, want, out.Caption)

	require.Len(t, f.transport.sent, 1)
	req := f.transport.sent[0].req
	assert.Equal(t, "@channel", req.ChatID)
	assert.Equal(t, "IMG_0001.jpg", req.FileName)
	assert.Equal(t, want, req.Caption)

	assert.Equal(t, ledger.Counts{photo: 1}, f.ledger.Load())

	entries, err := journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, photo, entries[0].Path)
	assert.Equal(t, 101, entries[0].MessageID)
}

func TestRunIncrementsExistingCount(t *testing.T) {
	f := newFixture(t)
	photo := testutil.WriteFile(t, f.source, "a.jpg", testutil.JPEG(t, 50, 50, nil))
	require.NoError(t, f.ledger.Save(ledger.Counts{photo: 2, "/gone.jpg": 7}))

	_, err := New(f.deps(t), f.options()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ledger.Counts{photo: 3, "/gone.jpg": 7}, f.ledger.Load())
}

func TestRunResizesOversizedPhoto(t *testing.T) {
	f := newFixture(t)
	photo := testutil.WriteFile(t, f.source, "big.jpg", testutil.JPEG(t, 800, 500, testutil.SampleEXIF()))

	out, err := New(f.deps(t), f.options()).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, out.Resized)
	assert.Equal(t, photo, out.Photo)
	assert.Equal(t, filepath.Join(f.workspace.Dir(), "big.jpg"), out.Sent)
	assert.Contains(t, out.Caption, "Камера: Test Camera")

	require.Len(t, f.transport.sent, 1)
	sent := exifdata.Extract(bytes.NewReader(f.transport.sent[0].body))
	require.NotNil(t, sent, "resized upload keeps its EXIF")

	// the original is counted and kept; the temporary is gone
	assert.Equal(t, ledger.Counts{photo: 1}, f.ledger.Load())
	assert.FileExists(t, photo)
	assert.Empty(t, workspaceFiles(t, f.workspace))
}

func TestRunTransmitFailure(t *testing.T) {
	f := newFixture(t)
	photo := testutil.WriteFile(t, f.source, "big.jpg", testutil.JPEG(t, 800, 500, nil))
	f.transport.err = &apierrors.Error{
		Type:       apierrors.ErrorTypeRateLimit,
		Code:       429,
		Message:    "Too Many Requests: retry after 5",
		RetryAfter: 5 * time.Second,
	}

	out, err := New(f.deps(t), f.options()).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, apierrors.IsType(err, apierrors.ErrorTypeRateLimit))

	assert.Empty(t, f.ledger.Load())
	assert.FileExists(t, photo)
	assert.Equal(t, []string{"big.jpg"}, workspaceFiles(t, f.workspace), "resized copy kept for inspection")

	failures := f.log.GetMessagesByLevel("ERROR")
	require.NotEmpty(t, failures)
	last := failures[len(failures)-1]
	assert.Equal(t, "Post failed", last.Message)
	assert.Equal(t, 429, last.Fields["status"])
	assert.Equal(t, 5*time.Second, last.Fields["retry_after"])
}

func TestRunTransmitFailureCleansUpWhenAsked(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFile(t, f.source, "big.jpg", testutil.JPEG(t, 800, 500, nil))
	f.transport.err = &apierrors.Error{Type: apierrors.ErrorTypeNetwork, Message: "connection refused"}

	opts := f.options()
	opts.CleanupResizedOnFailure = true

	_, err := New(f.deps(t), opts).Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, workspaceFiles(t, f.workspace))
	assert.Empty(t, f.ledger.Load())
}

func TestRunNoCandidates(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFile(t, f.source, "notes.txt", []byte("not a photo"))

	_, err := New(f.deps(t), f.options()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCandidates))
	assert.True(t, errors.Is(err, selection.ErrNoCandidates))
	assert.Empty(t, f.transport.sent)
}

func TestRunWithoutMetadata(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFile(t, f.source, "plain.png", testutil.PNG(t, 60, 40))

	out, err := New(f.deps(t), f.options()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, suffix, out.Caption)
	assert.NotContains(t, out.Caption, "None")
}

func TestRunEnglishLabels(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFile(t, f.source, "a.jpg", testutil.JPEG(t, 60, 40, &testutil.EXIF{Model: "X100V"}))

	opts := f.options()
	opts.Labels = exifdata.EnglishLabels
	opts.CaptionSuffix = ""

	out, err := New(f.deps(t), opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Camera: X100V", out.Caption)
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t)
	photo := testutil.WriteFile(t, f.source, "big.jpg", testutil.JPEG(t, 800, 500, testutil.SampleEXIF()))

	deps := f.deps(t)
	deps.Transport = nil
	opts := f.options()
	opts.DryRun = true

	out, err := New(deps, opts).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, out.DryRun)
	assert.True(t, out.Resized)
	assert.Equal(t, photo, out.Photo)
	assert.Contains(t, out.Caption, suffix)
	assert.Zero(t, out.MessageID)

	assert.Empty(t, f.ledger.Load())
	assert.Empty(t, workspaceFiles(t, f.workspace))
	assert.True(t, f.log.HasMessage("Dry run, not posting"))
}

func TestRunArchiveMode(t *testing.T) {
	f := newFixture(t)
	photo := testutil.WriteFile(t, filepath.Join(f.source, "2023"), "a.jpg", testutil.JPEG(t, 60, 40, nil))

	archive, err := storage.NewArchive(f.source, f.archive)
	require.NoError(t, err)

	deps := f.deps(t)
	deps.Ledger = nil
	deps.Archive = archive
	opts := f.options()
	opts.AfterPost = config.AfterPostArchive

	p := New(deps, opts)

	out, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, photo, out.Photo)
	assert.Equal(t, filepath.Join(f.archive, "2023", "a.jpg"), out.Archived)
	assert.NoFileExists(t, photo)
	assert.FileExists(t, out.Archived)

	// an empty source folder starts a new rotation
	out, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, photo, out.Photo)
	assert.Len(t, f.transport.sent, 2)
	assert.True(t, f.log.HasMessage("Source folder empty, starting a new rotation"))
}

func TestRunArchiveModeNothingAnywhere(t *testing.T) {
	f := newFixture(t)
	archive, err := storage.NewArchive(f.source, f.archive)
	require.NoError(t, err)

	deps := f.deps(t)
	deps.Archive = archive
	opts := f.options()
	opts.AfterPost = config.AfterPostArchive

	_, err = New(deps, opts).Run(context.Background())
	assert.True(t, errors.Is(err, ErrNoCandidates))
}

func TestRunArchiveInsideSource(t *testing.T) {
	f := newFixture(t)
	a := testutil.WriteFile(t, f.source, "a.jpg", testutil.JPEG(t, 60, 40, nil))
	b := testutil.WriteFile(t, f.source, "b.jpg", testutil.JPEG(t, 60, 40, nil))

	archiveDir := filepath.Join(f.source, "posted")
	archive, err := storage.NewArchive(f.source, archiveDir)
	require.NoError(t, err)

	deps := f.deps(t)
	deps.Ledger = nil
	deps.Archive = archive
	opts := f.options()
	opts.AfterPost = config.AfterPostArchive
	opts.SkipDirs = []string{archiveDir}
	p := New(deps, opts)

	var posted []string
	for i := 0; i < 3; i++ {
		out, err := p.Run(context.Background())
		require.NoError(t, err)
		posted = append(posted, out.Photo)
	}

	assert.Equal(t, []string{a, b, a}, posted)
	assert.True(t, f.log.HasMessage("Source folder empty, starting a new rotation"))
	assert.NoDirExists(t, filepath.Join(archiveDir, "posted"))
}

func TestRunMisconfigured(t *testing.T) {
	f := newFixture(t)

	deps := f.deps(t)
	opts := f.options()
	opts.AfterPost = config.AfterPostArchive

	_, err := New(deps, opts).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive mode requires an archive")

	opts.AfterPost = "both"
	_, err = New(deps, opts).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown after-post mode")

	deps.Transport = nil
	opts.AfterPost = config.AfterPostLedger
	_, err = New(deps, opts).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transport configured")
}

func TestFromConfig(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Telegram.ChatID = "@channel"
	cfg.Photos.SourceDir = filepath.Join(root, "photos")
	cfg.Photos.ResizedDir = filepath.Join(root, "resized")
	cfg.Photos.ArchiveDir = filepath.Join(root, "posted")
	cfg.Posting.LedgerPath = filepath.Join(root, "ledger.json")
	cfg.Posting.HistoryPath = filepath.Join(root, "history.db")

	p, closeFn, err := FromConfig(cfg, "1:token", logger.NewNopLogger())
	require.NoError(t, err)
	defer closeFn()

	assert.NotNil(t, p.deps.Transport)
	assert.NotNil(t, p.deps.Ledger)
	assert.Nil(t, p.deps.Archive)
	assert.NotNil(t, p.deps.Journal)
	assert.Equal(t, []string{cfg.Photos.ResizedDir}, p.opts.SkipDirs)
	assert.DirExists(t, cfg.Photos.ResizedDir)

	cfg.Posting.AfterPost = config.AfterPostArchive
	cfg.Posting.HistoryPath = ""
	p, _, err = FromConfig(cfg, "1:token", logger.NewNopLogger())
	require.NoError(t, err)
	assert.NotNil(t, p.deps.Archive)
	assert.Nil(t, p.deps.Ledger)
	assert.Nil(t, p.deps.Journal)
	assert.Equal(t, []string{cfg.Photos.ResizedDir, cfg.Photos.ArchiveDir}, p.opts.SkipDirs)
	assert.DirExists(t, cfg.Photos.ArchiveDir)
}
