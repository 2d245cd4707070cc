package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Archive moves posted photos out of the source folder and back again.
// Relative paths below the source folder are preserved in both directions.
type Archive struct {
	sourceDir  string
	archiveDir string
}

// NewArchive creates the archive folder if needed
func NewArchive(sourceDir, archiveDir string) (*Archive, error) {
	src, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source path: %w", err)
	}
	dst, err := filepath.Abs(archiveDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archive path: %w", err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &Archive{sourceDir: src, archiveDir: dst}, nil
}

// Dir returns the absolute archive path
func (a *Archive) Dir() string {
	return a.archiveDir
}

// Move relocates a photo from the source folder into the archive and returns
// its new path.
func (a *Archive) Move(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve photo path: %w", err)
	}
	rel, err := filepath.Rel(a.sourceDir, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(abs)
	}

	dest := filepath.Join(a.archiveDir, rel)
	if err := moveFile(abs, dest); err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", path, err)
	}
	return dest, nil
}

// RestoreAll moves every archived file back into the source folder and
// returns how many were restored.
func (a *Archive) RestoreAll() (int, error) {
	restored := 0
	err := filepath.WalkDir(a.archiveDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(a.archiveDir, path)
		if err != nil {
			return err
		}
		if err := moveFile(path, filepath.Join(a.sourceDir, rel)); err != nil {
			return fmt.Errorf("failed to restore %s: %w", rel, err)
		}
		restored++
		return nil
	})
	if err != nil {
		return restored, err
	}
	return restored, nil
}

// moveFile renames src to dst, falling back to copy and delete when the two
// paths are on different filesystems.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	if err := WriteFileAtomic(dst, info.Mode().Perm(), func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	}); err != nil {
		return err
	}
	return os.Remove(src)
}
