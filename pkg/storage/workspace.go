package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Workspace is the working folder that holds resized temporaries. Files
// written here are owned by photopost and may be removed freely.
type Workspace struct {
	dir string
}

// NewWorkspace creates the working folder if needed
func NewWorkspace(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace path: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}
	return &Workspace{dir: abs}, nil
}

// Dir returns the absolute workspace path
func (w *Workspace) Dir() string {
	return w.dir
}

// Save atomically writes name inside the workspace and returns its full path
func (w *Workspace) Save(name string, write func(w io.Writer) error) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid workspace file name %q", name)
	}

	path := filepath.Join(w.dir, base)
	if err := WriteFileAtomic(path, 0644, write); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", base, err)
	}
	return path, nil
}

// Contains reports whether path lies inside the workspace
func (w *Workspace) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(w.dir, abs)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}

// Remove deletes a workspace file. Paths outside the workspace are refused so
// that an original photo can never be removed through here.
func (w *Workspace) Remove(path string) error {
	if !w.Contains(path) {
		return fmt.Errorf("refusing to remove %s: not in workspace %s", path, w.dir)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
