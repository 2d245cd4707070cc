// Package discovery lists the photos eligible for posting.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindAll walks root recursively and returns the absolute paths of regular
// files whose extension is in extensions. Matching ignores case and a leading
// dot. Symlinks to regular files count; directories listed in skip are not
// entered. The result is sorted; it is never cached between runs.
func FindAll(root string, extensions []string, skip ...string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			allowed[ext] = struct{}{}
		}
	}

	skipped := make(map[string]struct{}, len(skip))
	for _, dir := range skip {
		if dir == "" {
			continue
		}
		if p, err := filepath.Abs(dir); err == nil && p != abs {
			skipped[p] = struct{}{}
		}
	}

	var found []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, ok := skipped[path]; ok {
				return filepath.SkipDir
			}
			return nil
		}
		if !isRegular(path, d) {
			return nil
		}
		if _, ok := allowed[Extension(path)]; ok {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Strings(found)
	return found, nil
}

func isRegular(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Extension returns the lower-cased extension of path without its dot
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
