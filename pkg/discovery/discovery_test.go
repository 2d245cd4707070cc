package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestFindAll(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"a.jpg",
		"B.JPG",
		"c.Jpeg",
		"notes.txt",
		"sub/d.png",
		"sub/deeper/e.jpeg",
		"sub/deeper/raw.cr2",
		"noext",
	} {
		touch(t, filepath.Join(root, name))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "folder.jpg"), 0755))

	found, err := FindAll(root, []string{"jpg", ".JPEG", "png"})
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "B.JPG"),
		filepath.Join(root, "a.jpg"),
		filepath.Join(root, "c.Jpeg"),
		filepath.Join(root, "sub", "d.png"),
		filepath.Join(root, "sub", "deeper", "e.jpeg"),
	}
	assert.Equal(t, want, found)
}

func TestFindAllSkipsFolders(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))
	touch(t, filepath.Join(root, "posted", "b.jpg"))
	touch(t, filepath.Join(root, "resized", "c.jpg"))
	touch(t, filepath.Join(root, "posted-old", "d.jpg"))

	found, err := FindAll(root, []string{"jpg"},
		filepath.Join(root, "posted"),
		filepath.Join(root, "resized"),
		"",
	)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.jpg"),
		filepath.Join(root, "posted-old", "d.jpg"),
	}, found)
}

func TestFindAllFollowsFileSymlinks(t *testing.T) {
	outside := t.TempDir()
	target := filepath.Join(outside, "real.jpg")
	touch(t, target)

	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))
	if err := os.Symlink(target, filepath.Join(root, "link.jpg")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(outside, "gone.jpg"), filepath.Join(root, "dangling.jpg")))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "dir.jpg")))

	found, err := FindAll(root, []string{"jpg"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.jpg"),
		filepath.Join(root, "link.jpg"),
	}, found)
}

func TestFindAllEmptyFolder(t *testing.T) {
	found, err := FindAll(t.TempDir(), []string{"jpg"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindAllMissingRoot(t *testing.T) {
	_, err := FindAll(filepath.Join(t.TempDir(), "absent"), []string{"jpg"})
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "jpg", Extension("/x/IMG.JPG"))
	assert.Equal(t, "", Extension("/x/README"))
	assert.Equal(t, "gz", Extension("archive.tar.gz"))
}
