package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photopost/pkg/logger"
)

func newTestLedger(t *testing.T) (*Ledger, *logger.TestLogger) {
	t.Helper()
	log := logger.NewTestLogger()
	return New(filepath.Join(t.TempDir(), "posted_photos.json"), log), log
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestLoadMissingFileCreatesEmptyLedger(t *testing.T) {
	l, _ := newTestLedger(t)

	counts := l.Load()
	assert.Empty(t, counts)
	assert.NotNil(t, counts)
	assert.Equal(t, "{}", readFile(t, l.Path()))
}

func TestLoadMalformedResets(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated", `{"a.jpg": 1`},
		{"not an object", `[1, 2, 3]`},
		{"null", `null`},
		{"negative count", `{"a.jpg": -1}`},
		{"fractional count", `{"a.jpg": 1.5}`},
		{"string count", `{"a.jpg": "2"}`},
		{"empty file", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, log := newTestLedger(t)
			require.NoError(t, os.WriteFile(l.Path(), []byte(tt.content), 0644))

			counts := l.Load()
			assert.Empty(t, counts)
			assert.Equal(t, "{}", readFile(t, l.Path()))
			assert.True(t, log.HasMessage("Ledger malformed, starting over"))
		})
	}
}

func TestMarkPosted(t *testing.T) {
	l, _ := newTestLedger(t)

	require.NoError(t, l.MarkPosted("/photos/a.jpg"))
	require.NoError(t, l.MarkPosted("/photos/a.jpg"))
	require.NoError(t, l.MarkPosted("/photos/b.jpg"))

	assert.Equal(t, Counts{"/photos/a.jpg": 2, "/photos/b.jpg": 1}, l.Load())
}

func TestMarkPostedOnCorruptLedger(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, os.WriteFile(l.Path(), []byte("garbage"), 0644))

	require.NoError(t, l.MarkPosted("x.jpg"))
	assert.Equal(t, Counts{"x.jpg": 1}, l.Load())
}

func TestSaveFormat(t *testing.T) {
	l, _ := newTestLedger(t)

	require.NoError(t, l.Save(Counts{"/фото/закат.jpg": 3, "a&b.jpg": 1}))

	expected := "{\n    \"/фото/закат.jpg\": 3,\n    \"a&b.jpg\": 1\n}"
	assert.Equal(t, expected, readFile(t, l.Path()))
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nested", "ledger.json")
	l := New(path, logger.NewNopLogger())

	require.NoError(t, l.MarkPosted("a.jpg"))
	assert.FileExists(t, path)
}

func TestLoadValidLedger(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, os.WriteFile(l.Path(), []byte(`{"a.jpg": 0, "b.jpg": 7}`), 0644))

	assert.Equal(t, Counts{"a.jpg": 0, "b.jpg": 7}, l.Load())
}
