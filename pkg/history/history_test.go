package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "history.db")

	j, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, j.Path())
	require.NoError(t, j.Close())

	// reopening an existing database keeps the schema
	j, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Close())
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := j.Record(ctx, Entry{Path: "/p/a.jpg", ChatID: "@c", MessageID: 1, PostedAt: base})
	require.NoError(t, err)
	_, err = j.Record(ctx, Entry{Path: "/p/b.jpg", ChatID: "@c", MessageID: 2, Caption: "Камера: X", Resized: true, PostedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = j.Record(ctx, Entry{Path: "/p/a.jpg", ChatID: "@c", MessageID: 3, PostedAt: base.Add(2 * time.Hour)})
	require.NoError(t, err)

	entries, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].MessageID)
	assert.Equal(t, "/p/b.jpg", entries[1].Path)
	assert.True(t, entries[1].Resized)
	assert.Equal(t, "Камера: X", entries[1].Caption)
	assert.True(t, entries[1].PostedAt.Equal(base.Add(time.Hour)))

	all, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecordStampsTime(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	id, err := j.Record(ctx, Entry{Path: "/p/a.jpg", ChatID: "1"})
	require.NoError(t, err)
	assert.Positive(t, id)

	entries, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].PostedAt.After(before))
}

func TestRecordRequiresPath(t *testing.T) {
	j := openTestJournal(t)
	_, err := j.Record(context.Background(), Entry{ChatID: "1"})
	assert.Error(t, err)
}

func TestCountByPath(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for _, p := range []string{"/p/a.jpg", "/p/b.jpg", "/p/a.jpg"} {
		_, err := j.Record(ctx, Entry{Path: p, ChatID: "1"})
		require.NoError(t, err)
	}

	counts, err := j.CountByPath(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"/p/a.jpg": 2, "/p/b.jpg": 1}, counts)
}

func TestEmptyJournal(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	counts, err := j.CountByPath(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}
