package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one successful post
type Entry struct {
	ID        int64
	Path      string
	ChatID    string
	MessageID int
	Caption   string
	Resized   bool
	PostedAt  time.Time
}

// Journal is an append-only SQLite log of posts
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the journal database at path, creating its
// directory when needed.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("history path is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// busy_timeout makes a second writer wait instead of failing with SQLITE_BUSY
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, path: path}
	if err := j.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database file location
func (j *Journal) Path() string {
	return j.path
}

// Close closes the underlying database
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) ensureSchema() error {
	_, err := j.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL,
    chat_id TEXT NOT NULL,
    message_id INTEGER NOT NULL DEFAULT 0,
    caption TEXT NOT NULL DEFAULT '',
    resized INTEGER NOT NULL DEFAULT 0,
    posted_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_path ON posts(path);
CREATE INDEX IF NOT EXISTS idx_posts_posted_at ON posts(posted_at);
`)
	if err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	return nil
}

// Record appends an entry. A zero PostedAt is stamped with the current time.
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	if e.Path == "" {
		return 0, fmt.Errorf("history entry has no path")
	}
	if e.PostedAt.IsZero() {
		e.PostedAt = time.Now()
	}

	resized := 0
	if e.Resized {
		resized = 1
	}

	res, err := j.db.ExecContext(ctx,
		`INSERT INTO posts (path, chat_id, message_id, caption, resized, posted_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Path, e.ChatID, e.MessageID, e.Caption, resized, e.PostedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record post: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, path, chat_id, message_id, caption, resized, posted_at FROM posts ORDER BY posted_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			resized  int
			postedAt int64
		)
		if err := rows.Scan(&e.ID, &e.Path, &e.ChatID, &e.MessageID, &e.Caption, &resized, &postedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Resized = resized == 1
		e.PostedAt = time.UnixMilli(postedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByPath returns how many times each path has been posted
func (j *Journal) CountByPath(ctx context.Context) (map[string]int, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT path, COUNT(*) FROM posts GROUP BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			path string
			n    int
		)
		if err := rows.Scan(&path, &n); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		counts[path] = n
	}
	return counts, rows.Err()
}
