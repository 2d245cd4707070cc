// Package history keeps an optional journal of every successful post in a
// SQLite database (modernc.org/sqlite, no cgo).
//
// The journal is informational. Selection never reads it; the posting ledger
// remains the source of truth for post counts.
package history
