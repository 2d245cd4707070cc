// Package ledger keeps the per-photo post counts that drive selection.
//
// The ledger is a single JSON object mapping photo path to a non-negative
// count. It is self-healing: an unreadable or malformed file is replaced with
// an empty object rather than failing the run. Writes are atomic. Concurrent
// runs against the same file are not locked against each other.
package ledger
