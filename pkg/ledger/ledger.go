package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"photopost/pkg/logger"
	"photopost/pkg/storage"
)

// Counts maps a photo identifier to the number of times it has been posted
type Counts map[string]int

// Ledger persists post counts in a single JSON file
type Ledger struct {
	path   string
	logger logger.Logger
}

// New creates a ledger backed by the file at path. Nothing is read until Load.
func New(path string, log logger.Logger) *Ledger {
	return &Ledger{
		path:   path,
		logger: log.WithField("ledger", path),
	}
}

// Path returns the backing file location
func (l *Ledger) Path() string {
	return l.path
}

// Load returns the persisted counts. A missing or malformed file is replaced
// by an empty ledger and an empty map is returned; Load never fails.
func (l *Ledger) Load() Counts {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Info("Ledger not found, starting a new one")
		} else {
			l.logger.WithError(err).Warn("Ledger unreadable, starting over")
		}
		return l.reset()
	}

	counts, err := decode(data)
	if err != nil {
		l.logger.WithError(err).Warn("Ledger malformed, starting over")
		return l.reset()
	}

	l.logger.DebugWithFields("Ledger loaded", map[string]interface{}{
		"entries": len(counts),
	})
	return counts
}

func (l *Ledger) reset() Counts {
	empty := Counts{}
	if err := l.Save(empty); err != nil {
		l.logger.WithError(err).Error("Failed to reset ledger")
	}
	return empty
}

// Save writes counts as indented JSON, replacing the file atomically
func (l *Ledger) Save(counts Counts) error {
	if counts == nil {
		counts = Counts{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(counts); err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	err := storage.WriteFileAtomic(l.path, 0644, func(w io.Writer) error {
		_, err := w.Write(bytes.TrimRight(buf.Bytes(), "\n"))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}

// MarkPosted increments the count for id, inserting it at 1 when absent
func (l *Ledger) MarkPosted(id string) error {
	counts := l.Load()
	counts[id]++

	if err := l.Save(counts); err != nil {
		return err
	}

	l.logger.InfoWithFields("Ledger updated", map[string]interface{}{
		"photo": id,
		"count": counts[id],
	})
	return nil
}

// decode accepts only a JSON object of non-negative integers
func decode(data []byte) (Counts, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("ledger is not a JSON object")
	}

	counts := make(Counts, len(raw))
	for id, value := range raw {
		n, err := strconv.Atoi(string(value))
		if err != nil {
			return nil, fmt.Errorf("count for %q is not an integer: %s", id, value)
		}
		if n < 0 {
			return nil, fmt.Errorf("count for %q is negative: %d", id, n)
		}
		counts[id] = n
	}
	return counts, nil
}
