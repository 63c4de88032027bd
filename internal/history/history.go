// Package history keeps a local log of published fuel readings.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry records one published reading.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Sheet     string    `json:"sheet,omitempty"`
	Cell      string    `json:"cell"`
	Topic     string    `json:"topic"`
	Broker    string    `json:"broker"`
	Limit     float64   `json:"limit"`
	Left      float64   `json:"left"`
	Amount    float64   `json:"amount"`
}

// Log appends entries to a JSON-lines file.
type Log struct {
	FilePath string
	Enabled  bool
}

// NewLog creates a Log. A disabled log or an empty path makes Append a no-op.
func NewLog(filePath string, enabled bool) *Log {
	return &Log{
		FilePath: filePath,
		Enabled:  enabled,
	}
}

// Append writes a single entry. Best-effort: failures are swallowed so a
// successful publish is never reported as failed.
func (l *Log) Append(entry Entry) {
	if l == nil || !l.Enabled || l.FilePath == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(l.FilePath), 0755); err != nil {
		return
	}

	f, err := os.OpenFile(l.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = f.Write(data)
}

// ReadEntries reads all entries from the log file. A missing file yields no entries.
func ReadEntries(filePath string) ([]Entry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue // skip malformed lines
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FilterEntries returns entries within [since, until]; zero times are open bounds.
func FilterEntries(entries []Entry, since, until time.Time) []Entry {
	var result []Entry
	for _, e := range entries {
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		if !until.IsZero() && e.Timestamp.After(until) {
			continue
		}
		result = append(result, e)
	}
	return result
}

// Size returns the size of the log in bytes, or 0 if not found.
func Size(filePath string) int64 {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Clear truncates the log file.
func Clear(filePath string) error {
	err := os.Truncate(filePath, 0)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
