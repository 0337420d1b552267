package seen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// JSONStore persists the record as a flat JSON object:
//
//	{"<key>": {"title": "...", "saved": "2025-08-19T07:00:00Z"}}
type JSONStore struct {
	path   string
	logger *slog.Logger
}

// NewJSONStore returns a store backed by the file at path.
func NewJSONStore(path string, logger *slog.Logger) *JSONStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONStore{path: path, logger: logger}
}

// Load reads the record. A missing file yields an empty record. A file that
// does not parse also yields an empty record, with a warning.
func (s *JSONStore) Load(_ context.Context) (Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("seen: read %s: %w", s.path, err)
	}

	rec := Record{}
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("seen: unreadable record, starting empty", "path", s.path, "error", err)
		return Record{}, nil
	}
	return rec, nil
}

// Save writes the record atomically: a temp file in the same directory is
// renamed over the target.
func (s *JSONStore) Save(_ context.Context, r Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if r == nil {
		r = Record{}
	}
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("seen: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("seen: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".seen-*.json")
	if err != nil {
		return fmt.Errorf("seen: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("seen: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("seen: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("seen: rename: %w", err)
	}
	return nil
}
