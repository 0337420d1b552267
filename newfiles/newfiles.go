// Package newfiles reads and writes the hand-off list between the scanner
// and the digester: UTF-8, one absolute path per line.
package newfiles

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Write replaces the list at path with paths. Callers only write when at
// least one download happened.
func Write(path string, paths []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("newfiles: mkdir: %w", err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(paths, "\n")), 0o644); err != nil {
		return fmt.Errorf("newfiles: write: %w", err)
	}
	return nil
}

// Read returns the listed paths, skipping blank lines. ok is false when the
// list does not exist.
func Read(path string) (paths []string, ok bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("newfiles: read: %w", err)
	}
	for _, ln := range strings.Split(string(data), "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			paths = append(paths, ln)
		}
	}
	return paths, true, nil
}

// Remove deletes the list. A missing list is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("newfiles: remove: %w", err)
	}
	return nil
}
