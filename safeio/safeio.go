// Package safeio guards the file system and read paths fed by portal data:
// output names derived from result titles and downloads of unknown size.
package safeio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxTranscript caps a single transcript read (50 MiB).
const MaxTranscript int64 = 50 << 20

// ErrPathTraversal is returned when a name would resolve outside its base.
var ErrPathTraversal = errors.New("safeio: path escapes base directory")

// ErrTooLarge is returned when a read exceeds its limit.
var ErrTooLarge = errors.New("safeio: content too large")

// FileIn joins base and a single file name. The name must not be empty,
// "." or "..", and must not contain a path separator.
func FileIn(base, name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	cleanBase := filepath.Clean(base)
	p := filepath.Join(cleanBase, name)
	if filepath.Dir(p) != cleanBase {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	return p, nil
}

// LimitedReadAll reads at most maxBytes from r.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}

// LimitedReadFile reads the file at path, failing when it is larger than
// maxBytes.
func LimitedReadFile(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LimitedReadAll(f, maxBytes)
}
