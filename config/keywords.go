package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DefaultKeywords is used when neither KEYWORDS nor the keywords file
// yields a term.
var DefaultKeywords = []string{"budget", "health", "education", "climate"}

// ResolveKeywords applies the keyword precedence: the comma-separated env
// value, else the newline-delimited file, else DefaultKeywords. A missing
// or empty file falls through to the defaults.
func ResolveKeywords(env, file string) ([]string, error) {
	if kws := splitList(env, ","); len(kws) > 0 {
		return kws, nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		switch {
		case err == nil:
			if kws := splitList(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"); len(kws) > 0 {
				return kws, nil
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read keywords %s: %w", file, err)
		}
	}
	return append([]string(nil), DefaultKeywords...), nil
}
