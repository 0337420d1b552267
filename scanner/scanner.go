// CLAUDE:SUMMARY Scan run: search the portal, skip known transcripts, export new ones as text, record them, write new_files.txt.
// Package scanner runs one pass over the portal's newest results and
// downloads the transcripts it has not seen before.
//
// A row is "known" when its key is in the seen-record or its output file
// already exists; either check alone blocks the download. Per-row failures
// are logged and counted, never fatal. The record is saved once at the end
// of the run, including when rows failed.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hazyhaar/hansardwatch/newfiles"
	"github.com/hazyhaar/hansardwatch/portal"
	"github.com/hazyhaar/hansardwatch/safeio"
	"github.com/hazyhaar/hansardwatch/seen"
)

// Fallback fetches a row's document link directly and returns its text.
type Fallback interface {
	FetchText(ctx context.Context, link string) ([]byte, error)
}

// Archiver copies a saved transcript somewhere durable.
type Archiver interface {
	Put(ctx context.Context, localPath string) (string, error)
}

// Config configures a Scanner.
type Config struct {
	Query          string
	MaxResults     int
	TranscriptsDir string
	NewFilesPath   string

	// Fallback is tried when the viewer export fails. Optional.
	Fallback Fallback
	// Archiver receives every new transcript. Optional; errors are logged.
	Archiver Archiver

	Logger *slog.Logger
	Now    func() time.Time
}

func (c *Config) defaults() {
	if c.MaxResults < 0 {
		c.MaxResults = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Report summarises a scan run.
type Report struct {
	Found      int      // rows returned by the search
	Checked    int      // rows inspected (≤ MaxResults)
	Downloaded int      // new transcripts written
	Known      int      // rows skipped as already present
	Failed     int      // rows that failed title read or export
	Files      []string // absolute paths written, in row order
}

// Scanner performs scan runs against a Portal.
type Scanner struct {
	cfg    Config
	portal portal.Portal
	store  seen.Store
	write  func(name string, data []byte, perm os.FileMode) error
}

// New creates a Scanner.
func New(cfg Config, p portal.Portal, store seen.Store) *Scanner {
	cfg.defaults()
	return &Scanner{cfg: cfg, portal: p, store: store, write: os.WriteFile}
}

// Run executes one scan. Errors are returned only for failures that abort
// the run: loading the record, the search itself, creating the output
// directory, or persisting the record and the new-files list.
func (s *Scanner) Run(ctx context.Context) (Report, error) {
	var rep Report
	log := s.cfg.Logger

	record, err := s.store.Load(ctx)
	if err != nil {
		return rep, fmt.Errorf("scanner: load seen record: %w", err)
	}
	if err := os.MkdirAll(s.cfg.TranscriptsDir, 0o755); err != nil {
		return rep, fmt.Errorf("scanner: transcripts dir: %w", err)
	}

	rows, err := s.portal.Search(ctx, s.cfg.Query)
	if err != nil {
		return rep, fmt.Errorf("scanner: search: %w", err)
	}
	rep.Found = len(rows)
	if len(rows) > s.cfg.MaxResults {
		rows = rows[:s.cfg.MaxResults]
	}
	log.Info("scanner: results", "found", rep.Found, "checking", len(rows))

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			log.Warn("scanner: interrupted", "row", i+1, "error", err)
			break
		}
		rep.Checked++
		path, err := s.scanRow(ctx, record, i+1, row)
		switch {
		case errors.Is(err, errKnown):
			rep.Known++
		case err != nil:
			rep.Failed++
			log.Warn("scanner: row failed", "row", i+1, "error", err)
		default:
			rep.Downloaded++
			rep.Files = append(rep.Files, path)
		}
	}

	if err := s.store.Save(context.WithoutCancel(ctx), record); err != nil {
		return rep, fmt.Errorf("scanner: save seen record: %w", err)
	}

	if len(rep.Files) > 0 {
		if err := newfiles.Write(s.cfg.NewFilesPath, rep.Files); err != nil {
			return rep, fmt.Errorf("scanner: %w", err)
		}
		log.Info("scanner: new files listed", "path", s.cfg.NewFilesPath, "count", len(rep.Files))
	} else {
		log.Info("scanner: no new transcripts")
	}
	return rep, nil
}

var errKnown = errors.New("already have")

// scanRow handles one result row and returns the absolute path written.
func (s *Scanner) scanRow(ctx context.Context, record seen.Record, n int, row portal.Row) (string, error) {
	log := s.cfg.Logger

	title, err := row.Title()
	if err != nil {
		return "", fmt.Errorf("title: %w", err)
	}
	key := row.Link()
	if key == "" {
		key = title
	}
	stem := Sanitize(title)
	if stem == "" {
		return "", fmt.Errorf("title %q has no usable file name", title)
	}
	out, err := safeio.FileIn(s.cfg.TranscriptsDir, stem+".txt")
	if err != nil {
		return "", err
	}

	if record.Has(key) || fileExists(out) {
		record.MarkPreexisting(key, title)
		log.Info("scanner: already have", "row", n, "title", title)
		return "", errKnown
	}

	log.Info("scanner: new transcript", "row", n, "title", title)
	text, err := s.export(ctx, row)
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(out)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", out, err)
	}
	if err := s.write(abs, text, 0o644); err != nil {
		// A partial file would pass the existence check on the next run.
		if rmErr := os.Remove(abs); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn("scanner: remove partial transcript", "file", abs, "error", rmErr)
		}
		return "", fmt.Errorf("write %s: %w", abs, err)
	}
	record.MarkSaved(key, title, s.cfg.Now())
	log.Info("scanner: saved", "row", n, "file", filepath.Base(abs), "size", len(text))

	if s.cfg.Archiver != nil {
		if _, err := s.cfg.Archiver.Put(ctx, abs); err != nil {
			log.Warn("scanner: archive failed", "file", abs, "error", err)
		}
	}
	return abs, nil
}

// export tries the viewer's text export, then the direct document link.
func (s *Scanner) export(ctx context.Context, row portal.Row) ([]byte, error) {
	text, err := row.ExportText(ctx)
	if err == nil {
		return text, nil
	}
	if s.cfg.Fallback == nil || row.Link() == "" {
		return nil, fmt.Errorf("export: %w", err)
	}
	s.cfg.Logger.Warn("scanner: viewer export failed, fetching document link", "link", row.Link(), "error", err)
	text, ferr := s.cfg.Fallback.FetchText(ctx, row.Link())
	if ferr != nil {
		return nil, fmt.Errorf("export: %w", errors.Join(err, ferr))
	}
	return text, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
