// CLAUDE:SUMMARY CLI entry point for the scan run: search the portal, download unseen transcripts, write new_files.txt.
// Command hansard-scan checks the parliamentary search portal for new House
// of Assembly transcripts and downloads the ones not seen before.
//
// Usage:
//
//	hansard-scan                          # configuration from env / .env
//	hansard-scan -config hansard.yaml     # YAML file, env still overrides
//
// Exit status is non-zero when the portal could not be searched or the
// state could not be saved; per-transcript failures are only logged.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/hansardwatch/archive"
	"github.com/hazyhaar/hansardwatch/config"
	"github.com/hazyhaar/hansardwatch/docpipe"
	"github.com/hazyhaar/hansardwatch/idgen"
	"github.com/hazyhaar/hansardwatch/portal"
	"github.com/hazyhaar/hansardwatch/scanner"
	"github.com/hazyhaar/hansardwatch/seen"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (default $HANSARD_CONFIG)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (default $LOG_LEVEL or info)")
	flag.Parse()

	cfg, err := config.Load(*configPath, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})).
		With("run", idgen.RunID())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("hansard-scan: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	store, closeStore, err := seen.Open(cfg.State.Backend, cfg.State.SeenPath, logger)
	if err != nil {
		return fmt.Errorf("open seen store: %w", err)
	}
	defer closeStore()

	scfg := scanner.Config{
		Query:          cfg.Portal.Query,
		MaxResults:     cfg.Portal.MaxResults,
		TranscriptsDir: cfg.State.TranscriptsDir,
		NewFilesPath:   cfg.State.NewFilesPath,
		Logger:         logger,
	}
	if cfg.Portal.DocxFallback {
		fetcher, err := docpipe.New(docpipe.Config{BaseURL: cfg.Portal.URL, Logger: logger})
		if err != nil {
			return err
		}
		scfg.Fallback = fetcher
	}
	if cfg.Archive.Enabled() {
		arc, err := archive.New(ctx, archive.Config{
			Bucket:   cfg.Archive.Bucket,
			Prefix:   cfg.Archive.Prefix,
			Region:   cfg.Archive.Region,
			Endpoint: cfg.Archive.Endpoint,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		scfg.Archiver = arc
	}

	p, err := portal.NewRod(ctx, portal.RodConfig{
		URL:              cfg.Portal.URL,
		SettleDelay:      cfg.Portal.SettleDelay,
		SortByDate:       cfg.Portal.SortByDate,
		RemoteURL:        cfg.Browser.Remote,
		Headless:         cfg.Browser.Headless,
		Stealth:          cfg.Browser.Stealth,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer p.Close()

	logger.Info("hansard-scan: starting",
		"portal", cfg.Portal.URL,
		"max_results", cfg.Portal.MaxResults,
		"backend", cfg.State.Backend,
		"archive", cfg.Archive.Enabled(),
	)

	rep, err := scanner.New(scfg, p, store).Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("hansard-scan: done",
		"found", rep.Found,
		"checked", rep.Checked,
		"downloaded", rep.Downloaded,
		"known", rep.Known,
		"failed", rep.Failed,
	)
	return nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
