// CLAUDE:SUMMARY CLI entry point for the digest run: excerpt keyword matches from new_files.txt and email them with the transcripts attached.
// Command hansard-digest mails the keyword digest for the transcripts listed
// by the last hansard-scan run.
//
// Usage:
//
//	hansard-digest
//	hansard-digest -config hansard.yaml -consume
//
// EMAIL_USER, EMAIL_PASS and EMAIL_TO must be set. A missing or empty
// new_files.txt is not an error: nothing is sent.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/hansardwatch/config"
	"github.com/hazyhaar/hansardwatch/digest"
	"github.com/hazyhaar/hansardwatch/mailer"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (default $HANSARD_CONFIG)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (default $LOG_LEVEL or info)")
	consume := flag.Bool("consume", false, "remove new_files.txt after a successful send")
	flag.Parse()

	cfg, err := config.Load(*configPath, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *consume {
		cfg.Digest.Consume = true
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("hansard-digest: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	if err := cfg.ValidateMail(); err != nil {
		return err
	}

	m := mailer.New(mailer.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		User:     cfg.Mail.User,
		Password: cfg.Mail.Password,
		FromName: cfg.Mail.FromName,
		Logger:   logger,
	})
	d, err := digest.New(digest.Config{
		Keywords: cfg.Digest.Keywords,
		Radius:   cfg.Digest.Radius,
		To:       cfg.Mail.To,
		Consume:  cfg.Digest.Consume,
		Logger:   logger,
	}, m)
	if err != nil {
		return err
	}

	rep, err := d.Run(ctx, cfg.State.NewFilesPath)
	if err != nil {
		return err
	}
	if rep == nil {
		logger.Info("hansard-digest: nothing to send", "list", cfg.State.NewFilesPath)
		return nil
	}
	logger.Info("hansard-digest: sent",
		"to", cfg.Mail.To,
		"files", rep.Listed,
		"attached", len(rep.Attachments()),
		"matches", rep.TotalMatches(),
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
