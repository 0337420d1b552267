package digest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/hansardwatch/mailer"
	"github.com/hazyhaar/hansardwatch/newfiles"
)

// Sender delivers one message. *mailer.Mailer satisfies it.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Config configures a Digester.
type Config struct {
	Keywords []string
	Radius   int
	To       []string
	// Consume removes the new-files list after a successful send so a
	// re-run without a new scan does not mail the same files again.
	Consume bool
	Logger  *slog.Logger
	Now     func() time.Time
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Digester builds and sends the digest for one scanner hand-off.
type Digester struct {
	cfg     Config
	matcher *Matcher
	sender  Sender
}

// New creates a Digester.
func New(cfg Config, sender Sender) (*Digester, error) {
	cfg.defaults()
	m, err := NewMatcher(cfg.Keywords)
	if err != nil {
		return nil, err
	}
	return &Digester{cfg: cfg, matcher: m, sender: sender}, nil
}

// Build digests every listed file that still exists. Vanished files are
// skipped without error.
func (d *Digester) Build(files []string) (*Report, error) {
	r := &Report{
		Time:     d.cfg.Now(),
		Keywords: d.matcher.Keywords(),
		Radius:   d.cfg.Radius,
		Listed:   len(files),
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			d.cfg.Logger.Debug("digest: listed file vanished", "path", path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("digest: read %s: %w", path, err)
		}
		text := strings.ToValidUTF8(string(data), "")
		r.Sections = append(r.Sections, Section{
			Name:     filepath.Base(path),
			Path:     path,
			Snippets: d.matcher.Excerpts(text, d.cfg.Radius),
		})
	}
	return r, nil
}

// Run reads the list at listPath and sends one email. It returns a nil
// report and no error when the list is absent or empty.
func (d *Digester) Run(ctx context.Context, listPath string) (*Report, error) {
	log := d.cfg.Logger

	files, ok, err := newfiles.Read(listPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Info("digest: no new-files list, nothing new this run", "path", listPath)
		return nil, nil
	}
	if len(files) == 0 {
		log.Info("digest: new-files list empty", "path", listPath)
		return nil, nil
	}

	r, err := d.Build(files)
	if err != nil {
		return nil, err
	}

	msg := mailer.Message{
		To:          d.cfg.To,
		Subject:     r.Subject(),
		Body:        r.Body(),
		Attachments: r.Attachments(),
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return r, fmt.Errorf("digest: %w", err)
	}
	log.Info("digest: email sent", "to", strings.Join(d.cfg.To, ","),
		"files", len(files), "matches", r.TotalMatches())

	if d.cfg.Consume {
		if err := newfiles.Remove(listPath); err != nil {
			return r, err
		}
	}
	return r, nil
}
