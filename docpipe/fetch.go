package docpipe

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hazyhaar/hansardwatch/safeio"
)

// Config configures the Fetcher.
type Config struct {
	// BaseURL resolves relative document links (the portal search URL).
	BaseURL string
	// Timeout per request. Default: 60s.
	Timeout time.Duration
	// MaxBytes caps the accepted document size. Default: 50 MB.
	MaxBytes  int
	UserAgent string
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 50 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; hansardwatch/1.0)"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fetcher downloads a row's document link and converts it to text.
type Fetcher struct {
	cfg    Config
	base   *url.URL
	client *resty.Client
}

// New creates a Fetcher.
func New(cfg Config) (*Fetcher, error) {
	cfg.defaults()
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("docpipe: base url: %w", err)
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent)
	return &Fetcher{cfg: cfg, base: base, client: client}, nil
}

// Resolve turns a possibly relative link into an absolute URL.
func (f *Fetcher) Resolve(link string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", fmt.Errorf("docpipe: link %q: %w", link, err)
	}
	return f.base.ResolveReference(ref).String(), nil
}

// FetchText downloads link and returns its text. .docx documents are
// converted, .txt documents are returned as is.
func (f *Fetcher) FetchText(ctx context.Context, link string) ([]byte, error) {
	abs, err := f.Resolve(link)
	if err != nil {
		return nil, err
	}
	u, _ := url.Parse(abs)
	ext := strings.ToLower(path.Ext(u.Path))
	if ext != ".docx" && ext != ".txt" {
		return nil, fmt.Errorf("docpipe: unsupported format %q", ext)
	}

	resp, err := f.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(abs)
	if err != nil {
		return nil, fmt.Errorf("docpipe: get %s: %w", abs, err)
	}
	raw := resp.RawBody()
	defer raw.Close()
	if resp.IsError() {
		return nil, fmt.Errorf("docpipe: get %s: http %d", abs, resp.StatusCode())
	}
	body, err := safeio.LimitedReadAll(raw, int64(f.cfg.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("docpipe: read %s: %w", abs, err)
	}

	f.cfg.Logger.Debug("docpipe: fetched", "url", abs, "size", len(body), "format", ext)

	if ext == ".txt" {
		return body, nil
	}
	return DocxText(body)
}
