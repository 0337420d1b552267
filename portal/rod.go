package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/hansardwatch/portal/internal/browser"
	"github.com/hazyhaar/hansardwatch/safeio"
)

// Interaction budgets. Navigation and the results table are fatal, the
// others fail a single row or are swallowed.
const (
	navTimeout      = 30 * time.Second
	sortTimeout     = 5 * time.Second
	resortTimeout   = 10 * time.Second
	viewerTimeout   = 40 * time.Second
	menuTimeout     = 30 * time.Second
	itemTimeout     = 20 * time.Second
	downloadTimeout = 2 * time.Minute
	closeTimeout    = 5 * time.Second
	closePause      = 300 * time.Millisecond
)

// RodConfig configures the Chrome-backed portal.
type RodConfig struct {
	URL         string
	SettleDelay time.Duration
	SortByDate  bool

	RemoteURL        string
	Headless         bool
	Stealth          bool
	ResourceBlocking []string

	Logger *slog.Logger
}

// Rod drives the portal through a single Chrome tab.
type Rod struct {
	cfg     RodConfig
	mgr     *browser.Manager
	browser *rod.Browser
	page    *rod.Page
	dlDir   string
}

// NewRod starts Chrome and opens the tab used for the whole run.
func NewRod(ctx context.Context, cfg RodConfig) (*Rod, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.RemoteURL,
		Headless:         cfg.Headless,
		Stealth:          cfg.Stealth,
		ResourceBlocking: cfg.ResourceBlocking,
		Logger:           cfg.Logger,
	})
	b, err := mgr.Start(ctx)
	if err != nil {
		return nil, err
	}
	page, err := mgr.NewPage()
	if err != nil {
		mgr.Close()
		return nil, err
	}
	dir, err := os.MkdirTemp("", "hansard-dl-*")
	if err != nil {
		mgr.Close()
		return nil, fmt.Errorf("portal: download dir: %w", err)
	}
	return &Rod{cfg: cfg, mgr: mgr, browser: b, page: page, dlDir: dir}, nil
}

// Close shuts Chrome down and removes the download directory.
func (p *Rod) Close() error {
	err := p.mgr.Close()
	os.RemoveAll(p.dlDir)
	return err
}

// waitFor waits up to d for sel and returns the element bound to ctx.
func (p *Rod) waitFor(ctx context.Context, sel string, d time.Duration) (*rod.Element, error) {
	pg := p.page.Context(ctx).Timeout(d)
	defer pg.CancelTimeout()
	el, err := pg.Element(sel)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", sel, err)
	}
	return el.Context(ctx), nil
}

func (p *Rod) click(ctx context.Context, sel string, d time.Duration) error {
	el, err := p.waitFor(ctx, sel, d)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// Search implements Portal.
func (p *Rod) Search(ctx context.Context, query string) ([]Row, error) {
	log := p.cfg.Logger

	log.Info("portal: opening search home", "url", p.cfg.URL)
	nav := p.page.Context(ctx).Timeout(navTimeout)
	err := nav.Navigate(p.cfg.URL)
	nav.CancelTimeout()
	if err != nil {
		return nil, fmt.Errorf("portal: navigate %s: %w", p.cfg.URL, err)
	}

	box, err := p.waitFor(ctx, SelSearchBox, navTimeout)
	if err != nil {
		return nil, fmt.Errorf("portal: search form: %w", err)
	}
	if err := box.SelectAllText(); err != nil {
		log.Debug("portal: select search text", "error", err)
	}
	if err := box.Input(query); err != nil {
		return nil, fmt.Errorf("portal: fill query: %w", err)
	}

	log.Info("portal: submitting search", "query", query)
	if err := p.click(ctx, SelSearchButton, navTimeout); err != nil {
		return nil, fmt.Errorf("portal: submit: %w", err)
	}
	if _, err := p.waitFor(ctx, SelResultsTable, navTimeout); err != nil {
		return nil, fmt.Errorf("portal: results table: %w", err)
	}

	if p.cfg.SortByDate {
		p.sortByDate(ctx)
	}

	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("portal: read results: %w", err)
	}
	results, err := ParseResults(html)
	if err != nil {
		return nil, err
	}
	els, err := p.page.Context(ctx).Elements(SelResultRows)
	if err != nil {
		return nil, fmt.Errorf("portal: result rows: %w", err)
	}
	if len(els) != len(results) {
		log.Warn("portal: row count mismatch", "dom", len(els), "html", len(results))
	}

	n := min(len(els), len(results))
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, &rodRow{p: p, res: results[i], el: els[i]})
	}
	return rows, nil
}

// sortByDate clicks the date-sort quick link when present. Every failure
// here is tolerated.
func (p *Rod) sortByDate(ctx context.Context) {
	log := p.cfg.Logger
	if err := p.click(ctx, SelSortByDate, sortTimeout); err != nil {
		log.Debug("portal: sort by date unavailable", "error", err)
		return
	}
	pg := p.page.Context(ctx).Timeout(resortTimeout)
	defer pg.CancelTimeout()
	if err := pg.WaitLoad(); err != nil {
		log.Debug("portal: wait after sort", "error", err)
	}
	if _, err := p.waitFor(ctx, SelResultsTable, resortTimeout); err != nil {
		log.Debug("portal: results table after sort", "error", err)
	}
}

// closeViewer dismisses the document viewer. Failures are tolerated.
func (p *Rod) closeViewer(ctx context.Context) {
	if err := p.click(ctx, SelCloseBtn, closeTimeout); err != nil {
		p.cfg.Logger.Debug("portal: close viewer", "error", err)
		return
	}
	sleep(ctx, closePause)
}

func (p *Rod) exportText(ctx context.Context, row *rodRow) ([]byte, error) {
	title := row.el.Context(ctx)
	links, err := title.Elements(SelTitleLink)
	if err != nil || links.Empty() {
		return nil, ErrNoTitle
	}
	if err := links.First().Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("open viewer: %w", err)
	}
	defer p.closeViewer(ctx)

	if _, err := p.waitFor(ctx, SelViewer, viewerTimeout); err != nil {
		return nil, err
	}

	// Let the viewer wire up its toolbar.
	if err := sleep(ctx, p.cfg.SettleDelay); err != nil {
		return nil, err
	}

	if err := p.click(ctx, SelDownloadBtn, menuTimeout); err != nil {
		return nil, fmt.Errorf("download menu: %w", err)
	}
	if _, err := p.waitFor(ctx, SelDownloadItem, itemTimeout); err != nil {
		return nil, err
	}

	pg := p.page.Context(ctx).Timeout(itemTimeout)
	item, err := pg.ElementR(SelDownloadItem, TextExportLabel)
	pg.CancelTimeout()
	if err != nil {
		return nil, fmt.Errorf("%q entry: %w", TextExportLabel, err)
	}

	b := p.browser.Context(ctx).Timeout(downloadTimeout)
	defer b.CancelTimeout()
	wait := b.WaitDownload(p.dlDir)
	if err := item.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("click %q: %w", TextExportLabel, err)
	}
	info := wait()
	if info == nil || info.GUID == "" {
		return nil, errors.New("download did not start")
	}

	path := filepath.Join(p.dlDir, info.GUID)
	defer os.Remove(path)
	data, err := safeio.LimitedReadFile(path, safeio.MaxTranscript)
	if err != nil {
		return nil, fmt.Errorf("read download: %w", err)
	}
	return data, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type rodRow struct {
	p   *Rod
	res Result
	el  *rod.Element
}

func (r *rodRow) Title() (string, error) {
	if !r.res.HasTitle || r.res.Title == "" {
		return "", ErrNoTitle
	}
	return r.res.Title, nil
}

func (r *rodRow) Link() string { return r.res.Link }

func (r *rodRow) ExportText(ctx context.Context) ([]byte, error) {
	data, err := r.p.exportText(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("portal: export row %d: %w", r.res.Index, err)
	}
	return data, nil
}
