package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/hansardwatch/newfiles"
	"github.com/hazyhaar/hansardwatch/portal"
	"github.com/hazyhaar/hansardwatch/seen"
)

type fakeRow struct {
	title     string
	titleErr  error
	link      string
	text      string
	exportErr error
	exports   int
}

func (r *fakeRow) Title() (string, error) {
	if r.titleErr != nil {
		return "", r.titleErr
	}
	return r.title, nil
}

func (r *fakeRow) Link() string { return r.link }

func (r *fakeRow) ExportText(context.Context) ([]byte, error) {
	r.exports++
	if r.exportErr != nil {
		return nil, r.exportErr
	}
	return []byte(r.text), nil
}

type fakePortal struct {
	rows    []*fakeRow
	err     error
	queries []string
}

func (p *fakePortal) Search(_ context.Context, q string) ([]portal.Row, error) {
	p.queries = append(p.queries, q)
	if p.err != nil {
		return nil, p.err
	}
	out := make([]portal.Row, len(p.rows))
	for i, r := range p.rows {
		out[i] = r
	}
	return out, nil
}

func (p *fakePortal) Close() error { return nil }

type fakeFallback struct {
	text string
	err  error
	got  []string
}

func (f *fakeFallback) FetchText(_ context.Context, link string) ([]byte, error) {
	f.got = append(f.got, link)
	return []byte(f.text), f.err
}

type fakeArchiver struct {
	put []string
	err error
}

func (a *fakeArchiver) Put(_ context.Context, p string) (string, error) {
	a.put = append(a.put, p)
	return filepath.Base(p), a.err
}

var fixedNow = func() time.Time { return time.Date(2025, 8, 19, 1, 2, 3, 0, time.UTC) }

func newTestScanner(t *testing.T, p *fakePortal, store seen.Store, mutate func(*Config)) (*Scanner, Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		Query:          "AUTHOR CONTAINS (House of Assembly)",
		MaxResults:     10,
		TranscriptsDir: filepath.Join(dir, "transcripts"),
		NewFilesPath:   filepath.Join(dir, "new_files.txt"),
		Now:            fixedNow,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, p, store), cfg
}

func TestRun_DownloadsNewAndRecords(t *testing.T) {
	p := &fakePortal{rows: []*fakeRow{
		{title: "House of Assembly Tuesday 19 August 2025", link: "/doc/1.docx", text: "A\n\nbudget\n"},
		{title: "House of Assembly Wednesday 20 August 2025", text: "B\n"},
	}}
	store := seen.NewMemoryStore(nil)
	s, cfg := newTestScanner(t, p, store, nil)

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Found != 2 || rep.Checked != 2 || rep.Downloaded != 2 || rep.Known != 0 || rep.Failed != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if p.queries[0] != cfg.Query {
		t.Errorf("query = %q", p.queries[0])
	}

	rec := store.Snapshot()
	if e := rec["/doc/1.docx"]; e.Title != "House of Assembly Tuesday 19 August 2025" || e.Saved != "2025-08-19T01:02:03Z" {
		t.Errorf("link-keyed entry = %+v", e)
	}
	if !rec.Has("House of Assembly Wednesday 20 August 2025") {
		t.Error("row without link should be keyed by title")
	}

	data, err := os.ReadFile(filepath.Join(cfg.TranscriptsDir, "House of Assembly Tuesday 19 August 2025.txt"))
	if err != nil || string(data) != "A\n\nbudget\n" {
		t.Errorf("transcript = %q, %v", data, err)
	}

	listed, ok, err := newfiles.Read(cfg.NewFilesPath)
	if err != nil || !ok {
		t.Fatalf("new files list: ok=%v err=%v", ok, err)
	}
	if len(listed) != 2 || !filepath.IsAbs(listed[0]) || listed[0] != rep.Files[0] {
		t.Errorf("listed = %v, files = %v", listed, rep.Files)
	}
}

func TestRun_SeenKeyNeverRedownloaded(t *testing.T) {
	// WHAT: A key present in the record is skipped on every later scan.
	// WHY: The output file may have been removed; the record alone must block.
	row := &fakeRow{title: "HA 19 August", link: "/doc/1.docx", text: "x"}
	store := seen.NewMemoryStore(seen.Record{
		"/doc/1.docx": {Title: "HA 19 August", Saved: "2025-08-19T00:00:00Z"},
	})
	s, cfg := newTestScanner(t, &fakePortal{rows: []*fakeRow{row}}, store, nil)

	for i := 0; i < 2; i++ {
		rep, err := s.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if rep.Known != 1 || rep.Downloaded != 0 {
			t.Fatalf("run %d: report = %+v", i, rep)
		}
	}
	if row.exports != 0 {
		t.Errorf("ExportText called %d times", row.exports)
	}
	if got := store.Snapshot()["/doc/1.docx"].Saved; got != "2025-08-19T00:00:00Z" {
		t.Errorf("existing entry overwritten: %q", got)
	}
	if _, err := os.Stat(cfg.NewFilesPath); !os.IsNotExist(err) {
		t.Errorf("new files list written without downloads: %v", err)
	}
}

func TestRun_ExistingFileRecordedPreexisting(t *testing.T) {
	// WHAT: Unknown key with an existing output file is recorded as preexisting, not downloaded.
	row := &fakeRow{title: "HA 21 August", link: "/doc/3.docx", text: "new"}
	store := seen.NewMemoryStore(nil)
	s, cfg := newTestScanner(t, &fakePortal{rows: []*fakeRow{row}}, store, nil)

	os.MkdirAll(cfg.TranscriptsDir, 0o755)
	out := filepath.Join(cfg.TranscriptsDir, "HA 21 August.txt")
	os.WriteFile(out, []byte("old"), 0o644)

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Known != 1 || row.exports != 0 {
		t.Fatalf("report = %+v, exports = %d", rep, row.exports)
	}
	if e := store.Snapshot()["/doc/3.docx"]; e.Saved != seen.Preexisting || e.Title != "HA 21 August" {
		t.Errorf("entry = %+v", e)
	}
	if data, _ := os.ReadFile(out); string(data) != "old" {
		t.Errorf("existing file overwritten: %q", data)
	}
}

func TestRun_RowFailuresIsolated(t *testing.T) {
	// WHAT: Title and export failures count as failed; other rows proceed; record still saved.
	p := &fakePortal{rows: []*fakeRow{
		{titleErr: portal.ErrNoTitle},
		{title: "broken", link: "/doc/b.docx", exportErr: errors.New("menu never appeared")},
		{title: "good", link: "/doc/g.docx", text: "fine"},
	}}
	store := seen.NewMemoryStore(nil)
	s, _ := newTestScanner(t, p, store, nil)

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Failed != 2 || rep.Downloaded != 1 {
		t.Fatalf("report = %+v", rep)
	}
	rec := store.Snapshot()
	if rec.Has("/doc/b.docx") {
		t.Error("failed row must not be recorded")
	}
	if !rec.Has("/doc/g.docx") || store.Saves != 1 {
		t.Errorf("record = %v, saves = %d", rec, store.Saves)
	}
}

func TestRun_MaxResults(t *testing.T) {
	var rows []*fakeRow
	for _, n := range []string{"a", "b", "c", "d"} {
		rows = append(rows, &fakeRow{title: n, text: n})
	}
	s, _ := newTestScanner(t, &fakePortal{rows: rows}, seen.NewMemoryStore(nil), func(c *Config) { c.MaxResults = 2 })

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Found != 4 || rep.Checked != 2 || rep.Downloaded != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if rows[2].exports != 0 {
		t.Error("row beyond MaxResults was exported")
	}
}

func TestRun_SearchFailureIsFatal(t *testing.T) {
	store := seen.NewMemoryStore(nil)
	s, cfg := newTestScanner(t, &fakePortal{err: errors.New("results table: timeout")}, store, nil)

	if _, err := s.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "results table") {
		t.Fatalf("err = %v", err)
	}
	if store.Saves != 0 {
		t.Error("record saved after fatal search error")
	}
	if _, err := os.Stat(cfg.NewFilesPath); !os.IsNotExist(err) {
		t.Error("new files list written after fatal error")
	}
}

func TestRun_FallbackOnExportFailure(t *testing.T) {
	row := &fakeRow{title: "HA 19 August", link: "/doc/1.docx", exportErr: errors.New("download timeout")}
	fb := &fakeFallback{text: "from docx"}
	store := seen.NewMemoryStore(nil)
	s, cfg := newTestScanner(t, &fakePortal{rows: []*fakeRow{row}}, store, func(c *Config) { c.Fallback = fb })

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Downloaded != 1 || len(fb.got) != 1 || fb.got[0] != "/doc/1.docx" {
		t.Fatalf("report = %+v, fallback calls = %v", rep, fb.got)
	}
	data, _ := os.ReadFile(filepath.Join(cfg.TranscriptsDir, "HA 19 August.txt"))
	if string(data) != "from docx" {
		t.Errorf("transcript = %q", data)
	}
}

func TestRun_FallbackFailureCountsAsFailed(t *testing.T) {
	row := &fakeRow{title: "HA", link: "/doc/1.docx", exportErr: errors.New("viewer")}
	fb := &fakeFallback{err: errors.New("http 404")}
	store := seen.NewMemoryStore(nil)
	s, _ := newTestScanner(t, &fakePortal{rows: []*fakeRow{row}}, store, func(c *Config) { c.Fallback = fb })

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Failed != 1 || store.Snapshot().Has("/doc/1.docx") {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRun_ArchiveFailureNotFatal(t *testing.T) {
	arc := &fakeArchiver{err: errors.New("access denied")}
	store := seen.NewMemoryStore(nil)
	s, _ := newTestScanner(t, &fakePortal{rows: []*fakeRow{{title: "HA", text: "x"}}}, store, func(c *Config) { c.Archiver = arc })

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Downloaded != 1 || len(arc.put) != 1 || arc.put[0] != rep.Files[0] {
		t.Fatalf("report = %+v, archived = %v", rep, arc.put)
	}
	if !store.Snapshot().Has("HA") {
		t.Error("archive failure must not undo the record entry")
	}
}

func TestRun_UnusableTitleFails(t *testing.T) {
	// WHAT: A title that sanitizes to nothing is a row failure, not a hidden ".txt" file.
	row := &fakeRow{title: "   ", link: "/doc/x.docx", text: "x"}
	store := seen.NewMemoryStore(nil)
	s, _ := newTestScanner(t, &fakePortal{rows: []*fakeRow{row}}, store, nil)

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Failed != 1 || row.exports != 0 || store.Snapshot().Has("/doc/x.docx") {
		t.Fatalf("report = %+v, exports = %d", rep, row.exports)
	}
}

func TestRun_FailedWriteLeavesNoPartialFile(t *testing.T) {
	// WHAT: A write that fails midway removes the partial transcript and leaves the key unrecorded.
	// WHY: A leftover file would count as "already have" and block the download forever.
	row := &fakeRow{title: "HA 22 August", link: "/doc/4.docx", text: "full transcript text"}
	store := seen.NewMemoryStore(nil)
	s, cfg := newTestScanner(t, &fakePortal{rows: []*fakeRow{row}}, store, nil)
	s.write = func(name string, data []byte, perm os.FileMode) error {
		os.WriteFile(name, data[:4], perm)
		return errors.New("no space left on device")
	}

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(cfg.TranscriptsDir, "HA 22 August.txt")
	if rep.Failed != 1 || rep.Downloaded != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("partial file left behind: %v", err)
	}
	if store.Snapshot().Has("/doc/4.docx") {
		t.Error("failed write must not be recorded")
	}

	s.write = os.WriteFile
	rep, err = s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Downloaded != 1 || row.exports != 2 {
		t.Fatalf("retry run: report = %+v, exports = %d", rep, row.exports)
	}
	if data, _ := os.ReadFile(out); string(data) != "full transcript text" {
		t.Errorf("transcript = %q", data)
	}
}
