package digest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/hansardwatch/mailer"
	"github.com/hazyhaar/hansardwatch/newfiles"
)

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

var fixedNow = func() time.Time { return time.Date(2025, 8, 20, 6, 30, 0, 0, time.UTC) }

func newTestDigester(t *testing.T, s Sender, radius int, kws ...string) *Digester {
	t.Helper()
	d, err := New(Config{Keywords: kws, Radius: radius, To: []string{"me@example.org"}, Now: fixedNow}, s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRun_EndToEndSingleMatch(t *testing.T) {
	// WHAT: One listed file with "budget" in its third paragraph, radius 0.
	// WHY: Subject and body layout are what recipients filter on.
	dir := t.TempDir()
	tr := writeFile(t, dir, "HA Tuesday 19 August 2025.txt",
		"Prayers.\n\nPetitions were tabled.\n\nThe Treasurer delivered the budget.\n\nAdjournment.")
	list := filepath.Join(dir, "new_files.txt")
	newfiles.Write(list, []string{tr})

	s := &fakeSender{}
	r, err := newTestDigester(t, s, 0, "budget", "health").Run(context.Background(), list)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r == nil || len(s.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(s.sent))
	}
	msg := s.sent[0]

	if !strings.HasSuffix(msg.Subject, "1 new transcript(s) — 1 match(es)") {
		t.Errorf("subject = %q", msg.Subject)
	}
	if n := strings.Count(msg.Body, "• Match "); n != 1 {
		t.Errorf("match sections = %d, want 1\n%s", n, msg.Body)
	}
	if !strings.Contains(msg.Body, "• Match 1\nThe Treasurer delivered the budget.") {
		t.Errorf("body missing snippet:\n%s", msg.Body)
	}
	for _, want := range []string{
		"Time: 2025-08-20 06:30 UTC\n",
		"Keywords: budget, health\n",
		"PARAGRAPH_RADIUS: 0\n",
		"===== HA Tuesday 19 August 2025.txt =====\nMatches: 1\n",
		"(Full transcripts attached.)",
	} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0] != tr {
		t.Errorf("attachments = %v", msg.Attachments)
	}
	if msg.To[0] != "me@example.org" {
		t.Errorf("to = %v", msg.To)
	}
}

func TestRun_AbsentList(t *testing.T) {
	// WHAT: No new_files.txt means no email and no error.
	s := &fakeSender{}
	r, err := newTestDigester(t, s, 0, "budget").Run(context.Background(), filepath.Join(t.TempDir(), "new_files.txt"))
	if err != nil || r != nil {
		t.Fatalf("r=%v err=%v", r, err)
	}
	if len(s.sent) != 0 {
		t.Fatal("no email expected")
	}
}

func TestRun_EmptyList(t *testing.T) {
	list := writeFile(t, t.TempDir(), "new_files.txt", "\n\n")
	s := &fakeSender{}
	r, err := newTestDigester(t, s, 0, "budget").Run(context.Background(), list)
	if err != nil || r != nil || len(s.sent) != 0 {
		t.Fatalf("r=%v err=%v sent=%d", r, err, len(s.sent))
	}
}

func TestRun_NoMatchesAndVanishedFile(t *testing.T) {
	// WHAT: A zero-match file still gets a section and an attachment; a vanished file is skipped.
	dir := t.TempDir()
	tr := writeFile(t, dir, "quiet.txt", "Nothing of note.\n\nStill nothing.")
	list := writeFile(t, dir, "new_files.txt", tr+"\n"+filepath.Join(dir, "gone.txt")+"\n")

	s := &fakeSender{}
	r, err := newTestDigester(t, s, 1, "budget").Run(context.Background(), list)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(r.Sections))
	}
	if got := r.Sections[0].Body(); got != "No keywords matched." {
		t.Errorf("section body = %q", got)
	}
	if s.sent[0].Subject != "Hansard: 2 new transcript(s) — 0 match(es)" {
		t.Errorf("subject = %q", s.sent[0].Subject)
	}
	if len(s.sent[0].Attachments) != 1 {
		t.Errorf("attachments = %v", s.sent[0].Attachments)
	}
}

func TestRun_ConsumeRemovesListAfterSend(t *testing.T) {
	dir := t.TempDir()
	tr := writeFile(t, dir, "a.txt", "budget")
	list := filepath.Join(dir, "new_files.txt")
	newfiles.Write(list, []string{tr})

	d, _ := New(Config{Keywords: []string{"budget"}, Consume: true, Now: fixedNow}, &fakeSender{})
	if _, err := d.Run(context.Background(), list); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(list); !os.IsNotExist(err) {
		t.Fatalf("list should be removed, stat err = %v", err)
	}
}

func TestRun_SendFailureKeepsList(t *testing.T) {
	// WHAT: A failed send returns an error and leaves the list for the next run.
	dir := t.TempDir()
	tr := writeFile(t, dir, "a.txt", "budget")
	list := filepath.Join(dir, "new_files.txt")
	newfiles.Write(list, []string{tr})

	boom := errors.New("dial tcp: refused")
	d, _ := New(Config{Keywords: []string{"budget"}, Consume: true, Now: fixedNow}, &fakeSender{err: boom})
	if _, err := d.Run(context.Background(), list); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped send error", err)
	}
	if _, err := os.Stat(list); err != nil {
		t.Fatalf("list should survive a failed send: %v", err)
	}
}

func TestReport_BodyLayout(t *testing.T) {
	r := &Report{
		Time:     fixedNow(),
		Keywords: []string{"budget"},
		Radius:   1,
		Listed:   2,
		Sections: []Section{
			{Name: "a.txt", Snippets: []string{"x budget", "y budget"}},
			{Name: "b.txt"},
		},
	}
	want := "Time: 2025-08-20 06:30 UTC\n" +
		"Keywords: budget\n" +
		"PARAGRAPH_RADIUS: 1\n\n" +
		"=== EXCERPTS ===\n\n" +
		"===== a.txt =====\nMatches: 2\n• Match 1\nx budget\n\n• Match 2\ny budget\n" +
		"\n" +
		"===== b.txt =====\nMatches: 0\nNo keywords matched.\n" +
		"\n(Full transcripts attached.)"
	if got := r.Body(); got != want {
		t.Errorf("body mismatch\n got: %q\nwant: %q", got, want)
	}
	if r.Subject() != "Hansard: 2 new transcript(s) — 2 match(es)" {
		t.Errorf("subject = %q", r.Subject())
	}
}
