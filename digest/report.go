package digest

import (
	"fmt"
	"strings"
	"time"
)

// NoMatches is the section body for a transcript without any keyword hit.
const NoMatches = "No keywords matched."

// Section is the digest of one transcript.
type Section struct {
	Name     string // base file name
	Path     string
	Snippets []string
}

// Body renders the numbered matches, or NoMatches.
func (s Section) Body() string {
	if len(s.Snippets) == 0 {
		return NoMatches
	}
	parts := make([]string, len(s.Snippets))
	for i, sn := range s.Snippets {
		parts[i] = fmt.Sprintf("• Match %d\n%s", i+1, sn)
	}
	return strings.Join(parts, "\n\n")
}

func (s Section) render() string {
	return fmt.Sprintf("===== %s =====\nMatches: %d\n%s\n", s.Name, len(s.Snippets), s.Body())
}

// Report aggregates every section of one digester run.
type Report struct {
	Time     time.Time
	Keywords []string
	Radius   int
	Listed   int // paths listed in new_files.txt, including vanished ones
	Sections []Section
}

// TotalMatches sums snippets across sections.
func (r *Report) TotalMatches() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Snippets)
	}
	return n
}

// Subject is the email subject line.
func (r *Report) Subject() string {
	return fmt.Sprintf("Hansard: %d new transcript(s) — %d match(es)", r.Listed, r.TotalMatches())
}

// Body is the plain-text email body.
func (r *Report) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Time: %s\n", r.Time.UTC().Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(r.Keywords, ", "))
	fmt.Fprintf(&b, "PARAGRAPH_RADIUS: %d\n\n", r.Radius)
	b.WriteString("=== EXCERPTS ===\n\n")
	for i, s := range r.Sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s.render())
	}
	b.WriteString("\n(Full transcripts attached.)")
	return b.String()
}

// Attachments lists every section's file, matched or not.
func (r *Report) Attachments() []string {
	out := make([]string, len(r.Sections))
	for i, s := range r.Sections {
		out[i] = s.Path
	}
	return out
}
