// CLAUDE:SUMMARY Paragraph splitting, whole-word keyword matching, and radius-window excerpts deduplicated by text.
// Package digest turns newly downloaded transcripts into one email digest:
// keyword excerpts with paragraph context, one section per file.
package digest

import (
	"errors"
	"regexp"
	"strings"
)

var paragraphBreak = regexp.MustCompile(`\r?\n\s*\r?\n`)

// SplitParagraphs splits text on blank lines (any number, LF or CRLF),
// trims each paragraph and drops empty ones.
func SplitParagraphs(text string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Matcher finds paragraphs containing any keyword as a whole word,
// case-insensitively. Keywords are matched literally, phrases included.
type Matcher struct {
	keywords []string
	re       *regexp.Regexp
}

// NewMatcher compiles keywords into a single alternation.
func NewMatcher(keywords []string) (*Matcher, error) {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	if len(quoted) == 0 {
		return nil, errors.New("digest: no keywords")
	}
	// Boundaries are Unicode-aware: a keyword is whole when it is not
	// flanked by a letter, digit or underscore.
	re, err := regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}_])(` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}\p{N}_])`)
	if err != nil {
		return nil, err
	}
	return &Matcher{keywords: keywords, re: re}, nil
}

// Keywords returns the configured terms in order.
func (m *Matcher) Keywords() []string { return m.keywords }

// Match reports whether p contains a keyword.
func (m *Matcher) Match(p string) bool { return m.re.MatchString(p) }

// Excerpts returns one snippet per matching paragraph: the paragraphs within
// radius of the match, joined by a blank line. Snippets with identical text
// are collapsed, first occurrence kept.
func (m *Matcher) Excerpts(text string, radius int) []string {
	if radius < 0 {
		radius = 0
	}
	paras := SplitParagraphs(text)

	var out []string
	seen := make(map[string]bool)
	for i, p := range paras {
		if !m.Match(p) {
			continue
		}
		start := max(0, i-radius)
		end := min(len(paras), i+radius+1)
		snippet := strings.Join(paras[start:end], "\n\n")
		if seen[snippet] {
			continue
		}
		seen[snippet] = true
		out = append(out, snippet)
	}
	return out
}
