package scanner

import (
	"regexp"
	"strings"
)

var (
	unsafeRune = regexp.MustCompile(`[^a-zA-Z0-9._ -]`)
	spaceRun   = regexp.MustCompile(`\s+`)
)

// Sanitize maps a result title to a file name stem. Every character outside
// [a-zA-Z0-9._ -] becomes '_', whitespace runs collapse to one space and the
// ends are trimmed. Distinct titles may collide; titles are assumed unique.
func Sanitize(title string) string {
	s := unsafeRune.ReplaceAllString(title, "_")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
