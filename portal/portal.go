// CLAUDE:SUMMARY Narrow capability interface over the parliamentary search portal (search, row title/link, text export).
// Package portal is the narrow capability interface the scanner uses to talk
// to the parliamentary search portal. The Rod implementation drives a real
// Chrome; tests use fakes.
package portal

import (
	"context"
	"errors"
)

// ErrNoTitle is returned by Row.Title when the row has no viewer link.
var ErrNoTitle = errors.New("portal: row has no title link")

// Portal runs a search and exposes the result rows.
type Portal interface {
	// Search submits query and returns the result rows in page order.
	// Failing to reach the search form or the results table is fatal.
	Search(ctx context.Context, query string) ([]Row, error)
	Close() error
}

// Row is one search result.
type Row interface {
	// Title returns the trimmed title text, or ErrNoTitle.
	Title() (string, error)
	// Link returns the direct document link (href), or "".
	Link() string
	// ExportText opens the row in the document viewer, triggers the
	// plain-text export and returns the downloaded bytes.
	ExportText(ctx context.Context) ([]byte, error)
}
