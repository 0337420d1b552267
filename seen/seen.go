// CLAUDE:SUMMARY Seen-record model and Store abstraction (load once, mutate in memory, persist once) used for download dedup.
// Package seen tracks which portal documents have already been downloaded.
//
// A Record is loaded once per scan, mutated in memory, and persisted once at
// the end of the run. Keys are never removed: a key present in the record is
// never downloaded again.
package seen

import (
	"context"
	"time"
)

// Preexisting marks entries recorded because the output file already
// existed on disk when the key was first encountered.
const Preexisting = "preexisting"

// Entry is the metadata kept for one document key.
type Entry struct {
	Title string `json:"title"`
	Saved string `json:"saved"` // RFC 3339 UTC timestamp or Preexisting
}

// Record maps a stable document key (download link, else title) to its entry.
type Record map[string]Entry

// Has reports whether key has been recorded.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// MarkSaved records key as downloaded at t.
func (r Record) MarkSaved(key, title string, t time.Time) {
	r[key] = Entry{Title: title, Saved: t.UTC().Format(time.RFC3339)}
}

// MarkPreexisting records key as preexisting unless it is already known.
// An existing entry is kept as is.
func (r Record) MarkPreexisting(key, title string) {
	if r.Has(key) {
		return
	}
	r[key] = Entry{Title: title, Saved: Preexisting}
}

// Store loads and persists a Record.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, r Record) error
}

// MemoryStore keeps the record in memory. Used by tests and dry runs.
type MemoryStore struct {
	rec   Record
	Saves int
}

// NewMemoryStore returns a MemoryStore seeded with a copy of initial.
func NewMemoryStore(initial Record) *MemoryStore {
	return &MemoryStore{rec: clone(initial)}
}

func (m *MemoryStore) Load(_ context.Context) (Record, error) {
	return clone(m.rec), nil
}

func (m *MemoryStore) Save(_ context.Context, r Record) error {
	m.rec = clone(r)
	m.Saves++
	return nil
}

// Snapshot returns a copy of the last saved record.
func (m *MemoryStore) Snapshot() Record {
	return clone(m.rec)
}

func clone(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
