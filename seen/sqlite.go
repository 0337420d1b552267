package seen

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hazyhaar/hansardwatch/dbopen"
)

// Schema for the sqlite backend. Rows are upserted, never deleted.
const Schema = `
CREATE TABLE IF NOT EXISTS seen (
	key   TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	saved TEXT NOT NULL
);
`

// SQLiteStore persists the record in a single table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database. The schema is applied here too so
// databases not opened through Open work as well; it is idempotent.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("seen: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, title, saved FROM seen`)
	if err != nil {
		return nil, fmt.Errorf("seen: query: %w", err)
	}
	defer rows.Close()

	rec := Record{}
	for rows.Next() {
		var key string
		var e Entry
		if err := rows.Scan(&key, &e.Title, &e.Saved); err != nil {
			return nil, fmt.Errorf("seen: scan: %w", err)
		}
		rec[key] = e
	}
	return rec, rows.Err()
}

// Save upserts every entry of r in one transaction. Keys missing from r are
// left in place.
func (s *SQLiteStore) Save(ctx context.Context, r Record) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO seen (key, title, saved) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET title = excluded.title, saved = excluded.saved`)
		if err != nil {
			return fmt.Errorf("seen: prepare: %w", err)
		}
		defer stmt.Close()
		for k, e := range r {
			if _, err := stmt.ExecContext(ctx, k, e.Title, e.Saved); err != nil {
				return fmt.Errorf("seen: upsert %q: %w", k, err)
			}
		}
		return nil
	})
}
