package seen

import (
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/hansardwatch/dbopen"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// sqliteBusyTimeoutMS bounds waits on a record locked by a concurrent scan.
const sqliteBusyTimeoutMS = 5000

// Open builds the store for backend at path. The returned close function is
// never nil.
func Open(backend, path string, logger *slog.Logger) (Store, func() error, error) {
	noop := func() error { return nil }
	switch backend {
	case "", BackendJSON:
		return NewJSONStore(path, logger), noop, nil
	case BackendSQLite:
		db, err := dbopen.Open(path,
			dbopen.WithMkdirAll(),
			dbopen.WithBusyTimeout(sqliteBusyTimeoutMS),
			dbopen.WithSchema(Schema),
		)
		if err != nil {
			return nil, noop, err
		}
		st, err := NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return st, db.Close, nil
	case BackendMemory:
		return NewMemoryStore(nil), noop, nil
	default:
		return nil, noop, fmt.Errorf("seen: unknown backend %q", backend)
	}
}
