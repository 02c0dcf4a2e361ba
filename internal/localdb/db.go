// Package localdb is the optional SQLite audit/debug cache named in
// spec §9 as the daemon's one piece of (besides the PID file) process-wide
// global state: a rolling log of dispatched actions and sync operations for
// operator troubleshooting. It is never the system of record — the remote
// store owns that — and every write here is best-effort.
package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeoutMS = 5000

// Open opens (creating if necessary) the audit database at dbPath,
// configures WAL-mode pragmas for single-writer/concurrent-reader access,
// and runs pending migrations.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", normalizeSQLiteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeoutMS),
		"PRAGMA synchronous=NORMAL",
		"PRAGMA journal_mode=WAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	if err := MigrateDB(db, dbPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	return db, nil
}

// Close runs PRAGMA optimize then closes the connection.
func Close(db *sql.DB) error {
	_, _ = db.ExecContext(context.Background(), "PRAGMA optimize")
	return db.Close()
}

func normalizeSQLiteDSN(dbPath string) string {
	if dbPath == ":memory:" {
		return "file::memory:?cache=shared"
	}
	if strings.HasPrefix(dbPath, "file:") {
		return dbPath
	}
	return "file:" + dbPath + "?mode=rwc&_txlock=immediate"
}
