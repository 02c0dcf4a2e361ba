package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"
)

// Audit wraps the audit database with best-effort write helpers. Every
// method swallows its own error after logging it: a failed audit write must
// never fail the dispatch or sync operation it is observing.
type Audit struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAudit wraps an already-open audit database.
func NewAudit(db *sql.DB, logger *slog.Logger) *Audit {
	return &Audit{db: db, logger: logger}
}

// LogAction records the outcome of one dispatched action.
func (a *Audit) LogAction(ctx context.Context, actionID, actionType string, argv []string, success bool, exitCode int, timedOut bool, result string, duration time.Duration) {
	if a == nil || a.db == nil {
		return
	}
	argvJSON, err := json.Marshal(argv)
	if err != nil {
		a.logger.Debug("audit: marshal argv failed", slog.Any("error", err))
		return
	}
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO action_log (action_id, action_type, argv_json, success, exit_code, timed_out, result, duration_ms, dispatched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, actionID, actionType, string(argvJSON), boolToInt(success), exitCode, boolToInt(timedOut), result, duration.Milliseconds(), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		a.logger.Debug("audit: insert action_log failed", slog.String("action_id", actionID), slog.Any("error", err))
	}
}

// LogSync records the outcome of one upsert performed during a sync pass.
func (a *Audit) LogSync(ctx context.Context, operation, entityKey string, success bool, syncErr error) {
	if a == nil || a.db == nil {
		return
	}
	var errMsg sql.NullString
	if syncErr != nil {
		errMsg = sql.NullString{String: syncErr.Error(), Valid: true}
	}
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO sync_log (operation, entity_key, success, error, synced_at)
		VALUES (?, ?, ?, ?, ?)
	`, operation, entityKey, boolToInt(success), errMsg, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		a.logger.Debug("audit: insert sync_log failed", slog.String("entity_key", entityKey), slog.Any("error", err))
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
