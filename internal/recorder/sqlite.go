package recorder

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"StockSentinel/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists snapshots and call history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kdj_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at INTEGER NOT NULL,
			code        TEXT NOT NULL,
			week        TEXT NOT NULL,
			k           REAL,
			d           REAL,
			j           REAL,
			trigger     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kdj_code_ts ON kdj_snapshots(code, recorded_at)`,

		`CREATE TABLE IF NOT EXISTS call_log (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			op          TEXT NOT NULL,
			code        TEXT,
			attempts    INTEGER NOT NULL,
			outcome     TEXT,
			elapsed_ms  INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_call_ts ON call_log(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordKDJ(rec *KDJRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := rec.RecordedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO kdj_snapshots
		(recorded_at, code, week, k, d, j, trigger)
		VALUES (?,?,?,?,?,?,?)`,
		at.UnixMilli(), rec.Code, rec.Date, rec.K, rec.D, rec.J, string(rec.Trigger),
	)
	return err
}

func (r *SQLiteRecorder) RecordCall(rec *CallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO call_log
		(id, started_at, op, code, attempts, outcome, elapsed_ms, error)
		VALUES (?,?,?,?,?,?,?,?)`,
		rec.ID, rec.StartedAt.UnixMilli(), rec.Op, rec.Code,
		len(rec.Attempts), string(rec.Outcome()), rec.Elapsed.Milliseconds(), rec.Err,
	)
	return err
}

// RecentKDJ returns up to limit snapshots for code, newest first.
func (r *SQLiteRecorder) RecentKDJ(code string, limit int) ([]KDJRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT recorded_at, code, week, k, d, j, trigger
		FROM kdj_snapshots WHERE code = ? ORDER BY recorded_at DESC, id DESC LIMIT ?`, code, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KDJRecord
	for rows.Next() {
		var (
			rec     KDJRecord
			ms      int64
			trigger sql.NullString
		)
		if err := rows.Scan(&ms, &rec.Code, &rec.Date, &rec.K, &rec.D, &rec.J, &trigger); err != nil {
			return nil, err
		}
		rec.RecordedAt = time.UnixMilli(ms)
		rec.Trigger = model.TriggerType(trigger.String)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	slog.Info("closing sqlite recorder")
	return r.db.Close()
}
