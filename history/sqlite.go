package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// UPDATE and DELETE are rejected by triggers, so the table can only grow.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS history (
	record_id        TEXT PRIMARY KEY,
	run_id           TEXT NOT NULL,
	run_timestamp    TEXT NOT NULL,
	scenario         TEXT NOT NULL,
	engine           TEXT NOT NULL,
	status           TEXT NOT NULL,
	duration_seconds REAL NOT NULL,
	error_kind       TEXT NOT NULL DEFAULT '',
	failure_message  TEXT NOT NULL DEFAULT '',
	failure_location TEXT NOT NULL DEFAULT '',
	failure_source   TEXT NOT NULL DEFAULT '',
	artifact         TEXT NOT NULL DEFAULT '',
	seq              INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS history_run ON history (run_id);
CREATE TRIGGER IF NOT EXISTS history_no_update BEFORE UPDATE ON history
BEGIN
	SELECT RAISE(ABORT, 'history is append-only');
END;
CREATE TRIGGER IF NOT EXISTS history_no_delete BEFORE DELETE ON history
BEGIN
	SELECT RAISE(ABORT, 'history is append-only');
END;
`

// SQLiteStore mirrors records into a SQLite database.
type SQLiteStore struct {
	path string
	db   *sql.DB
	lock sync.Mutex
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer; appends are serialized anyway.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &SQLiteStore{path: path, db: db}, nil
}

func (s *SQLiteStore) Name() string { return "sqlite:" + s.path }

func (s *SQLiteStore) Append(ctx context.Context, r Record) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO history (record_id, run_id, run_timestamp, scenario, engine, status, duration_seconds,
	error_kind, failure_message, failure_location, failure_source, artifact, seq)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM history))`,
		r.RecordID, r.RunID, r.RunTimestamp.Format(timestampLayout), r.Scenario, r.Engine, r.Status,
		r.Duration.Seconds(), r.ErrorKind, r.FailureMessage, r.FailureLocation, r.FailureSource,
		r.Artifact)
	if err != nil {
		return &StoreWriteError{Backend: s.Name(), RecordID: r.RecordID, Err: err}
	}
	return nil
}

// Records returns every stored record in the order they were appended.
func (s *SQLiteStore) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT record_id, run_id, run_timestamp, scenario, engine, status, duration_seconds,
	error_kind, failure_message, failure_location, failure_source, artifact
FROM history ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ret []Record
	for rows.Next() {
		var r Record
		var ts string
		var seconds float64
		if err := rows.Scan(&r.RecordID, &r.RunID, &ts, &r.Scenario, &r.Engine, &r.Status, &seconds,
			&r.ErrorKind, &r.FailureMessage, &r.FailureLocation, &r.FailureSource,
			&r.Artifact); err != nil {
			return nil, err
		}
		if r.RunTimestamp, err = time.Parse(timestampLayout, ts); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(seconds * float64(time.Second)).Round(time.Millisecond)
		ret = append(ret, r)
	}
	return ret, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
