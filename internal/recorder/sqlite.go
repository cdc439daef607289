package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the audit trail to a SQLite database. It may share
// the file of the price store.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL mode lets the dashboard read while a cycle writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			started     INTEGER NOT NULL,
			source      TEXT,
			duration_ms INTEGER,
			assets      INTEGER,
			failed      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_started ON cycles(started)`,

		`CREATE TABLE IF NOT EXISTS ingestions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id    INTEGER,
			timestamp   INTEGER NOT NULL,
			asset       TEXT NOT NULL,
			fetched     INTEGER,
			inserted    INTEGER,
			rejected    INTEGER,
			status      TEXT,
			error       TEXT,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ingestions_ts ON ingestions(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCycle(ctx context.Context, evt *CycleEvent) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `INSERT INTO cycles
		(started, source, duration_ms, assets, failed)
		VALUES (?,?,?,?,?)`,
		evt.Started.UnixMilli(), evt.Trigger, evt.Duration.Milliseconds(), evt.Assets, evt.Failed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert cycle: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRecorder) RecordIngest(ctx context.Context, evt *IngestEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO ingestions
		(cycle_id, timestamp, asset, fetched, inserted, rejected, status, error, duration_ms)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		evt.CycleID, at.UnixMilli(), evt.Asset, evt.Fetched, evt.Inserted, evt.Rejected,
		evt.Status, evt.Error, evt.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert ingestion: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecentIngests(ctx context.Context, limit int) ([]IngestEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT cycle_id, timestamp, asset, fetched, inserted, rejected, status, error, duration_ms
		FROM ingestions ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ingestions: %w", err)
	}
	defer rows.Close()

	events := []IngestEvent{}
	for rows.Next() {
		var (
			evt    IngestEvent
			at, ms int64
		)
		if err := rows.Scan(&evt.CycleID, &at, &evt.Asset, &evt.Fetched, &evt.Inserted, &evt.Rejected,
			&evt.Status, &evt.Error, &ms); err != nil {
			return nil, fmt.Errorf("scan ingestion: %w", err)
		}
		evt.At = time.UnixMilli(at).UTC()
		evt.Duration = time.Duration(ms) * time.Millisecond
		events = append(events, evt)
	}
	return events, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
