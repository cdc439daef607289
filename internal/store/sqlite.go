package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"CoinSentinel/internal/model"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists prices in a SQLite table whose UNIQUE(asset, timestamp)
// constraint carries the deduplication.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string, log zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single connection: writes are serialized and ":memory:" stays one database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prices (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			asset     TEXT    NOT NULL,
			price     REAL    NOT NULL,
			timestamp INTEGER NOT NULL,
			UNIQUE(asset, timestamp)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, asset string, samples []model.Sample) (int, error) {
	batch := prepare(samples)
	if len(batch) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO prices (asset, price, timestamp) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, smp := range batch {
		res, err := stmt.ExecContext(ctx, asset, smp.Price, smp.Timestamp.UnixMilli())
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert %s@%d: %w", asset, smp.Timestamp.UnixMilli(), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteStore) Read(ctx context.Context, asset string) (model.PriceSeries, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT price, timestamp FROM prices WHERE asset = ? ORDER BY timestamp ASC`, asset)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	series := model.PriceSeries{Asset: asset, Points: []model.PricePoint{}}
	for rows.Next() {
		var (
			price float64
			ms    int64
		)
		if err := rows.Scan(&price, &ms); err != nil {
			return model.PriceSeries{}, fmt.Errorf("scan prices: %w", err)
		}
		series.Points = append(series.Points, model.PricePoint{
			Asset:     asset,
			Timestamp: time.UnixMilli(ms).UTC(),
			Price:     price,
		})
	}
	return series, rows.Err()
}

func (s *SQLiteStore) Assets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT asset FROM prices ORDER BY asset`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var assets []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan assets: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context, asset string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prices WHERE asset = ?`, asset).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count prices: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	s.log.Info().Msg("closing sqlite store")
	return s.db.Close()
}
