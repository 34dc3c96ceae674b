package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultPath = ".cache/market_matches.db"
)

// Store wraps a SQLite DB connection holding the match cache relations.
type Store struct {
	path string
	db   *sql.DB
}

// Open creates (if needed) and opens the SQLite database and ensures the
// cache schema exists.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureWAL(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	s := &Store{path: path, db: db}
	if err := s.CreateTables(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache tables: %w", err)
	}
	if err := s.addScoreUnits(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache tables: %w", err)
	}
	return s, nil
}

func ensureWAL(db *sql.DB) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

// Path returns the path backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateTables ensures both cache relations exist.
func (s *Store) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// DropTables removes both cache relations.
func (s *Store) DropTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS market_pairs; DROP TABLE IF EXISTS event_pairs;`)
	return err
}

// Clear deletes every cached event pair and market pair in one transaction.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM market_pairs;`); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM event_pairs;`); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS event_pairs (
	pm_event_id     TEXT NOT NULL,
	ks_event_ticker TEXT NOT NULL,
	event_score     REAL NOT NULL,
	score_unit      TEXT NOT NULL DEFAULT 'cosine',
	pm_title        TEXT,
	ks_title        TEXT,
	pm_url          TEXT,
	ks_url          TEXT,
	cached_at       TEXT NOT NULL,
	PRIMARY KEY (pm_event_id, ks_event_ticker)
);
CREATE TABLE IF NOT EXISTS market_pairs (
	pm_event_id      TEXT NOT NULL,
	ks_event_ticker  TEXT NOT NULL,
	pm_market_id     TEXT NOT NULL,
	ks_market_ticker TEXT NOT NULL,
	match_score      REAL NOT NULL,
	score_unit       TEXT NOT NULL DEFAULT 'cosine',
	pm_question      TEXT,
	ks_question      TEXT,
	pm_url           TEXT,
	ks_url           TEXT,
	pm_close_time    TEXT,
	ks_close_time    TEXT,
	cached_at        TEXT NOT NULL,
	PRIMARY KEY (pm_market_id, ks_market_ticker)
);
CREATE INDEX IF NOT EXISTS market_pairs_event_idx ON market_pairs(pm_event_id, ks_event_ticker);
`
