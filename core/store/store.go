package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tristendillon/diagify/core/logger"
	_ "modernc.org/sqlite"
)

const FileName = "diagify.db"

// DB is the local state database: catalog cache and run history.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path. A directory path gets
// FileName appended.
func Open(path string) (*DB, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" || p == "." {
		return nil, errors.New("missing database path")
	}
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		p = filepath.Join(p, FileName)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Single-process local DB.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger.Debug("Opened state database %s", p)
	return &DB{db: db, path: p}, nil
}

func (d *DB) Path() string {
	return d.path
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) ready() error {
	if d == nil || d.db == nil {
		return errors.New("store not initialized")
	}
	return nil
}

func initSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("nil db")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	return migrateSchema(db)
}

func migrateSchema(db *sql.DB) error {
	// Schema versions:
	// - v1: catalog_cache, runs
	const targetVersion = 1

	var v int
	if err := db.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("pragma user_version: %w", err)
	}
	if v >= targetVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS catalog_cache (
  package TEXT NOT NULL,
  root TEXT NOT NULL,
  version TEXT NOT NULL,
  fingerprint TEXT NOT NULL,
  entries TEXT NOT NULL,
  built_at_unix_ms INTEGER NOT NULL,
  PRIMARY KEY (package, root)
);
`); err != nil {
		return fmt.Errorf("create catalog_cache: %w", err)
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  description TEXT NOT NULL,
  provider TEXT NOT NULL,
  model TEXT NOT NULL,
  state TEXT NOT NULL,
  flagged INTEGER NOT NULL,
  unfixable INTEGER NOT NULL,
  corrections INTEGER NOT NULL,
  source_path TEXT NOT NULL,
  artifact_path TEXT NOT NULL,
  error TEXT NOT NULL,
  started_at_unix_ms INTEGER NOT NULL,
  finished_at_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at_unix_ms);
`); err != nil {
		return fmt.Errorf("create runs: %w", err)
	}

	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version=%d;`, targetVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return tx.Commit()
}
