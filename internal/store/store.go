// Package store is the SQLite persistence layer for the index: the file
// table, the sindex occurrence table, the in-memory staging database used
// during a run, and pattern-based removal.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is stamped into PRAGMA user_version when a database is
// created. Opening a database with an older version is fatal; the index
// must be rebuilt.
const SchemaVersion = 1

// ErrSchemaTooOld is returned by Open for databases written by an older
// indexer. Wrapped errors carry the database path.
var ErrSchemaTooOld = errors.New("index database schema is too old, delete it and re-run add")

// Store is the data access layer for one index database.
type Store struct {
	db *sql.DB

	// stage is the prepared insert into the attached staging table.
	// Non-nil only between BeginStaging and EndStaging.
	stage *sql.Stmt
}

// Open opens the index database at path. A missing database is created
// when write access is requested and is an error otherwise. An existing
// database is version-gated before anything touches it.
//
// The connection pool is pinned to a single connection: the staging
// database is attached per-connection, and immediate write transactions
// must run on the connection that holds it.
func Open(path string, readOnly bool) (*Store, error) {
	_, statErr := os.Stat(path)
	exists := statErr == nil
	if !exists && readOnly {
		return nil, fmt.Errorf("no index database at %s, run add first", path)
	}

	dsn := "file:" + path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=300000&_txlock=immediate"
	if readOnly {
		dsn += "&mode=ro"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	s := &Store{db: db}
	if exists {
		var version int
		if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
			db.Close()
			return nil, fmt.Errorf("read schema version of %s: %w", path, err)
		}
		if version < SchemaVersion {
			db.Close()
			return nil, fmt.Errorf("%s (version %d, current %d): %w", path, version, SchemaVersion, ErrSchemaTooOld)
		}
		return s, nil
	}
	if err := s.create(); err != nil {
		db.Close()
		os.Remove(path)
		return nil, err
	}
	return s, nil
}

// Close releases the staging statement, if any, and the database.
func (s *Store) Close() error {
	if s.stage != nil {
		s.stage.Close()
		s.stage = nil
	}
	return s.db.Close()
}

// DB returns the underlying *sql.DB for the query compiler.
func (s *Store) DB() *sql.DB {
	return s.db
}

const schemaDDL = `
CREATE TABLE file (
  id     INTEGER PRIMARY KEY AUTOINCREMENT,
  name   TEXT NOT NULL UNIQUE,
  mtime  INTEGER NOT NULL
);

CREATE TABLE sindex (
  file     INTEGER NOT NULL REFERENCES file(id) ON DELETE CASCADE,
  line     INTEGER NOT NULL,
  "column" INTEGER NOT NULL,
  symbol   TEXT NOT NULL,
  kind     INTEGER NOT NULL,
  context  TEXT,
  mode     INTEGER NOT NULL
);

CREATE UNIQUE INDEX idx_sindex_key ON sindex(symbol, kind, mode, file, line, "column");
CREATE INDEX idx_sindex_file ON sindex(file);
`

func (s *Store) create() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}
