package store

import "fmt"

// The staging table is an in-memory twin of sindex that absorbs records
// while the frontend runs. It carries the same uniqueness key but no
// foreign key: the file table lives in the main database, and SQLite does
// not allow cross-database references.
const stagingDDL = `
CREATE TABLE staging.sindex (
  file     INTEGER NOT NULL,
  line     INTEGER NOT NULL,
  "column" INTEGER NOT NULL,
  symbol   TEXT NOT NULL,
  kind     INTEGER NOT NULL,
  context  TEXT,
  mode     INTEGER NOT NULL
);

CREATE UNIQUE INDEX staging.idx_staging_key ON sindex(symbol, kind, mode, file, line, "column");
`

// BeginStaging attaches an in-memory scratch database and creates the
// staging table in it. Must be paired with EndStaging.
func (s *Store) BeginStaging() error {
	if _, err := s.db.Exec("ATTACH DATABASE ':memory:' AS staging"); err != nil {
		return fmt.Errorf("attach staging database: %w", err)
	}
	if _, err := s.db.Exec(stagingDDL); err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}
	stage, err := s.db.Prepare(
		`INSERT OR IGNORE INTO staging.sindex (file, line, "column", symbol, kind, context, mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare staging insert: %w", err)
	}
	s.stage = stage
	return nil
}

// StageRecord writes one occurrence into the staging table. Duplicate
// emissions for the same (symbol, kind, mode, file, line, column) point
// are silently coalesced.
func (s *Store) StageRecord(fileID int64, line, col int, symbol string, kind byte, context string, mode uint32) error {
	if s.stage == nil {
		return fmt.Errorf("stage record: no staging table attached")
	}
	if _, err := s.stage.Exec(fileID, line, col, symbol, int64(kind), context, int64(mode)); err != nil {
		return fmt.Errorf("stage record %s: %w", symbol, err)
	}
	return nil
}

// MergeStaging publishes the staged records into the persistent table in
// one transaction, again coalescing duplicates. Readers never observe a
// partially merged run.
func (s *Store) MergeStaging() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("merge staging: begin: %w", err)
	}
	defer tx.Rollback()
	_, err = tx.Exec(
		`INSERT OR IGNORE INTO sindex
		 SELECT file, line, "column", symbol, kind, context, mode FROM staging.sindex`)
	if err != nil {
		return fmt.Errorf("merge staging: %w", err)
	}
	return tx.Commit()
}

// EndStaging releases the staging statement and detaches the scratch
// database. Safe to call when staging was never begun.
func (s *Store) EndStaging() error {
	if s.stage == nil {
		return nil
	}
	s.stage.Close()
	s.stage = nil
	if _, err := s.db.Exec("DETACH DATABASE staging"); err != nil {
		return fmt.Errorf("detach staging database: %w", err)
	}
	return nil
}
