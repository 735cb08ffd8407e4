package store

import (
	"database/sql"
	"fmt"
)

// File is a row of the file table. Name is the path relative to the
// project root; Mtime is the modification time in whole seconds that the
// file's index records were produced from.
type File struct {
	ID    int64
	Name  string
	Mtime int64
}

// EnsureFile maps a root-relative path to its file id, invalidating stale
// records on the way: a name whose stored mtime differs from the given one
// is deleted (the cascade clears its index records) and re-inserted. The
// lookup / delete / insert sequence runs under one write transaction so
// two indexers cannot both insert the same path.
func (s *Store) EnsureFile(name string, mtime int64) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("ensure file %s: begin: %w", name, err)
	}
	defer tx.Rollback()

	var id, stored int64
	err = tx.QueryRow("SELECT id, mtime FROM file WHERE name = ?", name).Scan(&id, &stored)
	switch {
	case err == nil && stored == mtime:
		return id, tx.Commit()
	case err == nil:
		if _, err := tx.Exec("DELETE FROM file WHERE id = ?", id); err != nil {
			return 0, fmt.Errorf("ensure file %s: invalidate: %w", name, err)
		}
	case err != sql.ErrNoRows:
		return 0, fmt.Errorf("ensure file %s: lookup: %w", name, err)
	}

	res, err := tx.Exec("INSERT INTO file (name, mtime) VALUES (?, ?)", name, mtime)
	if err != nil {
		return 0, fmt.Errorf("ensure file %s: insert: %w", name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ensure file %s: insert id: %w", name, err)
	}
	return id, tx.Commit()
}

// FileByName returns the file record for a root-relative name, or nil if
// the path has never been indexed.
func (s *Store) FileByName(name string) (*File, error) {
	f := &File{}
	err := s.db.QueryRow("SELECT id, name, mtime FROM file WHERE name = ?", name).
		Scan(&f.ID, &f.Name, &f.Mtime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by name %s: %w", name, err)
	}
	return f, nil
}

// RemoveFiles deletes every file whose name matches one of the GLOB
// patterns and, by cascade, all of its index records. All patterns are
// applied in one transaction. Returns the number of file rows deleted.
func (s *Store) RemoveFiles(patterns []string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("remove files: begin: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, pat := range patterns {
		res, err := tx.Exec("DELETE FROM file WHERE name GLOB ?", pat)
		if err != nil {
			return 0, fmt.Errorf("remove files %q: %w", pat, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("remove files %q: rows: %w", pat, err)
		}
		total += n
	}
	return total, tx.Commit()
}
