package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.sqlite"), false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// countRecords returns the number of rows in sindex, optionally narrowed
// to one symbol.
func countRecords(t *testing.T, s *Store, symbol string) int {
	t.Helper()
	var n int
	var err error
	if symbol == "" {
		err = s.db.QueryRow("SELECT COUNT(*) FROM sindex").Scan(&n)
	} else {
		err = s.db.QueryRow("SELECT COUNT(*) FROM sindex WHERE symbol = ?", symbol).Scan(&n)
	}
	require.NoError(t, err)
	return n
}

// =============================================================================
// Open / schema
// =============================================================================

func TestOpen_CreatesSchema(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"file", "sindex"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, SchemaVersion, version)
}

func TestOpen_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_ForeignKeysOn(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var on int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&on))
	assert.Equal(t, 1, on)
}

func TestOpen_ReadOnlyMissingFails(t *testing.T) {
	t.Parallel()
	_, err := Open(filepath.Join(t.TempDir(), "missing.sqlite"), true)
	require.Error(t, err)
}

func TestOpen_SchemaTooOld(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "old.sqlite")

	s, err := Open(path, false)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path, false)
	require.ErrorIs(t, err, ErrSchemaTooOld)
}

func TestOpen_ExistingCurrentVersion(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "idx.sqlite")

	s, err := Open(path, false)
	require.NoError(t, err)
	_, err = s.EnsureFile("a.c", 100)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, false)
	require.NoError(t, err)
	defer s.Close()
	f, err := s.FileByName("a.c")
	require.NoError(t, err)
	require.NotNil(t, f)
}

func TestUniqueIndex_OnRecordKey(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id, err := s.EnsureFile("a.c", 1)
	require.NoError(t, err)

	insert := fmt.Sprintf(
		`INSERT INTO sindex (file, line, "column", symbol, kind, context, mode) VALUES (%d, 1, 5, 'x', %d, '', 4)`,
		id, 'v')
	_, err = s.db.Exec(insert)
	require.NoError(t, err)
	_, err = s.db.Exec(insert)
	assert.Error(t, err, "duplicate key should violate the unique index")
}
