package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaging_DuplicatesCoalesce(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id, err := s.EnsureFile("a.c", 1)
	require.NoError(t, err)

	require.NoError(t, s.BeginStaging())
	for range 3 {
		require.NoError(t, s.StageRecord(id, 2, 7, "x", 'v', "f", 4))
	}
	require.NoError(t, s.MergeStaging())
	require.NoError(t, s.EndStaging())

	assert.Equal(t, 1, countRecords(t, s, "x"))
}

func TestStaging_NotVisibleBeforeMerge(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id, err := s.EnsureFile("a.c", 1)
	require.NoError(t, err)

	require.NoError(t, s.BeginStaging())
	require.NoError(t, s.StageRecord(id, 1, 1, "x", 'v', "", 4))
	assert.Equal(t, 0, countRecords(t, s, ""), "staged records must not be published yet")

	require.NoError(t, s.MergeStaging())
	require.NoError(t, s.EndStaging())
	assert.Equal(t, 1, countRecords(t, s, ""))
}

func TestStaging_MergeIgnoresExistingRecords(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id, err := s.EnsureFile("a.c", 1)
	require.NoError(t, err)

	stageAndMerge(t, s, id, "x")
	stageAndMerge(t, s, id, "x")
	assert.Equal(t, 1, countRecords(t, s, "x"), "re-indexing an unchanged file is idempotent")
}

func TestStaging_SeparateRunsStartEmpty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id, err := s.EnsureFile("a.c", 1)
	require.NoError(t, err)

	stageAndMerge(t, s, id, "x")
	stageAndMerge(t, s, id, "y")
	assert.Equal(t, 2, countRecords(t, s, ""))
}

func TestStageRecord_WithoutStagingFails(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	err := s.StageRecord(1, 1, 1, "x", 'v', "", 4)
	require.Error(t, err)
}

func TestEndStaging_WithoutBeginIsNoop(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.EndStaging())
}
