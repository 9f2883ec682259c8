package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)

	run, err := store.CreateRun("index.yaml", "out.csv")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "index.yaml", got.IndexPath)
	assert.Equal(t, "out.csv", got.Output)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, store.CompleteRun(run.ID, RunStatusCompleted, 42, ""))

	got, err = store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, 42, got.RowCount)
	require.NotNil(t, got.CompletedAt)
	assert.False(t, got.CompletedAt.Before(got.StartedAt))
}

func TestRunNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	err = store.CompleteRun("nope", RunStatusFailed, 0, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)

	first, err := store.CreateRun("a.yaml", "")
	require.NoError(t, err)
	second, err := store.CreateRun("b.yaml", "")
	require.NoError(t, err)

	// Equal timestamps are possible on a fast clock; rewrite them with
	// explicit values a minute apart so the ordering is deterministic.
	now := time.Now().UTC()
	for _, u := range []struct {
		id string
		at time.Time
	}{{first.ID, now.Add(-time.Minute)}, {second.ID, now}} {
		_, err = store.db.Exec(`UPDATE runs SET started_at = ? WHERE id = ?`, u.at, u.id)
		require.NoError(t, err)
	}

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	runs, err = store.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second.ID, runs[0].ID)
}

func TestEntryResultsRoundTrip(t *testing.T) {
	store := newTestStore(t)

	run, err := store.CreateRun("index.yaml", "")
	require.NoError(t, err)

	results := []EntryResult{
		{Name: "generation", Path: "data/gen.csv", RowCount: 5, DurationMS: 12},
		{Name: "capacity", Path: "data/cap.csv", Error: "missing column: region"},
	}
	require.NoError(t, store.SaveEntryResults(run.ID, results))

	got, err := store.GetEntryResults(run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byPath := map[string]EntryResult{}
	for _, r := range got {
		assert.Equal(t, run.ID, r.RunID)
		assert.NotEmpty(t, r.ID)
		byPath[r.Path] = r
	}
	assert.Equal(t, 5, byPath["data/gen.csv"].RowCount)
	assert.Equal(t, int64(12), byPath["data/gen.csv"].DurationMS)
	assert.Equal(t, "missing column: region", byPath["data/cap.csv"].Error)
}

func TestWarningsRoundTrip(t *testing.T) {
	store := newTestStore(t)

	run, err := store.CreateRun("index.yaml", "")
	require.NoError(t, err)

	msgs := []string{"duplicate key dropped", "entry produced no rows"}
	require.NoError(t, store.SaveWarnings(run.ID, msgs))

	got, err := store.GetWarnings(run.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, msgs, got)

	empty, err := store.GetWarnings("other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStoreNotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)

	_, err := store.CreateRun("x", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not opened")

	require.Error(t, store.Migrate())
	assert.NoError(t, store.Close())
}
