// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibfetch/internal/batch"
	"github.com/pdiddy/bibfetch/internal/input"
	"github.com/pdiddy/bibfetch/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResults() []batch.RecordResult {
	return []batch.RecordResult{
		{Index: 0, Record: types.Record{Author: "Richard Feynman", Title: "Room at the bottom"},
			DOI: "10.1201/9780429500459-7", Path: "out/Richard Feynman_Room at the bottom.bib", Outcome: batch.OutcomeSaved},
		{Index: 1, Record: types.Record{Author: "Nobody", Title: "Missing, with comma"},
			Outcome: batch.OutcomeUnresolved, Err: errors.New("crossref: no work found")},
		{Index: 2, Record: types.Record{Author: "Richard Feynman", Title: "Cargo cult science"},
			DOI: "10.1000/cargo", Outcome: batch.OutcomeSaveFailed, Err: errors.New("connection reset")},
	}
}

func recordRun(t *testing.T, store *Store, results []batch.RecordResult) *RunRecorder {
	t.Helper()
	ctx := context.Background()
	rec, err := store.BeginRun(ctx, "csv:records.csv", "out")
	require.NoError(t, err)

	var result batch.Result
	for _, res := range results {
		require.NoError(t, rec.Record(ctx, res))
		if res.Outcome == batch.OutcomeSaved {
			result.Downloaded++
		} else {
			result.Failed++
		}
	}
	require.NoError(t, rec.Finish(ctx, result))
	return rec
}

func TestOpenCreatesSchema(t *testing.T) {
	store := testStore(t)

	var n int
	err := store.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN ('runs', 'outcomes')`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOpenIsReentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	first, err := Open(path)
	require.NoError(t, err)
	recordRun(t, first, sampleResults())
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	runs, err := second.Runs(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunsNewestFirst(t *testing.T) {
	store := testStore(t)
	first := recordRun(t, store, sampleResults())
	second := recordRun(t, store, sampleResults()[:1])

	runs, err := store.Runs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	assert.Equal(t, 1, runs[0].Downloaded)
	assert.Equal(t, 0, runs[0].Failed)
	assert.Equal(t, 1, runs[1].Downloaded)
	assert.Equal(t, 2, runs[1].Failed)
	assert.Equal(t, "csv:records.csv", runs[1].Input)
	assert.Equal(t, "out", runs[1].OutputDir)
	assert.False(t, runs[1].StartedAt.IsZero())
	assert.False(t, runs[1].FinishedAt.IsZero())

	limited, err := store.Runs(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestUnfinishedRun(t *testing.T) {
	store := testStore(t)
	_, err := store.BeginRun(context.Background(), "yaml:x.yaml", "out")
	require.NoError(t, err)

	runs, err := store.Runs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].FinishedAt.IsZero())
}

func TestFailures(t *testing.T) {
	store := testStore(t)
	rec := recordRun(t, store, sampleResults())

	latest, err := store.LatestRunID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rec.ID, latest)

	failures, err := store.Failures(context.Background(), latest)
	require.NoError(t, err)
	require.Len(t, failures, 2)

	assert.Equal(t, "Nobody", failures[0].Author)
	assert.Equal(t, "unresolved", failures[0].Outcome)
	assert.Equal(t, "crossref: no work found", failures[0].Error)
	assert.Empty(t, failures[0].DOI)

	assert.Equal(t, "Cargo cult science", failures[1].Title)
	assert.Equal(t, "save_failed", failures[1].Outcome)
	assert.Equal(t, "10.1000/cargo", failures[1].DOI)
}

func TestLatestRunIDEmpty(t *testing.T) {
	store := testStore(t)
	_, err := store.LatestRunID(context.Background())
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	store := testStore(t)
	rec := recordRun(t, store, sampleResults())

	failures, err := store.Failures(context.Background(), rec.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, failures))

	records, err := input.NewCSVReader("failures.csv", &buf).Parse()
	require.NoError(t, err)
	assert.Equal(t, []types.Record{
		{Author: "Nobody", Title: "Missing, with comma"},
		{Author: "Richard Feynman", Title: "Cargo cult science"},
	}, records)
}

func TestRunRecorderSatisfiesBatchRecorder(t *testing.T) {
	var _ batch.Recorder = (*RunRecorder)(nil)
}
