package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jsxforge/internal/pipeline"
)

func finishedReport(outcome pipeline.RunOutcome, start time.Time) *pipeline.RunReport {
	rep := pipeline.NewRunReport()
	rep.Start = start
	rep.End = start.Add(3 * time.Second)
	rep.SourceFiles = 10
	rep.EmittedFiles = 9
	rep.Outcome = outcome
	return rep
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	id, err := store.Append(ctx, finishedReport(pipeline.OutcomeSuccess, time.Now()))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, pipeline.OutcomeSuccess, rec.Outcome)
	require.NotNil(t, rec.Report)
	assert.Equal(t, 10, rec.Report.SourceFiles)
	assert.Equal(t, 9, rec.Report.EmittedFiles)
}

func TestStoreRecentOrdering(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	outcomes := []pipeline.RunOutcome{pipeline.OutcomeSuccess, pipeline.OutcomeWarning, pipeline.OutcomeFailed}
	for i, outcome := range outcomes {
		_, err := store.Append(ctx, finishedReport(outcome, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, pipeline.OutcomeFailed, recent[0].Outcome)
	assert.Equal(t, pipeline.OutcomeWarning, recent[1].Outcome)

	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStoreGetMissing(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	ctx := context.Background()
	id, err := store.Append(ctx, finishedReport(pipeline.OutcomeSuccess, time.Now()))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
}
