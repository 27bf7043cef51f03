package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/floodrisk/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleRun(name string) NewRun {
	cr := 0.0032
	return NewRun{
		Name:         name,
		WeightSource: model.WeightSourceAHP,
		Factors: []model.FactorWeight{
			{Name: "elevation", Kind: "elevation", Source: "dem.asc", Weight: 0.6483},
			{Name: "slope", Kind: "slope", Source: "slope.asc", Weight: 0.2297},
			{Name: "rainfall", Kind: "rainfall", Source: "rain.asc", Weight: 0.1220},
		},
		ConsistencyRatio: &cr,
	}
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, sampleRun("pune"))
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "pune", got.Name)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Equal(t, model.WeightSourceAHP, got.WeightSource)
	require.Len(t, got.Factors, 3)
	assert.Equal(t, "slope.asc", got.Factors[1].Source)
	require.NotNil(t, got.ConsistencyRatio)
	assert.InDelta(t, 0.0032, *got.ConsistencyRatio, 1e-12)
	assert.Nil(t, got.Result)
	assert.Empty(t, got.Error)
}

func TestSQLite_ManualWeightsHaveNoCR(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	in := sampleRun("manual")
	in.WeightSource = model.WeightSourceManual
	in.ConsistencyRatio = nil
	run, err := st.CreateRun(ctx, in)
	require.NoError(t, err)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ConsistencyRatio)
}

func TestSQLite_CompleteRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, sampleRun("pune"))
	require.NoError(t, err)

	err = st.CompleteRun(ctx, run.ID, &model.RunResult{
		Rows:       10,
		Cols:       20,
		Counts:     map[string]int{"low": 50, "moderate": 100, "high": 40, "no_data": 10},
		OutputPath: "risk.asc",
		DurationMS: 12,
	})
	require.NoError(t, err)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 100, got.Result.Counts["moderate"])
	assert.Equal(t, "risk.asc", got.Result.OutputPath)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, sampleRun("pune"))
	require.NoError(t, err)

	require.NoError(t, st.FailRun(ctx, run.ID, model.RunStatusRejected, "consistency ratio 0.31 exceeds 0.1"))
	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRejected, got.Status)
	assert.Contains(t, got.Error, "0.31")

	err = st.FailRun(ctx, run.ID, model.RunStatusComplete, "nope")
	assert.Error(t, err)
}

func TestSQLite_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = st.CompleteRun(ctx, "missing", &model.RunResult{})
	assert.True(t, errors.Is(err, ErrNotFound))

	err = st.FailRun(ctx, "missing", model.RunStatusFailed, "x")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, sampleRun("pune"))
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, sampleRun("pune"))
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, sampleRun("mumbai"))
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, a.ID, model.RunStatusFailed, "load failed"))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byName, err := st.ListRuns(ctx, RunFilter{Name: "pune"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, a.ID, failed[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	offset, err := st.ListRuns(ctx, RunFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, offset, 1)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}
