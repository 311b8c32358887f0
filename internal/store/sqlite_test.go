package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/transform-cli/internal/config"
	"github.com/sells-group/transform-cli/internal/model"
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

func TestSQLite_CreateAndCompleteRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	args := model.RunArgs{Command: "build", Select: []string{"orders"}, Threads: 4}
	run, err := st.CreateRun(ctx, args)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "build", got.Command)
	assert.Equal(t, args, got.Args)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.CompletedAt)

	result := &model.RunResult{
		RunID: run.ID,
		Args:  args,
		Results: []model.NodeResult{
			{UniqueID: "model.test.orders", Status: model.NodeStatusError, Message: "boom"},
		},
	}
	require.NoError(t, st.CompleteRun(ctx, run.ID, result))

	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	require.NotNil(t, got.Result)
	require.Len(t, got.Result.Results, 1)
	assert.Equal(t, "boom", got.Result.Results[0].Message)
	assert.NotNil(t, got.CompletedAt)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestSQLite_CompleteRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.CompleteRun(context.Background(), "nope", &model.RunResult{})
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestSQLite_CompleteRun_RecordsArgs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.RunArgs{Command: "retry"})
	require.NoError(t, err)

	merged := model.RunArgs{Command: "retry", FailFast: true, Threads: 2}
	require.NoError(t, st.CompleteRun(ctx, run.ID, &model.RunResult{RunID: run.ID, Args: merged}))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, merged, got.Args)
	assert.Equal(t, model.RunStatusSuccess, got.Status)
}

func TestSQLite_UpdateRunStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.RunArgs{Command: "build"})
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Nil(t, got.Result)
	assert.NotNil(t, got.CompletedAt)

	assert.True(t, errors.Is(st.UpdateRunStatus(ctx, "nope", model.RunStatusFailed), ErrRunNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	b, err := st.CreateRun(ctx, model.RunArgs{Command: "build"})
	require.NoError(t, err)
	r, err := st.CreateRun(ctx, model.RunArgs{Command: "retry"})
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, b.ID, &model.RunResult{}))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	retries, err := st.ListRuns(ctx, RunFilter{Command: "retry"})
	require.NoError(t, err)
	require.Len(t, retries, 1)
	assert.Equal(t, r.ID, retries[0].ID)

	succeeded, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusSuccess})
	require.NoError(t, err)
	require.Len(t, succeeded, 1)
	assert.Equal(t, b.ID, succeeded[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_ListRuns_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	runs, err := st.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "runs.db")})
	require.NoError(t, err)
	_, err = s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err, "Open migrates")
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported driver "mysql"`)
}
