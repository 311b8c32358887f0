package retry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/transform-cli/internal/build"
	"github.com/sells-group/transform-cli/internal/manifest"
	"github.com/sells-group/transform-cli/internal/model"
	"github.com/sells-group/transform-cli/internal/projecttest"
	"github.com/sells-group/transform-cli/internal/runstate"
	"github.com/sells-group/transform-cli/internal/warehouse"
)

func modelID(name string) string {
	return model.NodeUniqueID(model.ResourceTypeModel, projecttest.Name, name)
}

func abcGraph(t *testing.T) *manifest.Manifest {
	t.Helper()
	m := manifest.New(projecttest.Name, "main")
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, m.AddNode(&model.Node{UniqueID: modelID(name), Name: name, ResourceType: model.ResourceTypeModel}))
	}
	return m
}

func record(results ...model.NodeResult) *runstate.Record {
	return &runstate.Record{Args: model.RunArgs{Command: "build", Threads: 1}, Results: results}
}

func TestSelect_RetryableOnly(t *testing.T) {
	rec := record(
		model.NodeResult{UniqueID: modelID("a"), Status: model.NodeStatusError},
		model.NodeResult{UniqueID: modelID("b"), Status: model.NodeStatusSuccess},
		model.NodeResult{UniqueID: modelID("c"), Status: model.NodeStatusSkipped},
	)

	ids, err := Select(rec, abcGraph(t))
	require.NoError(t, err)
	assert.Equal(t, []string{modelID("a"), modelID("c")}, ids)
}

func TestSelect_TestStatuses(t *testing.T) {
	m := abcGraph(t)
	rec := record(
		model.NodeResult{UniqueID: modelID("a"), Status: model.NodeStatusPass},
		model.NodeResult{UniqueID: modelID("b"), Status: model.NodeStatusWarn},
		model.NodeResult{UniqueID: modelID("c"), Status: model.NodeStatusFail},
	)

	ids, err := Select(rec, m)
	require.NoError(t, err)
	assert.Equal(t, []string{modelID("b"), modelID("c")}, ids)
}

func TestSelect_NothingToRetry(t *testing.T) {
	rec := record(
		model.NodeResult{UniqueID: modelID("a"), Status: model.NodeStatusSuccess},
		model.NodeResult{UniqueID: modelID("b"), Status: model.NodeStatusPass},
	)

	ids, err := Select(rec, abcGraph(t))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSelect_RemovedNode(t *testing.T) {
	rec := record(model.NodeResult{UniqueID: modelID("gone"), Status: model.NodeStatusError})

	_, err := Select(rec, abcGraph(t))
	var nf *manifest.NodeNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "gone", nf.Name)
	assert.Contains(t, err.Error(), "could not find node 'gone'")
}

func TestSelect_RemovedSucceededNodeIgnored(t *testing.T) {
	rec := record(
		model.NodeResult{UniqueID: modelID("gone"), Status: model.NodeStatusSuccess},
		model.NodeResult{UniqueID: modelID("a"), Status: model.NodeStatusError},
	)

	ids, err := Select(rec, abcGraph(t))
	require.NoError(t, err)
	assert.Equal(t, []string{modelID("a")}, ids)
}

type fakeExecutor struct {
	calls int
	ids   []string
	opts  build.Options
}

func (f *fakeExecutor) Execute(_ context.Context, ids []string, opts build.Options) ([]model.NodeResult, error) {
	f.calls++
	f.ids = ids
	f.opts = opts
	out := make([]model.NodeResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.NodeResult{UniqueID: id, Status: model.NodeStatusSuccess})
	}
	return out, nil
}

func TestService_NoPreviousRun(t *testing.T) {
	target := filepath.Join(t.TempDir(), "target")
	svc := NewService(abcGraph(t), &fakeExecutor{}, target)

	_, err := svc.Run(context.Background(), Options{})
	var nerr *runstate.NoPreviousRunError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, "could not find previous run in '"+target+"' target directory", err.Error())

	_, err = svc.Run(context.Background(), Options{StateDir: "walmart"})
	require.True(t, errors.As(err, &nerr))
	assert.Contains(t, err.Error(), "'walmart'")
}

func TestService_EmptyRetry(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, runstate.Save(target, record(
		model.NodeResult{UniqueID: modelID("a"), Status: model.NodeStatusSuccess},
	)))
	ex := &fakeExecutor{}

	res, err := NewService(abcGraph(t), ex, target).Run(context.Background(), Options{RunID: "run-42"})
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Equal(t, "run-42", res.RunID)
	assert.Zero(t, ex.calls)

	rec, err := runstate.Load(target)
	require.NoError(t, err)
	assert.Equal(t, Command, rec.Metadata.Command)
	assert.Equal(t, "run-42", rec.Metadata.RunID)
	assert.Empty(t, rec.Results)
}

func TestService_InheritsAndOverridesArgs(t *testing.T) {
	target := t.TempDir()
	prev := record(model.NodeResult{UniqueID: modelID("b"), Status: model.NodeStatusError})
	prev.Args = model.RunArgs{Command: "build", Select: []string{"b"}, FailFast: true, WarnError: true, Threads: 3}
	require.NoError(t, runstate.Save(target, prev))

	ex := &fakeExecutor{}
	svc := NewService(abcGraph(t), ex, target)
	_, err := svc.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, build.Options{Threads: 3, FailFast: true, WarnError: true}, ex.opts)
	assert.Equal(t, []string{modelID("b")}, ex.ids)

	// The record now holds the retry's success; restore a failure to retry again.
	require.NoError(t, runstate.Save(target, prev))
	off, threads := false, 8
	_, err = svc.Run(context.Background(), Options{WarnError: &off, Threads: &threads})
	require.NoError(t, err)
	assert.Equal(t, build.Options{Threads: 8, FailFast: true, WarnError: false}, ex.opts)
}

func TestService_StateDirOverride(t *testing.T) {
	target := t.TempDir()
	state := t.TempDir()
	require.NoError(t, runstate.Save(state, record(
		model.NodeResult{UniqueID: modelID("c"), Status: model.NodeStatusSkipped},
	)))
	ex := &fakeExecutor{}

	_, err := NewService(abcGraph(t), ex, target).Run(context.Background(), Options{StateDir: state})
	require.NoError(t, err)
	assert.Equal(t, []string{modelID("c")}, ex.ids)

	rec, err := runstate.Load(target)
	require.NoError(t, err, "the new record goes to the target dir")
	assert.Len(t, rec.Results, 1)
}

func TestMergeArgs(t *testing.T) {
	t.Parallel()
	prev := model.RunArgs{Command: "build", Select: []string{"x"}, FailFast: false, WarnError: true, Threads: 2}
	on := true

	got := MergeArgs(prev, Options{FailFast: &on})
	assert.Equal(t, model.RunArgs{Command: Command, Select: []string{"x"}, FailFast: true, WarnError: true, Threads: 2}, got)
}

// End to end against SQLite, following a broken model through repeated
// retries until the project is fixed.
func TestService_RetryCycle(t *testing.T) {
	ctx := context.Background()
	dir := projecttest.Write(t, projecttest.RetryProject())
	target := filepath.Join(dir, "target")

	wh, err := warehouse.NewSQLite(filepath.Join(t.TempDir(), "warehouse.db"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { wh.Close() }) //nolint:errcheck
	runner := build.NewWarehouseRunner(wh)

	load := func() *manifest.Manifest {
		m, err := manifest.Load(dir)
		require.NoError(t, err)
		return m
	}
	statuses := func(results []model.NodeResult) map[string]model.NodeStatus {
		out := make(map[string]model.NodeStatus, len(results))
		for _, r := range results {
			out[r.Name] = r.Status
		}
		return out
	}

	// Initial build.
	m := load()
	results, err := build.NewExecutor(m, runner).Execute(ctx, build.Select(m, nil), build.Options{Threads: 4})
	require.NoError(t, err)
	require.NoError(t, runstate.Save(target, runstate.FromResult(&model.RunResult{
		RunID:   "first",
		Args:    model.RunArgs{Command: "build", Threads: 4},
		Results: results,
	})))

	// Retry without a fix: the broken model errors again, the succeeded
	// model is not re-run.
	m = load()
	res, err := NewService(m, build.NewExecutor(m, runner), target).Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]model.NodeStatus{
		"sample_model":                     model.NodeStatusError,
		"union_model":                      model.NodeStatusSkipped,
		"accepted_values_sample_model_foo": model.NodeStatusSkipped,
		"accepted_values_second_model_bar": model.NodeStatusWarn,
		"accepted_values_union_model_sum3": model.NodeStatusSkipped,
	}, statuses(res.Results))

	// Fix the model and retry.
	projecttest.WriteFiles(t, dir, map[string]string{"models/sample_model.sql": projecttest.FixedSampleModel})
	m = load()
	res, err = NewService(m, build.NewExecutor(m, runner), target).Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]model.NodeStatus{
		"sample_model":                     model.NodeStatusSuccess,
		"union_model":                      model.NodeStatusSuccess,
		"accepted_values_sample_model_foo": model.NodeStatusWarn,
		"accepted_values_second_model_bar": model.NodeStatusWarn,
		"accepted_values_union_model_sum3": model.NodeStatusPass,
	}, statuses(res.Results))

	// Warnings remain retryable; once they are gone nothing is left.
	noWarn := false
	res, err = NewService(m, build.NewExecutor(m, runner), target).Run(ctx, Options{WarnError: &noWarn})
	require.NoError(t, err)
	assert.Len(t, res.Results, 2)
}

func TestService_RemovedFile(t *testing.T) {
	ctx := context.Background()
	dir := projecttest.Write(t, projecttest.RetryProject())
	target := filepath.Join(dir, "target")
	require.NoError(t, runstate.Save(target, record(
		model.NodeResult{UniqueID: modelID("sample_model"), Status: model.NodeStatusError},
		model.NodeResult{UniqueID: modelID("union_model"), Status: model.NodeStatusSkipped},
	)))

	projecttest.Remove(t, dir, "models/sample_model.sql")
	m, err := manifest.Load(dir)
	require.NoError(t, err)

	_, err = NewService(m, &fakeExecutor{}, target).Run(ctx, Options{})
	var nf *manifest.NodeNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "sample_model", nf.Name)
	assert.True(t, nf.HasDependents())
	assert.Contains(t, nf.Dependents, modelID("union_model"))
}

func TestService_RemovedLeafFile(t *testing.T) {
	ctx := context.Background()
	files := projecttest.RetryProject()
	files["models/third_model.sql"] = projecttest.BrokenSampleModel
	dir := projecttest.Write(t, files)
	target := filepath.Join(dir, "target")
	require.NoError(t, runstate.Save(target, record(
		model.NodeResult{UniqueID: modelID("third_model"), Status: model.NodeStatusError},
	)))

	projecttest.Remove(t, dir, "models/third_model.sql")
	m, err := manifest.Load(dir)
	require.NoError(t, err)

	_, err = NewService(m, &fakeExecutor{}, target).Run(ctx, Options{})
	var nf *manifest.NodeNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, modelID("third_model"), nf.UniqueID)
	assert.False(t, nf.HasDependents())
}

func TestService_FailFastInherited(t *testing.T) {
	ctx := context.Background()
	dir := projecttest.Write(t, projecttest.RetryProject())
	target := filepath.Join(dir, "target")

	wh, err := warehouse.NewSQLite(filepath.Join(t.TempDir(), "warehouse.db"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { wh.Close() }) //nolint:errcheck

	m, err := manifest.Load(dir)
	require.NoError(t, err)
	ex := build.NewExecutor(m, build.NewWarehouseRunner(wh))

	opts := build.Options{Threads: 1, FailFast: true, WarnError: true}
	results, err := ex.Execute(ctx, build.Select(m, nil), opts)
	var ff *build.FailFastError
	require.True(t, errors.As(err, &ff))
	assert.Equal(t, "sample_model", ff.Name)
	require.NoError(t, runstate.Save(target, runstate.FromResult(&model.RunResult{
		Args:    model.RunArgs{Command: "build", Threads: 1, FailFast: true, WarnError: true},
		Results: results,
	})))

	res, err := NewService(m, ex, target).Run(ctx, Options{})
	require.True(t, errors.As(err, &ff))
	require.Len(t, res.Results, 1)
	assert.Equal(t, "sample_model", res.Results[0].Name)
	assert.Equal(t, model.NodeStatusError, res.Results[0].Status)

	rec, err := runstate.Load(target)
	require.NoError(t, err)
	assert.Len(t, rec.Results, 1, "fail-fast retries still persist their record")
}
