//go:build !integration

package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/transform-cli/internal/model"
	"github.com/sells-group/transform-cli/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Command:   "build",
			Status:    model.RunStatusFailed,
			CreatedAt: now,
			Result: &model.RunResult{
				ElapsedTime: 12.34,
				Results:     make([]model.NodeResult, 6),
			},
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Command:   "retry",
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "COMMAND")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "12.3s")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
}

func TestFormatResults(t *testing.T) {
	result := &model.RunResult{Results: []model.NodeResult{
		{UniqueID: "model.test.a", Status: model.NodeStatusSuccess, ExecutionTime: 0.5},
		{UniqueID: "test.test.not_null_a_id", Status: model.NodeStatusPass},
		{UniqueID: "model.test.b", Status: model.NodeStatusError, Message: "near \"selec\": syntax error"},
		{UniqueID: "model.test.c", Status: model.NodeStatusSkipped, Message: "skipped due to failure of b"},
		{UniqueID: "test.test.accepted_values_a_x", Status: model.NodeStatusWarn},
	}}

	var buf bytes.Buffer
	formatResults(&buf, result)

	output := buf.String()
	assert.Contains(t, output, "model.test.a")
	assert.Contains(t, output, "syntax error")
	assert.Contains(t, output, "Done. PASS=2 WARN=1 ERROR=1 SKIP=1 TOTAL=5")
}

func TestRunsCommands(t *testing.T) {
	dir := t.TempDir()
	useProject(t, dir)

	out, err := execute(t, runsListCmd)
	require.NoError(t, err)
	assert.Empty(t, out)

	st, err := store.Open(context.Background(), cfg.Store)
	require.NoError(t, err)
	run, err := st.CreateRun(context.Background(), model.RunArgs{Command: "build"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err = execute(t, runsListCmd)
	require.NoError(t, err)
	assert.Contains(t, out, truncateID(run.ID))

	out, err = execute(t, runsShowCmd, run.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "`+run.ID+`"`)

	_, err = execute(t, runsShowCmd, "missing")
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
}
