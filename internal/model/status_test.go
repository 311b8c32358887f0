package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeStatus_Retryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status NodeStatus
		want   bool
	}{
		{NodeStatusSuccess, false},
		{NodeStatusPass, false},
		{NodeStatusError, true},
		{NodeStatusSkipped, true},
		{NodeStatusWarn, true},
		{NodeStatusFail, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.status.Retryable())
		})
	}
}

func TestNodeStatus_Failed(t *testing.T) {
	t.Parallel()

	assert.True(t, NodeStatusError.Failed())
	assert.True(t, NodeStatusFail.Failed())
	assert.False(t, NodeStatusWarn.Failed())
	assert.False(t, NodeStatusSkipped.Failed())
	assert.False(t, NodeStatusSuccess.Failed())
}

func TestRunResult_Status(t *testing.T) {
	t.Parallel()

	t.Run("empty is success", func(t *testing.T) {
		t.Parallel()
		r := &RunResult{}
		assert.Equal(t, RunStatusSuccess, r.Status())
	})

	t.Run("warnings still succeed", func(t *testing.T) {
		t.Parallel()
		r := &RunResult{Results: []NodeResult{
			{UniqueID: "model.p.a", Status: NodeStatusSuccess},
			{UniqueID: "test.p.t", Status: NodeStatusWarn},
		}}
		assert.Equal(t, RunStatusSuccess, r.Status())
	})

	t.Run("skips fail the run", func(t *testing.T) {
		t.Parallel()
		r := &RunResult{Results: []NodeResult{
			{UniqueID: "model.p.a", Status: NodeStatusSkipped},
		}}
		assert.Equal(t, RunStatusFailed, r.Status())
	})

	t.Run("errors fail the run", func(t *testing.T) {
		t.Parallel()
		r := &RunResult{Results: []NodeResult{
			{UniqueID: "model.p.a", Status: NodeStatusError},
		}}
		assert.Equal(t, RunStatusFailed, r.Status())
	})
}

func TestRunResult_Counts(t *testing.T) {
	t.Parallel()

	r := &RunResult{Results: []NodeResult{
		{Status: NodeStatusSuccess},
		{Status: NodeStatusSuccess},
		{Status: NodeStatusError},
	}}
	counts := r.Counts()
	assert.Equal(t, 2, counts[NodeStatusSuccess])
	assert.Equal(t, 1, counts[NodeStatusError])
	assert.Equal(t, 0, counts[NodeStatusSkipped])
}
