// Package retry re-runs the nodes that did not succeed in the previous
// build or retry.
package retry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/transform-cli/internal/build"
	"github.com/sells-group/transform-cli/internal/manifest"
	"github.com/sells-group/transform-cli/internal/model"
	"github.com/sells-group/transform-cli/internal/runstate"
)

// Command is recorded as the invoking command of retry runs.
const Command = "retry"

// Graph is the part of the current project graph retry needs.
type Graph interface {
	Node(uniqueID string) (*model.Node, bool)
	MissingNode(uniqueID string) *manifest.NodeNotFoundError
}

// Executor runs a selection of nodes.
type Executor interface {
	Execute(ctx context.Context, ids []string, opts build.Options) ([]model.NodeResult, error)
}

// Select returns the ids from rec whose status is retryable, in record
// order. Each must still exist in g.
func Select(rec *runstate.Record, g Graph) ([]string, error) {
	ids := make([]string, 0, len(rec.Results))
	seen := make(map[string]bool, len(rec.Results))
	for _, r := range rec.Results {
		if !r.Status.Retryable() || seen[r.UniqueID] {
			continue
		}
		if _, ok := g.Node(r.UniqueID); !ok {
			return nil, g.MissingNode(r.UniqueID)
		}
		seen[r.UniqueID] = true
		ids = append(ids, r.UniqueID)
	}
	return ids, nil
}

// Options control a retry. Nil overrides inherit the previous run's value.
type Options struct {
	// RunID names the new run. A random id is used when empty.
	RunID     string
	StateDir  string
	FailFast  *bool
	WarnError *bool
	Threads   *int
}

// Service ties a run record directory, a graph and an executor together.
type Service struct {
	graph     Graph
	executor  Executor
	targetDir string
}

// NewService returns a retry service. targetDir is where the new run record
// is written and where the previous one is read unless overridden.
func NewService(g Graph, ex Executor, targetDir string) *Service {
	return &Service{graph: g, executor: ex, targetDir: targetDir}
}

// Run loads the previous record, selects what to retry, runs it with the
// merged flags and persists the new record. The new record is saved even
// when execution reports an error such as fail-fast.
func (s *Service) Run(ctx context.Context, opts Options) (*model.RunResult, error) {
	stateDir := opts.StateDir
	if stateDir == "" {
		stateDir = s.targetDir
	}

	prev, err := runstate.Load(stateDir)
	if err != nil {
		return nil, err
	}

	ids, err := Select(prev, s.graph)
	if err != nil {
		return nil, err
	}

	args := MergeArgs(prev.Args, opts)
	log := zap.L().With(zap.String("state_dir", stateDir), zap.Int("selected", len(ids)))

	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	result := &model.RunResult{
		RunID:     runID,
		Args:      args,
		StartedAt: time.Now().UTC(),
		Results:   []model.NodeResult{},
	}

	var execErr error
	if len(ids) == 0 {
		log.Info("retry: nothing to retry")
	} else {
		log.Info("retry: running previous failures")
		results, err := s.executor.Execute(ctx, ids, build.Options{
			Threads:   args.Threads,
			FailFast:  args.FailFast,
			WarnError: args.WarnError,
		})
		if results == nil && err != nil {
			// Nothing ran; keep the previous record.
			return nil, err
		}
		result.Results = results
		execErr = err
	}
	result.ElapsedTime = time.Since(result.StartedAt).Seconds()

	if err := runstate.Save(s.targetDir, runstate.FromResult(result)); err != nil {
		return nil, err
	}
	return result, execErr
}

// MergeArgs applies explicit overrides to the previous invocation's args.
// The selection is carried over for the record; the retry itself runs only
// the selected failures.
func MergeArgs(prev model.RunArgs, opts Options) model.RunArgs {
	args := prev
	args.Command = Command
	if opts.FailFast != nil {
		args.FailFast = *opts.FailFast
	}
	if opts.WarnError != nil {
		args.WarnError = *opts.WarnError
	}
	if opts.Threads != nil {
		args.Threads = *opts.Threads
	}
	return args
}
