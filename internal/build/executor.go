// Package build runs selected models and tests against a warehouse in
// dependency order.
package build

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/transform-cli/internal/manifest"
	"github.com/sells-group/transform-cli/internal/model"
)

// Options are the per-invocation build flags.
type Options struct {
	Threads   int
	FailFast  bool
	WarnError bool
}

// Graph is the part of the manifest the executor schedules against.
type Graph interface {
	Node(uniqueID string) (*model.Node, bool)
	Nodes() []*model.Node
	DependentsOf(uniqueID string) []string
	MissingNode(uniqueID string) *manifest.NodeNotFoundError
}

// Runner executes a single node. Failures are reported through the
// returned status, never as a Go error.
type Runner interface {
	Run(ctx context.Context, n *model.Node, opts Options) model.NodeResult
}

// Executor schedules nodes over a Runner.
type Executor struct {
	graph  Graph
	runner Runner
}

// NewExecutor returns an executor over g.
func NewExecutor(g Graph, r Runner) *Executor {
	return &Executor{graph: g, runner: r}
}

// Execute runs ids and returns their results in graph order. Every id and
// every dependency of a selected node must exist in the graph. With
// FailFast set, no node is started after the first failure and a
// *FailFastError is returned alongside the results of the attempted nodes.
func (e *Executor) Execute(ctx context.Context, ids []string, opts Options) ([]model.NodeResult, error) {
	if opts.Threads <= 0 {
		opts.Threads = 1
	}

	selected, err := e.resolve(ids)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return []model.NodeResult{}, nil
	}

	order := make(map[string]int, len(selected))
	for i, n := range e.graph.Nodes() {
		order[n.UniqueID] = i
	}

	// pending counts unfinished parents inside the selection; parents outside
	// it are treated as already built.
	pending := make(map[string]int, len(selected))
	for id, n := range selected {
		for _, dep := range n.DependsOn {
			if _, ok := selected[dep]; ok {
				pending[id]++
			}
		}
	}

	var ready []string
	for id := range selected {
		if pending[id] == 0 {
			ready = append(ready, id)
		}
	}

	log := zap.L().With(zap.Int("nodes", len(selected)), zap.Int("threads", opts.Threads))
	log.Info("build: starting")

	done := make(chan model.NodeResult, len(selected))
	var g errgroup.Group
	g.SetLimit(opts.Threads)

	results := make(map[string]model.NodeResult, len(selected))
	inFlight := 0
	var failFast *FailFastError

	for {
		if failFast == nil && ctx.Err() == nil {
			sort.Slice(ready, func(i, j int) bool { return order[ready[i]] < order[ready[j]] })
			// Dispatch only into free slots so fail-fast can stop queued work.
			for len(ready) > 0 && inFlight < opts.Threads {
				n := selected[ready[0]]
				ready = ready[1:]
				inFlight++
				g.Go(func() error {
					done <- e.runNode(ctx, n, opts)
					return nil
				})
			}
		}
		if inFlight == 0 {
			break
		}

		r := <-done
		inFlight--
		results[r.UniqueID] = r

		if r.Status.Failed() {
			if opts.FailFast && failFast == nil {
				failFast = &FailFastError{UniqueID: r.UniqueID, Name: r.Name, Status: r.Status, Message: r.Message}
				log.Warn("build: fail-fast triggered", zap.String("node", r.UniqueID))
				continue
			}
			if failFast == nil {
				e.skipDependents(r.UniqueID, r.UniqueID, selected, results)
			}
			continue
		}

		for _, child := range e.graph.DependentsOf(r.UniqueID) {
			if _, ok := selected[child]; !ok {
				continue
			}
			if _, finished := results[child]; finished {
				continue
			}
			pending[child]--
			if pending[child] == 0 {
				ready = append(ready, child)
			}
		}
	}
	_ = g.Wait()

	out := make([]model.NodeResult, 0, len(results))
	for _, r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i].UniqueID] < order[out[j].UniqueID] })

	log.Info("build: finished", zap.Int("results", len(out)))

	if failFast != nil {
		return out, failFast
	}
	if err := ctx.Err(); err != nil {
		return out, eris.Wrap(err, "build: interrupted")
	}
	if len(out) < len(selected) {
		var stuck []string
		for id := range selected {
			if _, ok := results[id]; !ok {
				stuck = append(stuck, id)
			}
		}
		sort.Slice(stuck, func(i, j int) bool { return order[stuck[i]] < order[stuck[j]] })
		log.Error("build: unscheduled nodes", zap.Strings("nodes", stuck))
		return out, eris.Errorf("build: %d node(s) never became ready, check for a dependency cycle: %s",
			len(stuck), strings.Join(stuck, ", "))
	}
	return out, nil
}

// resolve looks up every id and checks each selected node's parents exist.
func (e *Executor) resolve(ids []string) (map[string]*model.Node, error) {
	selected := make(map[string]*model.Node, len(ids))
	for _, id := range ids {
		n, ok := e.graph.Node(id)
		if !ok {
			return nil, e.graph.MissingNode(id)
		}
		selected[id] = n
	}
	for _, id := range ids {
		for _, dep := range selected[id].DependsOn {
			if _, ok := e.graph.Node(dep); !ok {
				return nil, e.graph.MissingNode(dep)
			}
		}
	}
	return selected, nil
}

func (e *Executor) runNode(ctx context.Context, n *model.Node, opts Options) model.NodeResult {
	start := time.Now()
	r := e.runner.Run(ctx, n, opts)
	r.UniqueID = n.UniqueID
	r.Name = n.Name
	r.ResourceType = n.ResourceType
	r.ExecutionTime = time.Since(start).Seconds()

	fields := []zap.Field{zap.String("node", n.UniqueID), zap.String("status", string(r.Status))}
	if r.Status.Failed() {
		zap.L().Error("build: node failed", append(fields, zap.String("message", r.Message))...)
	} else {
		zap.L().Info("build: node finished", fields...)
	}
	return r
}

// skipDependents marks every selected, not yet finished descendant of
// parent as skipped.
func (e *Executor) skipDependents(parent, cause string, selected map[string]*model.Node, results map[string]model.NodeResult) {
	for _, child := range e.graph.DependentsOf(parent) {
		n, ok := selected[child]
		if !ok {
			continue
		}
		if _, finished := results[child]; finished {
			continue
		}
		results[child] = model.NodeResult{
			UniqueID:     child,
			Name:         n.Name,
			ResourceType: n.ResourceType,
			Status:       model.NodeStatusSkipped,
			Message:      fmt.Sprintf("skipped due to failure of %s", cause),
		}
		zap.L().Warn("build: skipping dependent", zap.String("node", child), zap.String("cause", cause))
		e.skipDependents(child, cause, selected, results)
	}
}
