package model

import "time"

// NodeResult is the outcome of executing a single node.
type NodeResult struct {
	UniqueID      string       `json:"unique_id"`
	Name          string       `json:"name"`
	ResourceType  ResourceType `json:"resource_type"`
	Status        NodeStatus   `json:"status"`
	Message       string       `json:"message,omitempty"`
	Failures      int64        `json:"failures,omitempty"`
	ExecutionTime float64      `json:"execution_time"`
}

// RunArgs are the flags a build was invoked with. Retry inherits them.
type RunArgs struct {
	Command   string   `json:"command"`
	Select    []string `json:"select,omitempty"`
	FailFast  bool     `json:"fail_fast"`
	WarnError bool     `json:"warn_error"`
	Threads   int      `json:"threads"`
}

// RunResult is the outcome of a build or retry invocation.
type RunResult struct {
	RunID       string       `json:"run_id"`
	Args        RunArgs      `json:"args"`
	StartedAt   time.Time    `json:"started_at"`
	ElapsedTime float64      `json:"elapsed_time"`
	Results     []NodeResult `json:"results"`
}

// Status derives the overall status from the node results.
func (r *RunResult) Status() RunStatus {
	for _, nr := range r.Results {
		if nr.Status.Failed() || nr.Status == NodeStatusSkipped {
			return RunStatusFailed
		}
	}
	return RunStatusSuccess
}

// Counts tallies node results by status.
func (r *RunResult) Counts() map[NodeStatus]int {
	counts := make(map[NodeStatus]int, len(r.Results))
	for _, nr := range r.Results {
		counts[nr.Status]++
	}
	return counts
}

// Run is a persisted build or retry invocation in the run history.
type Run struct {
	ID          string     `json:"id"`
	Command     string     `json:"command"`
	Status      RunStatus  `json:"status"`
	Args        RunArgs    `json:"args"`
	Result      *RunResult `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
