package model

// NodeStatus is the outcome recorded for a node at the end of a build.
// Models report success/error/skipped; tests report pass/warn/fail.
type NodeStatus string

const (
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusError   NodeStatus = "error"
	NodeStatusSkipped NodeStatus = "skipped"
	NodeStatusPass    NodeStatus = "pass"
	NodeStatusWarn    NodeStatus = "warn"
	NodeStatusFail    NodeStatus = "fail"
)

// Retryable reports whether a node with this status is picked up by retry.
func (s NodeStatus) Retryable() bool {
	switch s {
	case NodeStatusError, NodeStatusSkipped, NodeStatusWarn, NodeStatusFail:
		return true
	default:
		return false
	}
}

// Failed reports whether the status counts as a failure of the build.
// Failed nodes cause their dependents to be skipped.
func (s NodeStatus) Failed() bool {
	return s == NodeStatusError || s == NodeStatusFail
}

// RunStatus summarizes a whole build or retry invocation.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)
