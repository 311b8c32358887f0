package manifest

import (
	"fmt"
	"strings"
)

// NodeNotFoundError reports a reference to a node that is not in the
// current project graph, together with whatever still depends on it.
// Callers decide how severe the two cases are.
type NodeNotFoundError struct {
	UniqueID   string
	Name       string
	Dependents []string
}

func (e *NodeNotFoundError) Error() string {
	msg := fmt.Sprintf("could not find node '%s' (%s) in the project", e.Name, e.UniqueID)
	if len(e.Dependents) > 0 {
		msg += fmt.Sprintf("; it is depended on by %s", strings.Join(e.Dependents, ", "))
	}
	return msg
}

// HasDependents reports whether any resource still depends on the missing node.
func (e *NodeNotFoundError) HasDependents() bool {
	return len(e.Dependents) > 0
}

// CycleError reports a dependency cycle. Path starts and ends with the
// same unique id.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("found a cycle: %s", strings.Join(e.Path, " --> "))
}
