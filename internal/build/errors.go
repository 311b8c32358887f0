package build

import (
	"fmt"

	"github.com/sells-group/transform-cli/internal/model"
)

// FailFastError stops a build at the first failing node.
type FailFastError struct {
	UniqueID string
	Name     string
	Status   model.NodeStatus
	Message  string
}

func (e *FailFastError) Error() string {
	msg := fmt.Sprintf("failing early due to %s of node '%s'", e.Status, e.Name)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}
