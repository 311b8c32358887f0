package build

import (
	"github.com/sells-group/transform-cli/internal/model"
)

// Selectable is the graph view Select needs.
type Selectable interface {
	Node(uniqueID string) (*model.Node, bool)
	Nodes() []*model.Node
	FindModel(name string) (*model.Node, bool)
}

// Select expands selectors (node names or unique ids) into unique ids in
// graph order. Tests whose parent model is selected come along. No
// selectors selects every node. Unknown selectors match nothing.
func Select(g Selectable, selectors []string) []string {
	all := g.Nodes()
	if len(selectors) == 0 {
		ids := make([]string, 0, len(all))
		for _, n := range all {
			ids = append(ids, n.UniqueID)
		}
		return ids
	}

	picked := make(map[string]bool)
	for _, sel := range selectors {
		if n, ok := g.Node(sel); ok {
			picked[n.UniqueID] = true
			continue
		}
		if n, ok := g.FindModel(sel); ok {
			picked[n.UniqueID] = true
			continue
		}
		for _, n := range all {
			if n.IsTest() && n.Name == sel {
				picked[n.UniqueID] = true
			}
		}
	}

	for _, n := range all {
		if !n.IsTest() || picked[n.UniqueID] {
			continue
		}
		for _, dep := range n.DependsOn {
			if picked[dep] {
				picked[n.UniqueID] = true
				break
			}
		}
	}

	ids := make([]string, 0, len(picked))
	for _, n := range all {
		if picked[n.UniqueID] {
			ids = append(ids, n.UniqueID)
		}
	}
	return ids
}
