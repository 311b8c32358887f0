// Package manifest holds the in-memory dependency graph of a transformation
// project: executable nodes (models and tests), semantic models and metrics.
// All collections keep insertion order.
package manifest

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/transform-cli/internal/model"
)

// Manifest is the parsed dependency graph of a project.
type Manifest struct {
	Project string
	Schema  string

	nodes          ordered[*model.Node]
	semanticModels ordered[*model.SemanticModel]
	metrics        ordered[*model.Metric]

	modelsByName map[string]string
	childMap     map[string][]string
}

// New returns an empty manifest for the named project.
func New(project, schema string) *Manifest {
	return &Manifest{
		Project:        project,
		Schema:         schema,
		nodes:          newOrdered[*model.Node](),
		semanticModels: newOrdered[*model.SemanticModel](),
		metrics:        newOrdered[*model.Metric](),
		modelsByName:   make(map[string]string),
		childMap:       make(map[string][]string),
	}
}

// AddNode registers a model or test node.
func (m *Manifest) AddNode(n *model.Node) error {
	if !m.nodes.add(n.UniqueID, n) {
		return eris.Errorf("manifest: duplicate node %s", n.UniqueID)
	}
	if n.ResourceType == model.ResourceTypeModel {
		m.modelsByName[n.Name] = n.UniqueID
	}
	m.link(n.UniqueID, n.DependsOn)
	return nil
}

// AddSemanticModel registers a semantic model.
func (m *Manifest) AddSemanticModel(sm *model.SemanticModel) error {
	if !m.semanticModels.add(sm.UniqueID, sm) {
		return eris.Errorf("manifest: duplicate semantic model %s", sm.Name)
	}
	m.link(sm.UniqueID, sm.DependsOn)
	return nil
}

// AddMetric registers a metric.
func (m *Manifest) AddMetric(mt *model.Metric) error {
	if !m.metrics.add(mt.UniqueID, mt) {
		return eris.Errorf("manifest: duplicate metric %s", mt.Name)
	}
	m.link(mt.UniqueID, mt.DependsOn)
	return nil
}

func (m *Manifest) link(child string, parents []string) {
	for _, p := range parents {
		m.childMap[p] = append(m.childMap[p], child)
	}
}

// Node returns the node with the given unique id.
func (m *Manifest) Node(uniqueID string) (*model.Node, bool) {
	return m.nodes.get(uniqueID)
}

// Nodes returns every node in insertion order.
func (m *Manifest) Nodes() []*model.Node {
	return m.nodes.values()
}

// FindModel resolves a ref by exact model name, with no package or version
// qualifier.
func (m *Manifest) FindModel(name string) (*model.Node, bool) {
	id, ok := m.modelsByName[name]
	if !ok {
		return nil, false
	}
	return m.nodes.get(id)
}

// SemanticModels returns every semantic model in insertion order.
func (m *Manifest) SemanticModels() []*model.SemanticModel {
	return m.semanticModels.values()
}

// SemanticModel looks up a semantic model by name.
func (m *Manifest) SemanticModel(name string) (*model.SemanticModel, bool) {
	return m.semanticModels.get(model.NodeUniqueID(model.ResourceTypeSemanticModel, m.Project, name))
}

// Metrics returns every metric in insertion order.
func (m *Manifest) Metrics() []*model.Metric {
	return m.metrics.values()
}

// Metric looks up a metric by name.
func (m *Manifest) Metric(name string) (*model.Metric, bool) {
	return m.metrics.get(model.NodeUniqueID(model.ResourceTypeMetric, m.Project, name))
}

// DependentsOf returns the unique ids of every resource that directly
// depends on uniqueID, whether or not uniqueID itself exists.
func (m *Manifest) DependentsOf(uniqueID string) []string {
	deps := m.childMap[uniqueID]
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// Has reports whether any resource with the given unique id exists.
func (m *Manifest) Has(uniqueID string) bool {
	if _, ok := m.nodes.get(uniqueID); ok {
		return true
	}
	if _, ok := m.semanticModels.get(uniqueID); ok {
		return true
	}
	_, ok := m.metrics.get(uniqueID)
	return ok
}

// MissingNode builds the not-found error for uniqueID, including whatever
// still depends on it.
func (m *Manifest) MissingNode(uniqueID string) *NodeNotFoundError {
	return &NodeNotFoundError{
		UniqueID:   uniqueID,
		Name:       model.NameFromUniqueID(uniqueID),
		Dependents: m.DependentsOf(uniqueID),
	}
}

// Validate reports the first dependency that points at a resource missing
// from the graph, then the first dependency cycle.
func (m *Manifest) Validate() error {
	check := func(parents []string) error {
		for _, p := range parents {
			if !m.Has(p) {
				return m.MissingNode(p)
			}
		}
		return nil
	}
	for _, n := range m.nodes.values() {
		if err := check(n.DependsOn); err != nil {
			return err
		}
	}
	for _, sm := range m.semanticModels.values() {
		if err := check(sm.DependsOn); err != nil {
			return err
		}
	}
	for _, mt := range m.metrics.values() {
		if err := check(mt.DependsOn); err != nil {
			return err
		}
	}
	return m.findCycle()
}

// parentsOf returns the dependencies of any resource in the graph.
func (m *Manifest) parentsOf(uniqueID string) []string {
	if n, ok := m.nodes.get(uniqueID); ok {
		return n.DependsOn
	}
	if sm, ok := m.semanticModels.get(uniqueID); ok {
		return sm.DependsOn
	}
	if mt, ok := m.metrics.get(uniqueID); ok {
		return mt.DependsOn
	}
	return nil
}

// findCycle walks every resource depth-first in insertion order and returns
// a *CycleError for the first back edge it meets.
func (m *Manifest) findCycle() error {
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int)
	var stack []string

	var visit func(id string) *CycleError
	visit = func(id string) *CycleError {
		state[id] = visiting
		stack = append(stack, id)
		for _, p := range m.parentsOf(id) {
			switch state[p] {
			case visiting:
				start := 0
				for i, s := range stack {
					if s == p {
						start = i
						break
					}
				}
				path := append(append([]string{}, stack[start:]...), p)
				return &CycleError{Path: path}
			case unvisited:
				if err := visit(p); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = visited
		return nil
	}

	var ids []string
	for _, n := range m.nodes.values() {
		ids = append(ids, n.UniqueID)
	}
	for _, sm := range m.semanticModels.values() {
		ids = append(ids, sm.UniqueID)
	}
	for _, mt := range m.metrics.values() {
		ids = append(ids, mt.UniqueID)
	}
	for _, id := range ids {
		if state[id] != unvisited {
			continue
		}
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}
