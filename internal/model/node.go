package model

import "strings"

// ResourceType identifies what kind of graph node a Node is.
type ResourceType string

const (
	ResourceTypeModel ResourceType = "model"
	ResourceTypeTest  ResourceType = "test"

	ResourceTypeSemanticModel ResourceType = "semantic_model"
	ResourceTypeMetric        ResourceType = "metric"
)

// Materialization controls how a model is persisted in the warehouse.
type Materialization string

const (
	MaterializedView  Materialization = "view"
	MaterializedTable Materialization = "table"
)

// Severity controls how a failing test is reported.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Node is an executable member of the dependency graph: a model or a data test.
type Node struct {
	UniqueID     string          `json:"unique_id"`
	Name         string          `json:"name"`
	ResourceType ResourceType    `json:"resource_type"`
	Package      string          `json:"package_name"`
	Path         string          `json:"original_file_path,omitempty"`
	DependsOn    []string        `json:"depends_on"`
	Schema       string          `json:"schema,omitempty"`
	RelationName string          `json:"relation_name,omitempty"`
	RawSQL       string          `json:"raw_code,omitempty"`
	CompiledSQL  string          `json:"compiled_code,omitempty"`
	Materialized Materialization `json:"materialized,omitempty"`
	Test         *TestMetadata   `json:"test_metadata,omitempty"`
}

// TestMetadata describes a generic column test attached to a model.
type TestMetadata struct {
	Name     string   `json:"name"`
	Model    string   `json:"model"`
	Column   string   `json:"column_name"`
	Values   []string `json:"values,omitempty"`
	Severity Severity `json:"severity"`
}

// IsTest reports whether the node is a data test.
func (n *Node) IsTest() bool {
	return n.ResourceType == ResourceTypeTest
}

// NodeUniqueID builds the "<type>.<package>.<name>" identifier for a node.
func NodeUniqueID(rt ResourceType, pkg, name string) string {
	return strings.Join([]string{string(rt), pkg, name}, ".")
}

// NameFromUniqueID returns the trailing name segment of a unique id.
func NameFromUniqueID(id string) string {
	if i := strings.LastIndex(id, "."); i >= 0 {
		return id[i+1:]
	}
	return id
}
