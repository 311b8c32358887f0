package model

import "gopkg.in/yaml.v3"

// SemanticModel describes a queryable data source backed by a model node.
// Entity, measure and dimension definitions are carried through untouched.
type SemanticModel struct {
	UniqueID     string        `json:"unique_id" yaml:"-"`
	Name         string        `json:"name" yaml:"name"`
	Description  string        `json:"description,omitempty" yaml:"description"`
	Label        string        `json:"label,omitempty" yaml:"label"`
	Model        string        `json:"model" yaml:"model"`
	NodeRelation *NodeRelation `json:"node_relation,omitempty" yaml:"-"`
	Defaults     *Defaults     `json:"defaults,omitempty" yaml:"defaults"`
	Entities     []Entity      `json:"entities" yaml:"entities"`
	Measures     []Measure     `json:"measures" yaml:"measures"`
	Dimensions   []Dimension   `json:"dimensions" yaml:"dimensions"`
	DependsOn    []string      `json:"depends_on" yaml:"-"`
}

// NodeRelation points a semantic model at the physical relation it reads.
type NodeRelation struct {
	Alias        string `json:"alias"`
	SchemaName   string `json:"schema_name"`
	Database     string `json:"database,omitempty"`
	RelationName string `json:"relation_name"`
}

// Defaults holds semantic model level defaults.
type Defaults struct {
	AggTimeDimension string `json:"agg_time_dimension,omitempty" yaml:"agg_time_dimension"`
}

// Entity is a join key of a semantic model.
type Entity struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description"`
	Role        string `json:"role,omitempty" yaml:"role"`
	Expr        string `json:"expr,omitempty" yaml:"expr"`
}

// Measure is an aggregation over a column of a semantic model.
type Measure struct {
	Name             string         `json:"name" yaml:"name"`
	Agg              string         `json:"agg" yaml:"agg"`
	Description      string         `json:"description,omitempty" yaml:"description"`
	CreateMetric     bool           `json:"create_metric,omitempty" yaml:"create_metric"`
	Expr             string         `json:"expr,omitempty" yaml:"expr"`
	AggParams        map[string]any `json:"agg_params,omitempty" yaml:"agg_params"`
	AggTimeDimension string         `json:"agg_time_dimension,omitempty" yaml:"agg_time_dimension"`
}

// Dimension is a groupable attribute of a semantic model.
type Dimension struct {
	Name        string               `json:"name" yaml:"name"`
	Type        string               `json:"type" yaml:"type"`
	Description string               `json:"description,omitempty" yaml:"description"`
	IsPartition bool                 `json:"is_partition,omitempty" yaml:"is_partition"`
	Expr        string               `json:"expr,omitempty" yaml:"expr"`
	TypeParams  *DimensionTypeParams `json:"type_params,omitempty" yaml:"type_params"`
}

// DimensionTypeParams holds time dimension settings.
type DimensionTypeParams struct {
	TimeGranularity string `json:"time_granularity,omitempty" yaml:"time_granularity"`
}

// MetricType enumerates the supported metric kinds.
type MetricType string

const (
	MetricTypeSimple     MetricType = "simple"
	MetricTypeRatio      MetricType = "ratio"
	MetricTypeCumulative MetricType = "cumulative"
	MetricTypeDerived    MetricType = "derived"
	MetricTypeConversion MetricType = "conversion"
)

// Metric is a named aggregation over measures or other metrics.
type Metric struct {
	UniqueID    string           `json:"unique_id" yaml:"-"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description"`
	Label       string           `json:"label,omitempty" yaml:"label"`
	Type        MetricType       `json:"type" yaml:"type"`
	TypeParams  MetricTypeParams `json:"type_params" yaml:"type_params"`
	Filter      string           `json:"filter,omitempty" yaml:"filter"`
	DependsOn   []string         `json:"depends_on" yaml:"-"`
}

// MetricTypeParams describes a metric's inputs.
type MetricTypeParams struct {
	Measure       *MetricInputMeasure  `json:"measure,omitempty" yaml:"measure"`
	InputMeasures []MetricInputMeasure `json:"input_measures,omitempty" yaml:"-"`
	Numerator     *MetricInput         `json:"numerator,omitempty" yaml:"numerator"`
	Denominator   *MetricInput         `json:"denominator,omitempty" yaml:"denominator"`
	Expr          string               `json:"expr,omitempty" yaml:"expr"`
	Window        string               `json:"window,omitempty" yaml:"window"`
	GrainToDate   string               `json:"grain_to_date,omitempty" yaml:"grain_to_date"`
	Metrics       []MetricInput        `json:"metrics,omitempty" yaml:"metrics"`
}

// MetricInputMeasure references a measure by name.
type MetricInputMeasure struct {
	Name   string `json:"name" yaml:"name"`
	Filter string `json:"filter,omitempty" yaml:"filter"`
	Alias  string `json:"alias,omitempty" yaml:"alias"`
}

// MetricInput references another metric by name.
type MetricInput struct {
	Name         string `json:"name" yaml:"name"`
	Filter       string `json:"filter,omitempty" yaml:"filter"`
	Alias        string `json:"alias,omitempty" yaml:"alias"`
	OffsetWindow string `json:"offset_window,omitempty" yaml:"offset_window"`
}

// UnmarshalYAML accepts either a bare measure name or a mapping.
func (m *MetricInputMeasure) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		m.Name = value.Value
		return nil
	}
	type plain MetricInputMeasure
	return value.Decode((*plain)(m))
}

// UnmarshalYAML accepts either a bare metric name or a mapping.
func (m *MetricInput) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		m.Name = value.Value
		return nil
	}
	type plain MetricInput
	return value.Decode((*plain)(m))
}
