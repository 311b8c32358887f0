package semantic

// TimeGranularity is the grain of a time dimension or time spine.
type TimeGranularity string

const (
	TimeGranularityDay     TimeGranularity = "day"
	TimeGranularityWeek    TimeGranularity = "week"
	TimeGranularityMonth   TimeGranularity = "month"
	TimeGranularityQuarter TimeGranularity = "quarter"
	TimeGranularityYear    TimeGranularity = "year"
)

// Document is the semantic manifest handed to the metrics layer.
type Document struct {
	Metrics              []Metric             `json:"metrics"`
	SemanticModels       []SemanticModel      `json:"semantic_models"`
	ProjectConfiguration ProjectConfiguration `json:"project_configuration"`
}

// ProjectConfiguration carries project-wide settings.
type ProjectConfiguration struct {
	TimeSpineTableConfigurations []TimeSpineTableConfiguration `json:"time_spine_table_configurations"`
}

// TimeSpineTableConfiguration points the metrics layer at the calendar table.
type TimeSpineTableConfiguration struct {
	Location   string          `json:"location"`
	ColumnName string          `json:"column_name"`
	Grain      TimeGranularity `json:"grain"`
}

type SemanticModel struct {
	Name         string                 `json:"name"`
	Description  *string                `json:"description"`
	Label        *string                `json:"label"`
	NodeRelation NodeRelation           `json:"node_relation"`
	Defaults     *SemanticModelDefaults `json:"defaults"`
	Entities     []Entity               `json:"entities"`
	Measures     []Measure              `json:"measures"`
	Dimensions   []Dimension            `json:"dimensions"`
}

type NodeRelation struct {
	Alias        string  `json:"alias"`
	SchemaName   string  `json:"schema_name"`
	Database     *string `json:"database"`
	RelationName string  `json:"relation_name"`
}

type SemanticModelDefaults struct {
	AggTimeDimension *string `json:"agg_time_dimension"`
}

type Entity struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description *string `json:"description"`
	Role        *string `json:"role"`
	Expr        *string `json:"expr"`
}

type Measure struct {
	Name             string         `json:"name"`
	Agg              string         `json:"agg"`
	Description      *string        `json:"description"`
	CreateMetric     bool           `json:"create_metric"`
	Expr             *string        `json:"expr"`
	AggParams        map[string]any `json:"agg_params"`
	AggTimeDimension *string        `json:"agg_time_dimension"`
}

type Dimension struct {
	Name        string               `json:"name"`
	Type        string               `json:"type"`
	Description *string              `json:"description"`
	IsPartition bool                 `json:"is_partition"`
	Expr        *string              `json:"expr"`
	TypeParams  *DimensionTypeParams `json:"type_params"`
}

type DimensionTypeParams struct {
	TimeGranularity TimeGranularity `json:"time_granularity"`
}

type Metric struct {
	Name        string                   `json:"name"`
	Description *string                  `json:"description"`
	Label       *string                  `json:"label"`
	Type        string                   `json:"type"`
	TypeParams  MetricTypeParams         `json:"type_params"`
	Filter      *WhereFilterIntersection `json:"filter"`
}

type MetricTypeParams struct {
	Measure       *MetricInputMeasure  `json:"measure"`
	InputMeasures []MetricInputMeasure `json:"input_measures"`
	Numerator     *MetricInput         `json:"numerator"`
	Denominator   *MetricInput         `json:"denominator"`
	Expr          *string              `json:"expr"`
	Window        *string              `json:"window"`
	GrainToDate   *string              `json:"grain_to_date"`
	Metrics       []MetricInput        `json:"metrics"`
}

type MetricInputMeasure struct {
	Name   string                   `json:"name"`
	Filter *WhereFilterIntersection `json:"filter"`
	Alias  *string                  `json:"alias"`
}

type MetricInput struct {
	Name         string                   `json:"name"`
	Filter       *WhereFilterIntersection `json:"filter"`
	Alias        *string                  `json:"alias"`
	OffsetWindow *string                  `json:"offset_window"`
}

// WhereFilterIntersection is a set of filters that must all hold.
type WhereFilterIntersection struct {
	WhereFilters []WhereFilter `json:"where_filters"`
}

type WhereFilter struct {
	WhereSQLTemplate string `json:"where_sql_template"`
}
