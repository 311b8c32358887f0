package semantic

import (
	"github.com/sells-group/transform-cli/internal/model"
)

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func whereFilter(sql string) *WhereFilterIntersection {
	if sql == "" {
		return nil
	}
	return &WhereFilterIntersection{WhereFilters: []WhereFilter{{WhereSQLTemplate: sql}}}
}

func toSemanticModel(sm *model.SemanticModel) SemanticModel {
	out := SemanticModel{
		Name:        sm.Name,
		Description: optional(sm.Description),
		Label:       optional(sm.Label),
		Entities:    make([]Entity, 0, len(sm.Entities)),
		Measures:    make([]Measure, 0, len(sm.Measures)),
		Dimensions:  make([]Dimension, 0, len(sm.Dimensions)),
	}
	if sm.NodeRelation != nil {
		out.NodeRelation = NodeRelation{
			Alias:        sm.NodeRelation.Alias,
			SchemaName:   sm.NodeRelation.SchemaName,
			Database:     optional(sm.NodeRelation.Database),
			RelationName: sm.NodeRelation.RelationName,
		}
	}
	if sm.Defaults != nil {
		out.Defaults = &SemanticModelDefaults{AggTimeDimension: optional(sm.Defaults.AggTimeDimension)}
	}
	for _, e := range sm.Entities {
		out.Entities = append(out.Entities, Entity{
			Name:        e.Name,
			Type:        e.Type,
			Description: optional(e.Description),
			Role:        optional(e.Role),
			Expr:        optional(e.Expr),
		})
	}
	for _, ms := range sm.Measures {
		out.Measures = append(out.Measures, Measure{
			Name:             ms.Name,
			Agg:              ms.Agg,
			Description:      optional(ms.Description),
			CreateMetric:     ms.CreateMetric,
			Expr:             optional(ms.Expr),
			AggParams:        ms.AggParams,
			AggTimeDimension: optional(ms.AggTimeDimension),
		})
	}
	for _, d := range sm.Dimensions {
		dim := Dimension{
			Name:        d.Name,
			Type:        d.Type,
			Description: optional(d.Description),
			IsPartition: d.IsPartition,
			Expr:        optional(d.Expr),
		}
		if d.TypeParams != nil {
			dim.TypeParams = &DimensionTypeParams{TimeGranularity: TimeGranularity(d.TypeParams.TimeGranularity)}
		}
		out.Dimensions = append(out.Dimensions, dim)
	}
	return out
}

func toMeasureInput(in model.MetricInputMeasure) MetricInputMeasure {
	return MetricInputMeasure{
		Name:   in.Name,
		Filter: whereFilter(in.Filter),
		Alias:  optional(in.Alias),
	}
}

func toMetricInput(in model.MetricInput) MetricInput {
	return MetricInput{
		Name:         in.Name,
		Filter:       whereFilter(in.Filter),
		Alias:        optional(in.Alias),
		OffsetWindow: optional(in.OffsetWindow),
	}
}

func toMetric(mt *model.Metric) Metric {
	tp := mt.TypeParams
	out := Metric{
		Name:        mt.Name,
		Description: optional(mt.Description),
		Label:       optional(mt.Label),
		Type:        string(mt.Type),
		Filter:      whereFilter(mt.Filter),
		TypeParams: MetricTypeParams{
			InputMeasures: make([]MetricInputMeasure, 0, len(tp.InputMeasures)),
			Metrics:       make([]MetricInput, 0, len(tp.Metrics)),
			Expr:          optional(tp.Expr),
			Window:        optional(tp.Window),
			GrainToDate:   optional(tp.GrainToDate),
		},
	}
	if tp.Measure != nil {
		m := toMeasureInput(*tp.Measure)
		out.TypeParams.Measure = &m
	}
	for _, im := range tp.InputMeasures {
		out.TypeParams.InputMeasures = append(out.TypeParams.InputMeasures, toMeasureInput(im))
	}
	if tp.Numerator != nil {
		n := toMetricInput(*tp.Numerator)
		out.TypeParams.Numerator = &n
	}
	if tp.Denominator != nil {
		d := toMetricInput(*tp.Denominator)
		out.TypeParams.Denominator = &d
	}
	for _, in := range tp.Metrics {
		out.TypeParams.Metrics = append(out.TypeParams.Metrics, toMetricInput(in))
	}
	return out
}
