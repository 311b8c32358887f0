package semantic

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/transform-cli/internal/manifest"
	"github.com/sells-group/transform-cli/internal/model"
	"github.com/sells-group/transform-cli/internal/projecttest"
)

func loadSemanticProject(t *testing.T, files map[string]string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Load(projecttest.Write(t, files))
	require.NoError(t, err)
	return m
}

func TestProjector_Build(t *testing.T) {
	m := loadSemanticProject(t, projecttest.SemanticProject())

	doc, err := NewProjector(m).Build()
	require.NoError(t, err)

	require.Len(t, doc.SemanticModels, 1)
	sm := doc.SemanticModels[0]
	assert.Equal(t, "orders", sm.Name)
	assert.Equal(t, `"main"."orders"`, sm.NodeRelation.RelationName)
	require.NotNil(t, sm.Description)
	assert.Equal(t, "Order fact table", *sm.Description)
	assert.Nil(t, sm.Label)
	require.Len(t, sm.Dimensions, 1)
	require.NotNil(t, sm.Dimensions[0].TypeParams)
	assert.Equal(t, TimeGranularityDay, sm.Dimensions[0].TypeParams.TimeGranularity)

	names := make([]string, 0, len(doc.Metrics))
	for _, mt := range doc.Metrics {
		names = append(names, mt.Name)
	}
	assert.Equal(t, []string{"revenue", "order_count", "revenue_per_order"}, names)

	simple := doc.Metrics[0]
	assert.NotNil(t, simple.TypeParams.Metrics)
	assert.Empty(t, simple.TypeParams.Metrics)

	derived := doc.Metrics[2]
	require.NotNil(t, derived.TypeParams.Expr)
	assert.Equal(t, "revenue / order_count", *derived.TypeParams.Expr)
	require.Len(t, derived.TypeParams.InputMeasures, 2)
	assert.Equal(t, "order_total", derived.TypeParams.InputMeasures[0].Name)
	assert.Equal(t, "order_count", derived.TypeParams.InputMeasures[1].Name)

	assert.Equal(t, []TimeSpineTableConfiguration{{
		Location:   `"main"."metricflow_time_spine"`,
		ColumnName: "date_day",
		Grain:      TimeGranularityDay,
	}}, doc.ProjectConfiguration.TimeSpineTableConfigurations)
}

func TestProjector_SemanticModelOrder(t *testing.T) {
	m := loadSemanticProject(t, projecttest.MultiSemanticProject())

	doc, err := NewProjector(m).Build()
	require.NoError(t, err)

	names := make([]string, 0, len(doc.SemanticModels))
	for _, sm := range doc.SemanticModels {
		names = append(names, sm.Name)
	}
	assert.Equal(t, []string{"zeta_orders", "mid_items", "alpha_customers"}, names)
	assert.Equal(t, `"main"."customers"`, doc.SemanticModels[2].NodeRelation.RelationName)
}

func TestProjector_EmptyListsSerializeAsArrays(t *testing.T) {
	m := loadSemanticProject(t, projecttest.SemanticProject())

	doc, err := NewProjector(m).Build()
	require.NoError(t, err)

	raw, err := json.Marshal(doc.Metrics[0])
	require.NoError(t, err)
	var got struct {
		TypeParams map[string]json.RawMessage `json:"type_params"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.JSONEq(t, `[]`, string(got.TypeParams["metrics"]))
	assert.JSONEq(t, `[{"name":"order_total","filter":null,"alias":null}]`, string(got.TypeParams["input_measures"]))
}

func TestProjector_MissingTimeSpine(t *testing.T) {
	files := projecttest.SemanticProject()
	delete(files, "models/metricflow_time_spine.sql")
	m := loadSemanticProject(t, files)

	doc, err := NewProjector(m).Build()
	require.Error(t, err)
	assert.Nil(t, doc)

	var perr *ParsingError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, err.Error(), "metricflow_time_spine")
	assert.Contains(t, err.Error(), timeSpineDocsURL)
}

func TestProjector_NoSemanticModels(t *testing.T) {
	m := loadSemanticProject(t, projecttest.CleanProject())

	doc, err := NewProjector(m).Build()
	require.NoError(t, err)
	assert.Empty(t, doc.SemanticModels)
	assert.Empty(t, doc.Metrics)
	assert.NotNil(t, doc.ProjectConfiguration.TimeSpineTableConfigurations)
	assert.Empty(t, doc.ProjectConfiguration.TimeSpineTableConfigurations)
}

// A semantic model alone demands the time spine even without any metric.
func TestProjector_SemanticModelWithoutMetrics(t *testing.T) {
	m := manifest.New("p", "main")
	require.NoError(t, m.AddSemanticModel(&model.SemanticModel{
		UniqueID: "semantic_model.p.orders",
		Name:     "orders",
		Model:    "ref('orders')",
	}))

	_, err := NewProjector(m).Build()
	var perr *ParsingError
	require.True(t, errors.As(err, &perr))
}

func TestProjector_TimeSpineMustBeModel(t *testing.T) {
	m := manifest.New("p", "main")
	require.NoError(t, m.AddSemanticModel(&model.SemanticModel{
		UniqueID: "semantic_model.p.metricflow_time_spine",
		Name:     "metricflow_time_spine",
		Model:    "ref('orders')",
	}))

	_, err := NewProjector(m).Build()
	assert.Error(t, err, "a semantic model named like the spine does not count")
}

func TestProjector_WriteFile(t *testing.T) {
	m := loadSemanticProject(t, projecttest.SemanticProject())
	path := filepath.Join(t.TempDir(), "target", ManifestFileName)

	require.NoError(t, NewProjector(m).WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "metrics")
	assert.Contains(t, raw, "semantic_models")
	pc, ok := raw["project_configuration"].(map[string]any)
	require.True(t, ok)
	spines, ok := pc["time_spine_table_configurations"].([]any)
	require.True(t, ok)
	require.Len(t, spines, 1)
	assert.Equal(t, map[string]any{
		"location":    `"main"."metricflow_time_spine"`,
		"column_name": "date_day",
		"grain":       "day",
	}, spines[0])
}

func TestProjector_WriteFileNothingOnError(t *testing.T) {
	files := projecttest.SemanticProject()
	delete(files, "models/metricflow_time_spine.sql")
	m := loadSemanticProject(t, files)
	path := filepath.Join(t.TempDir(), "target", ManifestFileName)

	require.Error(t, NewProjector(m).WriteFile(path))

	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(filepath.Dir(path))
	assert.True(t, errors.Is(err, os.ErrNotExist), "target dir is not created on failure")
}

func TestProjector_WriteFileReplaces(t *testing.T) {
	m := loadSemanticProject(t, projecttest.CleanProject())
	path := filepath.Join(t.TempDir(), ManifestFileName)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, NewProjector(m).WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Empty(t, doc.Metrics)
}

func TestParsingError_Message(t *testing.T) {
	err := &ParsingError{Msg: "boom"}
	assert.Equal(t, "Parsing Error: boom", err.Error())
}
