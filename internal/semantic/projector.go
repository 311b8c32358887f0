// Package semantic projects the project graph into the semantic manifest
// consumed by the metrics layer.
package semantic

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/transform-cli/internal/model"
)

const (
	// TimeSpineModelName is the model every project with semantic models
	// must define.
	TimeSpineModelName = "metricflow_time_spine"

	// TimeSpineColumnName is the day-grain date column of the time spine.
	TimeSpineColumnName = "date_day"

	// ManifestFileName is the file written into the target directory.
	ManifestFileName = "semantic_manifest.json"

	timeSpineDocsURL = "https://docs.getdbt.com/docs/build/metricflow-time-spine"
)

// Graph is the slice of the project graph the projector reads.
type Graph interface {
	SemanticModels() []*model.SemanticModel
	Metrics() []*model.Metric
	FindModel(name string) (*model.Node, bool)
}

// Projector converts a Graph into a semantic manifest Document.
type Projector struct {
	graph Graph
}

// NewProjector returns a projector over g.
func NewProjector(g Graph) *Projector {
	return &Projector{graph: g}
}

// Build translates every metric and semantic model in graph order. When at
// least one semantic model exists the time spine model must be present.
func (p *Projector) Build() (*Document, error) {
	semanticModels := p.graph.SemanticModels()
	metrics := p.graph.Metrics()

	doc := &Document{
		Metrics:        make([]Metric, 0, len(metrics)),
		SemanticModels: make([]SemanticModel, 0, len(semanticModels)),
		ProjectConfiguration: ProjectConfiguration{
			TimeSpineTableConfigurations: []TimeSpineTableConfiguration{},
		},
	}

	for _, sm := range semanticModels {
		doc.SemanticModels = append(doc.SemanticModels, toSemanticModel(sm))
	}
	for _, mt := range metrics {
		doc.Metrics = append(doc.Metrics, toMetric(mt))
	}

	// Any semantic model at all requires the time spine, whether or not a
	// metric uses a time dimension.
	if len(semanticModels) > 0 {
		spine, ok := p.graph.FindModel(TimeSpineModelName)
		if !ok {
			return nil, &ParsingError{Msg: "The semantic layer requires a '" + TimeSpineModelName +
				"' model in the project, but none was found. Guidance on creating this model can be found on our docs site (" +
				timeSpineDocsURL + ")"}
		}
		doc.ProjectConfiguration.TimeSpineTableConfigurations = []TimeSpineTableConfiguration{{
			Location:   spine.RelationName,
			ColumnName: TimeSpineColumnName,
			Grain:      TimeGranularityDay,
		}}
	}

	return doc, nil
}

// WriteFile builds the document and writes it to path as JSON, replacing any
// existing file. Nothing is written if the build fails.
func (p *Projector) WriteFile(path string) error {
	doc, err := p.Build()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "semantic: marshal manifest")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "semantic: create target dir")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "semantic: write %s", path)
	}

	zap.L().Info("semantic manifest written",
		zap.String("path", path),
		zap.Int("semantic_models", len(doc.SemanticModels)),
		zap.Int("metrics", len(doc.Metrics)),
		zap.Int("time_spines", len(doc.ProjectConfiguration.TimeSpineTableConfigurations)),
	)
	return nil
}
