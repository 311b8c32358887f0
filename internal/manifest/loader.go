package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/transform-cli/internal/model"
)

// ProjectFileName is the file that marks the root of a project.
const ProjectFileName = "project.yml"

// ProjectFile is the on-disk project definition.
type ProjectFile struct {
	Name       string   `yaml:"name"`
	Version    string   `yaml:"version"`
	Schema     string   `yaml:"schema"`
	ModelPaths []string `yaml:"model-paths"`
}

var (
	refPattern          = regexp.MustCompile(`\{\{\s*ref\(\s*['"]([^'"]+)['"]\s*\)\s*\}\}`)
	bareRefPattern      = regexp.MustCompile(`^\s*ref\(\s*['"]([^'"]+)['"]\s*\)\s*$`)
	materializedPattern = regexp.MustCompile(`(?m)^\s*--\s*materialized:\s*(\w+)\s*$`)
)

// propertiesFile is a *.yml file under a model path.
type propertiesFile struct {
	Models         []modelProperties     `yaml:"models"`
	SemanticModels []model.SemanticModel `yaml:"semantic_models"`
	Metrics        []model.Metric        `yaml:"metrics"`
}

type modelProperties struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Columns     []columnProperties `yaml:"columns"`
}

type columnProperties struct {
	Name  string           `yaml:"name"`
	Tests []testDefinition `yaml:"tests"`
}

// testDefinition accepts either `- not_null` or
// `- accepted_values: {values: [...], config: {severity: warn}}`.
type testDefinition struct {
	Name     string
	Values   []string
	Severity model.Severity
}

func (t *testDefinition) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		t.Name = value.Value
		t.Severity = model.SeverityError
		return nil
	}
	var raw map[string]struct {
		Values []string `yaml:"values"`
		Config struct {
			Severity string `yaml:"severity"`
		} `yaml:"config"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return eris.Errorf("manifest: test definition must have exactly one key, got %d", len(raw))
	}
	for name, body := range raw {
		t.Name = name
		t.Values = body.Values
		t.Severity = model.Severity(strings.ToLower(body.Config.Severity))
	}
	if t.Severity == "" {
		t.Severity = model.SeverityError
	}
	return nil
}

// Load parses the project rooted at dir into a manifest. Unresolved refs do
// not fail loading; they surface through Validate.
func Load(dir string) (*Manifest, error) {
	pf, err := readProjectFile(dir)
	if err != nil {
		return nil, err
	}

	m := New(pf.Name, pf.Schema)

	var sqlFiles, ymlFiles []string
	for _, p := range pf.ModelPaths {
		root := filepath.Join(dir, p)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch filepath.Ext(path) {
			case ".sql":
				sqlFiles = append(sqlFiles, path)
			case ".yml", ".yaml":
				ymlFiles = append(ymlFiles, path)
			}
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(err, "manifest: walk %s", root)
		}
	}

	for _, path := range sqlFiles {
		n, err := m.parseModel(dir, path)
		if err != nil {
			return nil, err
		}
		if err := m.AddNode(n); err != nil {
			return nil, err
		}
	}

	var props []propertiesFile
	for _, path := range ymlFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "manifest: read %s", path)
		}
		var p propertiesFile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, eris.Wrapf(err, "manifest: parse %s", path)
		}
		rel, _ := filepath.Rel(dir, path)
		if err := m.addTests(rel, p.Models); err != nil {
			return nil, err
		}
		props = append(props, p)
	}

	// Semantic models first so metrics can resolve measures against them.
	for _, p := range props {
		for i := range p.SemanticModels {
			if err := m.addSemanticModel(&p.SemanticModels[i]); err != nil {
				return nil, err
			}
		}
	}
	var metrics []*model.Metric
	for _, p := range props {
		for i := range p.Metrics {
			metrics = append(metrics, &p.Metrics[i])
		}
	}
	if err := m.addMetrics(metrics); err != nil {
		return nil, err
	}

	zap.L().Debug("manifest loaded",
		zap.String("project", m.Project),
		zap.Int("nodes", len(m.Nodes())),
		zap.Int("semantic_models", len(m.SemanticModels())),
		zap.Int("metrics", len(m.Metrics())),
	)
	return m, nil
}

func readProjectFile(dir string) (*ProjectFile, error) {
	path := filepath.Join(dir, ProjectFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: read %s", path)
	}
	var pf ProjectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrapf(err, "manifest: parse %s", path)
	}
	if pf.Name == "" {
		return nil, eris.Errorf("manifest: %s is missing a project name", path)
	}
	if pf.Schema == "" {
		pf.Schema = "main"
	}
	if len(pf.ModelPaths) == 0 {
		pf.ModelPaths = []string{"models"}
	}
	return &pf, nil
}

// RelationName quotes schema and name into a warehouse relation reference.
func RelationName(schema, name string) string {
	return `"` + schema + `"."` + name + `"`
}

func (m *Manifest) modelID(name string) string {
	return model.NodeUniqueID(model.ResourceTypeModel, m.Project, name)
}

func (m *Manifest) parseModel(dir, path string) (*model.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: read %s", path)
	}
	raw := string(data)
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	materialized := model.MaterializedView
	if mm := materializedPattern.FindStringSubmatch(raw); mm != nil {
		switch model.Materialization(mm[1]) {
		case model.MaterializedView, model.MaterializedTable:
			materialized = model.Materialization(mm[1])
		default:
			return nil, eris.Errorf("manifest: %s: unsupported materialization %q", path, mm[1])
		}
	}

	var deps []string
	seen := make(map[string]bool)
	compiled := refPattern.ReplaceAllStringFunc(raw, func(match string) string {
		ref := refPattern.FindStringSubmatch(match)[1]
		id := m.modelID(ref)
		if !seen[id] {
			seen[id] = true
			deps = append(deps, id)
		}
		return RelationName(m.Schema, ref)
	})

	rel, _ := filepath.Rel(dir, path)
	return &model.Node{
		UniqueID:     m.modelID(name),
		Name:         name,
		ResourceType: model.ResourceTypeModel,
		Package:      m.Project,
		Path:         rel,
		DependsOn:    deps,
		Schema:       m.Schema,
		RelationName: RelationName(m.Schema, name),
		RawSQL:       raw,
		CompiledSQL:  strings.TrimSpace(materializedPattern.ReplaceAllString(compiled, "")),
		Materialized: materialized,
	}, nil
}

func (m *Manifest) addTests(path string, models []modelProperties) error {
	for _, mp := range models {
		for _, col := range mp.Columns {
			for _, td := range col.Tests {
				switch td.Name {
				case "not_null", "unique", "accepted_values":
				default:
					return eris.Errorf("manifest: %s: unknown test %q on %s.%s", path, td.Name, mp.Name, col.Name)
				}
				name := strings.Join([]string{td.Name, mp.Name, col.Name}, "_")
				n := &model.Node{
					UniqueID:     model.NodeUniqueID(model.ResourceTypeTest, m.Project, name),
					Name:         name,
					ResourceType: model.ResourceTypeTest,
					Package:      m.Project,
					Path:         path,
					DependsOn:    []string{m.modelID(mp.Name)},
					Schema:       m.Schema,
					Test: &model.TestMetadata{
						Name:     td.Name,
						Model:    mp.Name,
						Column:   col.Name,
						Values:   td.Values,
						Severity: td.Severity,
					},
				}
				if err := m.AddNode(n); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (m *Manifest) addSemanticModel(sm *model.SemanticModel) error {
	ref := sm.Model
	if mm := bareRefPattern.FindStringSubmatch(ref); mm != nil {
		ref = mm[1]
	}
	sm.UniqueID = model.NodeUniqueID(model.ResourceTypeSemanticModel, m.Project, sm.Name)
	if ref != "" {
		sm.DependsOn = []string{m.modelID(ref)}
		sm.NodeRelation = &model.NodeRelation{
			Alias:        ref,
			SchemaName:   m.Schema,
			RelationName: RelationName(m.Schema, ref),
		}
	}
	return m.AddSemanticModel(sm)
}

// addMetrics resolves each metric's inputs against semantic models and the
// other metrics in the batch, then registers them in order.
func (m *Manifest) addMetrics(metrics []*model.Metric) error {
	byName := make(map[string]*model.Metric, len(metrics))
	for _, mt := range metrics {
		mt.UniqueID = model.NodeUniqueID(model.ResourceTypeMetric, m.Project, mt.Name)
		byName[mt.Name] = mt
	}

	measureOwner := make(map[string]string)
	for _, sm := range m.SemanticModels() {
		for _, ms := range sm.Measures {
			if _, ok := measureOwner[ms.Name]; !ok {
				measureOwner[ms.Name] = sm.UniqueID
			}
		}
	}

	for _, mt := range metrics {
		mt.TypeParams.InputMeasures = inputMeasures(mt, byName, map[string]bool{})
		mt.DependsOn = nil
		seen := make(map[string]bool)
		add := func(id string) {
			if !seen[id] {
				seen[id] = true
				mt.DependsOn = append(mt.DependsOn, id)
			}
		}
		switch mt.Type {
		case model.MetricTypeRatio, model.MetricTypeDerived:
			for _, in := range metricInputs(mt) {
				add(model.NodeUniqueID(model.ResourceTypeMetric, m.Project, in))
			}
		default:
			for _, im := range mt.TypeParams.InputMeasures {
				if owner, ok := measureOwner[im.Name]; ok {
					add(owner)
				}
			}
		}
	}

	for _, mt := range metrics {
		if err := m.AddMetric(mt); err != nil {
			return err
		}
	}
	return nil
}

func metricInputs(mt *model.Metric) []string {
	var names []string
	if mt.TypeParams.Numerator != nil {
		names = append(names, mt.TypeParams.Numerator.Name)
	}
	if mt.TypeParams.Denominator != nil {
		names = append(names, mt.TypeParams.Denominator.Name)
	}
	for _, in := range mt.TypeParams.Metrics {
		names = append(names, in.Name)
	}
	return names
}

func inputMeasures(mt *model.Metric, byName map[string]*model.Metric, visiting map[string]bool) []model.MetricInputMeasure {
	if mt.TypeParams.Measure != nil {
		return []model.MetricInputMeasure{*mt.TypeParams.Measure}
	}
	if visiting[mt.Name] {
		return nil
	}
	visiting[mt.Name] = true
	defer delete(visiting, mt.Name)

	var out []model.MetricInputMeasure
	seen := make(map[string]bool)
	for _, in := range metricInputs(mt) {
		parent, ok := byName[in]
		if !ok {
			continue
		}
		for _, im := range inputMeasures(parent, byName, visiting) {
			if !seen[im.Name] {
				seen[im.Name] = true
				out = append(out, im)
			}
		}
	}
	return out
}
