// Package projecttest writes small transformation projects to disk for tests.
package projecttest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Name is the project name used by the fixtures.
const Name = "test"

// ProjectYML is a minimal project.yml.
const ProjectYML = `name: test
version: "1.0"
schema: main
model-paths: ["models"]
`

// BrokenSampleModel fails at creation time with a syntax error.
const BrokenSampleModel = "selec 1 as id, 1 as foo\n"

// FixedSampleModel is the repaired sample model.
const FixedSampleModel = "select 1 as id, 1 as foo\n"

// SecondModel always builds.
const SecondModel = "select 1 as id, 2 as bar\n"

// UnionModel depends on sample_model and second_model.
const UnionModel = `select sum(foo) as sum3 from (
    select foo from {{ ref('sample_model') }}
    union all
    select bar as foo from {{ ref('second_model') }}
) t
`

// SchemaYML attaches warn-severity accepted_values tests to every model.
const SchemaYML = `models:
  - name: sample_model
    columns:
      - name: foo
        tests:
          - accepted_values:
              values: ["3"]
              config:
                severity: warn
  - name: second_model
    columns:
      - name: bar
        tests:
          - accepted_values:
              values: ["3"]
              config:
                severity: warn
  - name: union_model
    columns:
      - name: sum3
        tests:
          - accepted_values:
              values: ["3"]
              config:
                severity: warn
`

// RetryProject returns the files of a project whose first build errors on
// sample_model, skips its dependents and warns on second_model's test.
func RetryProject() map[string]string {
	return map[string]string{
		"project.yml":             ProjectYML,
		"models/sample_model.sql": BrokenSampleModel,
		"models/second_model.sql": SecondModel,
		"models/union_model.sql":  UnionModel,
		"models/schema.yml":       SchemaYML,
	}
}

// CleanProject returns a project in which every node succeeds.
func CleanProject() map[string]string {
	return map[string]string{
		"project.yml":             ProjectYML,
		"models/sample_model.sql": FixedSampleModel,
		"models/second_model.sql": SecondModel,
		"models/schema.yml": `models:
  - name: second_model
    columns:
      - name: id
        tests:
          - not_null
          - unique
`,
	}
}

// OrdersModel feeds the orders semantic model.
const OrdersModel = "select 1 as order_id, date('2024-01-01') as ordered_at, 10.5 as order_total\n"

// TimeSpineModel is the day-grain calendar table.
const TimeSpineModel = "-- materialized: table\nselect date('2024-01-01') as date_day\n"

// SemanticYML defines one semantic model and three metrics.
const SemanticYML = `semantic_models:
  - name: orders
    description: Order fact table
    model: ref('orders')
    defaults:
      agg_time_dimension: ordered_at
    entities:
      - name: order
        type: primary
        expr: order_id
    dimensions:
      - name: ordered_at
        type: time
        type_params:
          time_granularity: day
    measures:
      - name: order_total
        agg: sum
      - name: order_count
        agg: sum
        expr: "1"

metrics:
  - name: revenue
    label: Revenue
    type: simple
    type_params:
      measure: order_total
  - name: order_count
    type: simple
    type_params:
      measure: order_count
  - name: revenue_per_order
    type: derived
    type_params:
      expr: revenue / order_count
      metrics:
        - revenue
        - order_count
`

// SemanticProject returns a project with a semantic model, metrics and a
// time spine model.
func SemanticProject() map[string]string {
	return map[string]string{
		"project.yml":                      ProjectYML,
		"models/orders.sql":                OrdersModel,
		"models/metricflow_time_spine.sql": TimeSpineModel,
		"models/semantic.yml":              SemanticYML,
	}
}

// MultiSemanticProject spreads three semantic models over two files. The
// declaration order is zeta_orders, mid_items, alpha_customers.
func MultiSemanticProject() map[string]string {
	return map[string]string{
		"project.yml":                      ProjectYML,
		"models/orders.sql":                OrdersModel,
		"models/customers.sql":             "select 1 as customer_id\n",
		"models/metricflow_time_spine.sql": TimeSpineModel,
		"models/a_semantic.yml": `semantic_models:
  - name: zeta_orders
    model: ref('orders')
    entities:
      - name: order
        type: primary
        expr: order_id
  - name: mid_items
    model: ref('orders')
    entities:
      - name: item
        type: primary
        expr: order_id
`,
		"models/b_semantic.yml": `semantic_models:
  - name: alpha_customers
    model: ref('customers')
    entities:
      - name: customer
        type: primary
        expr: customer_id
`,
	}
}

// Write creates a project under a fresh temp dir and returns its path.
func Write(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	WriteFiles(t, dir, files)
	return dir
}

// WriteFiles writes files relative to dir, creating parent directories.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// Remove deletes a project file.
func Remove(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.Remove(filepath.Join(dir, name)))
}
