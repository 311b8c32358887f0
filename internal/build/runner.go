package build

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/transform-cli/internal/model"
	"github.com/sells-group/transform-cli/internal/warehouse"
)

// WarehouseRunner materializes models and evaluates tests in a warehouse.
type WarehouseRunner struct {
	wh warehouse.Warehouse

	mu      sync.Mutex
	schemas map[string]bool
}

// NewWarehouseRunner returns a runner over wh.
func NewWarehouseRunner(wh warehouse.Warehouse) *WarehouseRunner {
	return &WarehouseRunner{wh: wh, schemas: make(map[string]bool)}
}

// Run executes n and maps the outcome to a node status.
func (r *WarehouseRunner) Run(ctx context.Context, n *model.Node, opts Options) model.NodeResult {
	if n.IsTest() {
		return r.runTest(ctx, n, opts)
	}
	if err := r.runModel(ctx, n); err != nil {
		return model.NodeResult{Status: model.NodeStatusError, Message: err.Error()}
	}
	return model.NodeResult{Status: model.NodeStatusSuccess}
}

func (r *WarehouseRunner) ensureSchema(ctx context.Context, schema string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.schemas[schema] {
		return nil
	}
	if err := r.wh.EnsureSchema(ctx, schema); err != nil {
		return err
	}
	r.schemas[schema] = true
	return nil
}

func (r *WarehouseRunner) runModel(ctx context.Context, n *model.Node) error {
	if err := r.ensureSchema(ctx, n.Schema); err != nil {
		return err
	}
	if err := warehouse.DropRelation(ctx, r.wh, n.Schema, n.Name); err != nil {
		return err
	}

	kind := "VIEW"
	if n.Materialized == model.MaterializedTable {
		kind = "TABLE"
	}
	return r.wh.Exec(ctx, fmt.Sprintf("CREATE %s %s AS %s", kind, warehouse.QuoteRelation(n.Schema, n.Name), n.CompiledSQL))
}

func (r *WarehouseRunner) runTest(ctx context.Context, n *model.Node, opts Options) model.NodeResult {
	query, err := TestQuery(n)
	if err != nil {
		return model.NodeResult{Status: model.NodeStatusError, Message: err.Error()}
	}
	failures, err := r.wh.QueryCount(ctx, query)
	if err != nil {
		return model.NodeResult{Status: model.NodeStatusError, Message: err.Error()}
	}
	return TestResult(n.Test.Severity, failures, opts.WarnError)
}

// TestResult maps a failing-row count to a test status. Warn-severity
// failures become fail under warn-error.
func TestResult(severity model.Severity, failures int64, warnError bool) model.NodeResult {
	if failures == 0 {
		return model.NodeResult{Status: model.NodeStatusPass}
	}
	status := model.NodeStatusFail
	if severity == model.SeverityWarn && !warnError {
		status = model.NodeStatusWarn
	}
	noun := "results"
	if failures == 1 {
		noun = "result"
	}
	return model.NodeResult{
		Status:   status,
		Failures: failures,
		Message:  fmt.Sprintf("Got %d %s, configured to %s if != 0", failures, noun, status),
	}
}

// TestQuery renders the failing-row count query for a generic column test.
func TestQuery(n *model.Node) (string, error) {
	t := n.Test
	if t == nil {
		return "", eris.Errorf("build: node %s has no test metadata", n.UniqueID)
	}
	rel := warehouse.QuoteRelation(n.Schema, t.Model)
	col := warehouse.QuoteIdent(t.Column)

	switch t.Name {
	case "not_null":
		return fmt.Sprintf("select count(*) from %s where %s is null", rel, col), nil
	case "unique":
		return fmt.Sprintf(
			"select count(*) from (select %s from %s where %s is not null group by %s having count(*) > 1) validation_errors",
			col, rel, col, col), nil
	case "accepted_values":
		if len(t.Values) == 0 {
			return "", eris.Errorf("build: accepted_values test %s has no values", n.UniqueID)
		}
		values := make([]string, 0, len(t.Values))
		for _, v := range t.Values {
			values = append(values, warehouse.QuoteLiteral(v))
		}
		return fmt.Sprintf(
			"select count(*) from (select %s as value_field from %s group by %s) all_values where cast(value_field as text) not in (%s)",
			col, rel, col, strings.Join(values, ", ")), nil
	default:
		return "", eris.Errorf("build: unsupported test %q", t.Name)
	}
}
