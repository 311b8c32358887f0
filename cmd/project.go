package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/transform-cli/internal/config"
	"github.com/sells-group/transform-cli/internal/manifest"
	"github.com/sells-group/transform-cli/internal/model"
	"github.com/sells-group/transform-cli/internal/store"
	"github.com/sells-group/transform-cli/internal/warehouse"
)

var errThreads = eris.New("--threads must be at least 1")

// loadProject reads and validates the project graph.
func loadProject() (*manifest.Manifest, error) {
	m, err := manifest.Load(cfg.Project.Dir)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// warehouseConfig resolves a relative SQLite path against the project dir.
func warehouseConfig() config.WarehouseConfig {
	wc := cfg.Warehouse
	if wc.Driver == warehouse.DriverSQLite && wc.DSN != ":memory:" && !filepath.IsAbs(wc.DSN) {
		wc.DSN = filepath.Join(cfg.Project.Dir, wc.DSN)
	}
	return wc
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

// finishRun records the outcome of a run in the history. A nil result
// means nothing ran and the run is marked failed.
func finishRun(ctx context.Context, st store.Store, runID string, result *model.RunResult) {
	var err error
	if result == nil {
		err = st.UpdateRunStatus(ctx, runID, model.RunStatusFailed)
	} else {
		err = st.CompleteRun(ctx, runID, result)
	}
	if err != nil {
		zap.L().Warn("record run history", zap.String("run_id", runID), zap.Error(err))
	}
}

// runFailure turns an unsuccessful result into a command error so the
// process exits non-zero.
func runFailure(command string, result *model.RunResult) error {
	if result.Status() != model.RunStatusFailed {
		return nil
	}
	counts := result.Counts()
	return eris.Errorf("%s: %d error(s), %d failure(s), %d skipped",
		command,
		counts[model.NodeStatusError],
		counts[model.NodeStatusFail],
		counts[model.NodeStatusSkipped],
	)
}

// formatResults writes one line per node followed by a status summary.
func formatResults(out io.Writer, result *model.RunResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STATUS\tNODE\tTIME\tMESSAGE")
	_, _ = fmt.Fprintln(w, "------\t----\t----\t-------")
	for _, r := range result.Results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.2fs\t%s\n", r.Status, r.UniqueID, r.ExecutionTime, r.Message)
	}
	_ = w.Flush()

	counts := result.Counts()
	_, _ = fmt.Fprintf(out, "\nDone. PASS=%d WARN=%d ERROR=%d SKIP=%d TOTAL=%d\n",
		counts[model.NodeStatusSuccess]+counts[model.NodeStatusPass],
		counts[model.NodeStatusWarn],
		counts[model.NodeStatusError]+counts[model.NodeStatusFail],
		counts[model.NodeStatusSkipped],
		len(result.Results),
	)
}
