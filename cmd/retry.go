package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/transform-cli/internal/build"
	"github.com/sells-group/transform-cli/internal/model"
	"github.com/sells-group/transform-cli/internal/retry"
	"github.com/sells-group/transform-cli/internal/warehouse"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-run the nodes that did not succeed in the previous run",
	Long:  "Reads run_results.json from the target directory (or --state), re-runs every node that errored, was skipped, warned or failed, and writes a new run_results.json. Flags not set explicitly are inherited from the previous run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		opts, err := retryOptions(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate("retry"); err != nil {
			return err
		}

		m, err := loadProject()
		if err != nil {
			return err
		}

		wh, err := warehouse.Open(ctx, warehouseConfig())
		if err != nil {
			return err
		}
		defer wh.Close() //nolint:errcheck

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.CreateRun(ctx, model.RunArgs{Command: retry.Command})
		if err != nil {
			return err
		}
		opts.RunID = run.ID

		ex := build.NewExecutor(m, build.NewWarehouseRunner(wh))
		result, err := retry.NewService(m, ex, cfg.Project.TargetDir()).Run(ctx, opts)
		finishRun(ctx, st, run.ID, result)
		if result == nil {
			return err
		}

		formatResults(cmd.OutOrStdout(), result)
		if err != nil {
			return err
		}
		return runFailure(retry.Command, result)
	},
}

// retryOptions passes on only the flags the user set; the rest are
// inherited from the previous run.
func retryOptions(cmd *cobra.Command) (retry.Options, error) {
	var opts retry.Options
	opts.StateDir, _ = cmd.Flags().GetString("state")

	if cmd.Flags().Changed("fail-fast") {
		v, _ := cmd.Flags().GetBool("fail-fast")
		opts.FailFast = &v
	}
	if cmd.Flags().Changed("warn-error") {
		v, _ := cmd.Flags().GetBool("warn-error")
		opts.WarnError = &v
	}
	if cmd.Flags().Changed("threads") {
		v, _ := cmd.Flags().GetInt("threads")
		if v < 1 {
			return opts, errThreads
		}
		opts.Threads = &v
	}
	return opts, nil
}

func init() {
	retryCmd.Flags().String("state", "", "directory holding the run_results.json to retry (default the target directory)")
	addRunFlags(retryCmd)
	rootCmd.AddCommand(retryCmd)
}
