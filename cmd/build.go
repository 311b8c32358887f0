package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/transform-cli/internal/build"
	"github.com/sells-group/transform-cli/internal/model"
	"github.com/sells-group/transform-cli/internal/runstate"
	"github.com/sells-group/transform-cli/internal/warehouse"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run models and tests in dependency order",
	Long:  "Materializes the selected models into the warehouse, runs their tests and writes run_results.json to the target directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		selectors, _ := cmd.Flags().GetStringSlice("select")
		args := model.RunArgs{
			Command:   "build",
			Select:    selectors,
			FailFast:  cfg.Run.FailFast,
			WarnError: cfg.Run.WarnError,
			Threads:   cfg.Run.Threads,
		}
		if cmd.Flags().Changed("fail-fast") {
			args.FailFast, _ = cmd.Flags().GetBool("fail-fast")
		}
		if cmd.Flags().Changed("warn-error") {
			args.WarnError, _ = cmd.Flags().GetBool("warn-error")
		}
		if cmd.Flags().Changed("threads") {
			args.Threads, _ = cmd.Flags().GetInt("threads")
			cfg.Run.Threads = args.Threads
		}
		if err := cfg.Validate("build"); err != nil {
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

		run, err := st.CreateRun(ctx, args)
		if err != nil {
			return err
		}

		ids := build.Select(m, selectors)
		zap.L().Info("build: starting",
			zap.String("run_id", run.ID),
			zap.Int("selected", len(ids)),
			zap.Int("threads", args.Threads),
		)

		result := &model.RunResult{
			RunID:     run.ID,
			Args:      args,
			StartedAt: time.Now().UTC(),
		}
		results, execErr := build.NewExecutor(m, build.NewWarehouseRunner(wh)).Execute(ctx, ids, build.Options{
			Threads:   args.Threads,
			FailFast:  args.FailFast,
			WarnError: args.WarnError,
		})
		if results == nil && execErr != nil {
			finishRun(ctx, st, run.ID, nil)
			return execErr
		}
		result.Results = results
		result.ElapsedTime = time.Since(result.StartedAt).Seconds()

		if err := runstate.Save(cfg.Project.TargetDir(), runstate.FromResult(result)); err != nil {
			finishRun(ctx, st, run.ID, nil)
			return err
		}
		finishRun(ctx, st, run.ID, result)

		formatResults(cmd.OutOrStdout(), result)
		if execErr != nil {
			return execErr
		}
		return runFailure("build", result)
	},
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("fail-fast", false, "stop scheduling nodes after the first failure")
	cmd.Flags().Bool("warn-error", false, "treat test warnings as failures")
	cmd.Flags().Int("threads", 0, "number of nodes to run concurrently (default from config)")
}

func init() {
	buildCmd.Flags().StringSlice("select", nil, "models or tests to run, by name or unique id (default all)")
	addRunFlags(buildCmd)
	rootCmd.AddCommand(buildCmd)
}
