package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/transform-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "transform",
	Short:        "Build, test and retry SQL transformation projects",
	Long:         "Loads a project of SQL models, tests and semantic definitions, materializes it into a warehouse, writes the semantic manifest and retries whatever failed last time.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyProjectFlags(cmd, c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// applyProjectFlags lets explicitly set persistent flags win over config.
func applyProjectFlags(cmd *cobra.Command, c *config.Config) {
	if f := cmd.Flags().Lookup("project-dir"); f != nil && f.Changed {
		c.Project.Dir = f.Value.String()
	}
	if f := cmd.Flags().Lookup("target-path"); f != nil && f.Changed {
		c.Project.TargetPath = f.Value.String()
	}
}

func init() {
	rootCmd.PersistentFlags().String("project-dir", ".", "directory containing project.yml")
	rootCmd.PersistentFlags().String("target-path", "target", "directory run artifacts are written to, relative to the project dir")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
