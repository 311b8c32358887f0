package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sells-group/transform-cli/internal/semantic"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Validate the project and write the semantic manifest",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("parse"); err != nil {
			return err
		}

		m, err := loadProject()
		if err != nil {
			return err
		}
		if err := semantic.Validate(m); err != nil {
			return err
		}

		path := filepath.Join(cfg.Project.TargetDir(), semantic.ManifestFileName)
		if err := semantic.NewProjector(m).WriteFile(path); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
