//go:build !integration

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/sells-group/transform-cli/internal/config"
)

// useProject points the global config at dir with SQLite for everything.
func useProject(t *testing.T, dir string) {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Project:   config.ProjectConfig{Dir: dir, TargetPath: "target"},
		Run:       config.RunConfig{Threads: 2},
		Warehouse: config.WarehouseConfig{Driver: "sqlite", DSN: "warehouse.db", MaxAttempts: 1},
		Store:     config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "runs.db")},
		Server:    config.ServerConfig{Port: 8080},
		Log:       config.LogConfig{Level: "info", Format: "json"},
	}
	t.Cleanup(func() { cfg = prev })
}

// execute runs cmd's RunE with a background context and captures stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)
	defer cmd.SetContext(nil)
	defer cmd.SetOut(nil)

	err := cmd.RunE(cmd, args)
	return out.String(), err
}
