package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a directory into the SQLite database",
	Long: "Analyses every supported file below path and stores declarations, references and diagnostics. " +
		"Unchanged files are skipped unless the rule set changed.",
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database and reindex from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("index", err)
	}
	proj, err := loadProject(targetDir)
	if err != nil {
		return outputError("index", err)
	}
	dbPath := proj.dbPath()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return outputError("index", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err))
	}
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return outputError("index", fmt.Errorf("removing database for --force: %w", err))
		}
		slog.Info("cleared database", slog.String("path", dbPath))
	}

	engine, err := proj.newEngine(dbPath, nil)
	if err != nil {
		return outputError("index", err)
	}
	defer engine.Close()

	report, err := engine.IndexDirectory(cmd.Context(), targetDir)
	if err != nil {
		return outputError("index", fmt.Errorf("indexing: %w", err))
	}

	return outputResult(CLIResult{
		Command: "index",
		Results: CLIIndexReport{
			Run:         report.Run.ID,
			Database:    dbPath,
			Indexed:     report.Indexed,
			Skipped:     len(report.Skipped),
			Pruned:      report.Pruned,
			Diagnostics: report.Run.Diagnostics,
			DurationMS:  time.Since(start).Milliseconds(),
		},
	})
}
