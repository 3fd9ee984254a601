package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/thicket"
	"github.com/jward/thicket/internal/lint"
)

var flagFix bool

var lintCmd = &cobra.Command{
	Use:   "lint [paths...]",
	Short: "Lint Turtle and YAML files",
	Long: "Analyses the given files, or every supported file below the given directories, and reports diagnostics. " +
		"Exits with status 1 when any diagnostic has error severity. No database is needed.",
	RunE: runLint,
}

func init() {
	lintCmd.Flags().BoolVar(&flagFix, "fix", false, "apply suggested fixes and report what remains")
}

func runLint(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return outputError("lint", fmt.Errorf("getting cwd: %w", err))
	}
	proj, err := loadProject(cwd)
	if err != nil {
		return outputError("lint", err)
	}
	engine, err := proj.newEngine("", nil)
	if err != nil {
		return outputError("lint", err)
	}
	defer engine.Close()

	if len(args) == 0 {
		args = []string{"."}
	}
	paths, err := expandPaths(engine, args)
	if err != nil {
		return outputError("lint", err)
	}

	ctx := cmd.Context()
	results, lintErr := engine.LintFiles(ctx, paths)
	if lintErr != nil {
		slog.Error("lint failed for some files", slog.Any("error", lintErr))
	}

	if flagFix {
		results, err = applyFixes(ctx, engine, results)
		if err != nil {
			return outputError("lint", err)
		}
	}

	var diags []CLIDiagnostic
	failed := false
	for _, r := range results {
		for _, d := range r.Diagnostics {
			diags = append(diags, diagnosticToCLI(r.Path, d))
		}
		if r.HasErrors() {
			failed = true
		}
	}

	total := len(diags)
	if err := outputResult(CLIResult{Command: "lint", Results: diags, TotalCount: &total}); err != nil {
		return err
	}
	if lintErr != nil {
		errorHandled = true
		return lintErr
	}
	if failed {
		return errFindings
	}
	return nil
}

// expandPaths turns the arguments into absolute file paths, discovering
// supported files below any directory argument.
func expandPaths(engine *thicket.Engine, args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving path %q: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", abs)
		}
		if !info.IsDir() {
			paths = append(paths, abs)
			continue
		}
		found, err := engine.DiscoverFiles(abs)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

// applyFixes rewrites every file with fixable diagnostics and lints the
// rewritten files again. Results for untouched files are returned as-is.
func applyFixes(ctx context.Context, engine *thicket.Engine, results []*thicket.Result) ([]*thicket.Result, error) {
	var changed []string
	index := make(map[string]int, len(results))
	for i, r := range results {
		index[r.Path] = i
		edits := lint.Fixes(r.Diagnostics)
		if len(edits) == 0 {
			continue
		}
		fixed, err := lint.ApplyEdits(r.Source, edits)
		if err != nil {
			return nil, fmt.Errorf("fixing %s: %w", r.Path, err)
		}
		if err := os.WriteFile(r.Path, fixed, 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", r.Path, err)
		}
		slog.Info("applied fixes", slog.String("path", r.Path), slog.Int("edits", len(edits)))
		changed = append(changed, r.Path)
	}
	if len(changed) == 0 {
		return results, nil
	}

	again, err := engine.LintFiles(ctx, changed)
	if err != nil {
		return nil, err
	}
	for _, r := range again {
		results[index[r.Path]] = r
	}
	return results, nil
}

// diagnosticToCLI converts an in-memory diagnostic for path.
func diagnosticToCLI(path string, d lint.Diagnostic) CLIDiagnostic {
	return CLIDiagnostic{
		Rule:     d.Rule,
		Severity: d.Severity.String(),
		Message:  d.Message,
		Notes:    d.Notes,
		Fixable:  d.Fix != nil,
		Location: CLILocation{
			File:      path,
			StartLine: d.Start.Line,
			StartCol:  d.Start.Col,
			EndLine:   d.End.Line,
			EndCol:    d.End.Col,
		},
	}
}
