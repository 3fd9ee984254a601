package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/thicket"
	"github.com/jward/thicket/internal/lint"
)

var (
	flagLimit       int
	flagOffset      int
	flagLanguage    string
	flagScope       int
	flagFile        string
	flagRule        string
	flagMinSeverity string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the index",
	Long:  "Run queries against an indexed directory. All line and column numbers are 0-based.",
}

func init() {
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	queryCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")
	queryCmd.PersistentFlags().StringVar(&flagLanguage, "language", "", "restrict to one language (turtle|yaml)")

	usagesCmd.Flags().IntVar(&flagScope, "scope", 0, "scope of the name (YAML document index)")
	diagnosticsCmd.Flags().StringVar(&flagFile, "file", "", "only diagnostics in this file")
	diagnosticsCmd.Flags().StringVar(&flagRule, "rule", "", "only diagnostics from this rule")
	diagnosticsCmd.Flags().StringVar(&flagMinSeverity, "min-severity", "", "info|warning|error")

	queryCmd.AddCommand(unusedCmd)
	queryCmd.AddCommand(duplicatesCmd)
	queryCmd.AddCommand(unresolvedCmd)
	queryCmd.AddCommand(usagesCmd)
	queryCmd.AddCommand(definitionCmd)
	queryCmd.AddCommand(declarationsCmd)
	queryCmd.AddCommand(diagnosticsCmd)
	queryCmd.AddCommand(filesCmd)
}

// --- Helpers ---

// openEngine opens the index for querying. The database must exist.
func openEngine() (*thicket.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	proj, err := loadProject(cwd)
	if err != nil {
		return nil, err
	}
	dbPath := proj.dbPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'thicket index' first)", dbPath)
	}
	// Queries read stored outcomes only, so no rules are configured.
	return thicket.New(dbPath)
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// buildPagination creates a Pagination from CLI flags.
func buildPagination() thicket.Pagination {
	return thicket.Pagination{
		Limit:  flagLimit,
		Offset: flagOffset,
	}
}

func locationToCLI(loc thicket.Location) CLILocation {
	return CLILocation{
		File:      loc.File,
		StartLine: loc.StartLine,
		StartCol:  loc.StartCol,
		EndLine:   loc.EndLine,
		EndCol:    loc.EndCol,
	}
}

func bindingToCLI(b thicket.BindingResult) CLIBinding {
	return CLIBinding{
		ID:        b.ID,
		Name:      b.Name,
		Value:     b.Value,
		Scope:     b.Scope,
		Canonical: b.Canonical,
		Location:  locationToCLI(b.Location),
	}
}

func bindingsToCLI(bs []thicket.BindingResult) []CLIBinding {
	out := make([]CLIBinding, 0, len(bs))
	for _, b := range bs {
		out = append(out, bindingToCLI(b))
	}
	return out
}

// runBindingQuery runs a paged declaration query and prints the result.
func runBindingQuery(command string, query func(*thicket.QueryBuilder) (*thicket.PagedResult[thicket.BindingResult], error)) error {
	engine, err := openEngine()
	if err != nil {
		return outputError(command, err)
	}
	defer engine.Close()

	page, err := query(engine.Query())
	if err != nil {
		return outputError(command, err)
	}
	total := page.TotalCount
	return outputResult(CLIResult{
		Command:    command,
		Results:    bindingsToCLI(page.Items),
		TotalCount: &total,
	})
}

// --- Binding outcome commands ---

var unusedCmd = &cobra.Command{
	Use:   "unused",
	Short: "List declarations nothing refers to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBindingQuery("unused", func(q *thicket.QueryBuilder) (*thicket.PagedResult[thicket.BindingResult], error) {
			return q.Unused(flagLanguage, buildPagination())
		})
	},
}

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "List re-declarations of an already bound name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBindingQuery("duplicates", func(q *thicket.QueryBuilder) (*thicket.PagedResult[thicket.BindingResult], error) {
			return q.Duplicates(flagLanguage, buildPagination())
		})
	},
}

var unresolvedCmd = &cobra.Command{
	Use:   "unresolved",
	Short: "List references with no declaration in their scope",
	Args:  cobra.NoArgs,
	RunE:  runUnresolved,
}

func runUnresolved(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return outputError("unresolved", err)
	}
	defer engine.Close()

	page, err := engine.Query().Unresolved(flagLanguage, buildPagination())
	if err != nil {
		return outputError("unresolved", err)
	}
	refs := make([]CLIReference, 0, len(page.Items))
	for _, r := range page.Items {
		refs = append(refs, CLIReference{
			ID:       r.ID,
			Name:     r.Name,
			Scope:    r.Scope,
			Resolved: r.Resolved,
			Location: locationToCLI(r.Location),
		})
	}
	total := page.TotalCount
	return outputResult(CLIResult{Command: "unresolved", Results: refs, TotalCount: &total})
}

// --- Name and position commands ---

var usagesCmd = &cobra.Command{
	Use:   "usages <file> <name>",
	Short: "List the references bound to a declaration",
	Args:  cobra.ExactArgs(2),
	RunE:  runUsages,
}

func runUsages(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return outputError("usages", err)
	}
	defer engine.Close()

	file, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("usages", err)
	}
	locs, err := engine.Query().Usages(file, args[1], flagScope)
	if err != nil {
		return outputError("usages", err)
	}
	out := make([]CLILocation, 0, len(locs))
	for _, l := range locs {
		out = append(out, locationToCLI(l))
	}
	total := len(out)
	return outputResult(CLIResult{Command: "usages", Results: out, TotalCount: &total})
}

var definitionCmd = &cobra.Command{
	Use:   "definition <file> <line> <col>",
	Short: "Find the declaration a reference at a position resolves to",
	Args:  cobra.ExactArgs(3),
	RunE:  runDefinition,
}

func runDefinition(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return outputError("definition", err)
	}
	defer engine.Close()

	file, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("definition", err)
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return outputError("definition", err)
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return outputError("definition", err)
	}

	def, err := engine.Query().DefinitionAt(file, line, col)
	if err != nil {
		return outputError("definition", err)
	}
	if def == nil {
		return outputResult(CLIResult{Command: "definition", Results: nil})
	}
	one := 1
	return outputResult(CLIResult{Command: "definition", Results: bindingToCLI(*def), TotalCount: &one})
}

var declarationsCmd = &cobra.Command{
	Use:   "declarations <name>",
	Short: "List every declaration of a name, duplicates included",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeclarations,
}

func runDeclarations(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return outputError("declarations", err)
	}
	defer engine.Close()

	decls, err := engine.Query().Declarations(args[0])
	if err != nil {
		return outputError("declarations", err)
	}
	total := len(decls)
	return outputResult(CLIResult{Command: "declarations", Results: bindingsToCLI(decls), TotalCount: &total})
}

// --- Stored diagnostics and files ---

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "List stored diagnostics",
	Args:  cobra.NoArgs,
	RunE:  runDiagnostics,
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	filter := thicket.DiagnosticFilter{Rule: flagRule}
	if flagFile != "" {
		file, err := resolveFilePath(flagFile)
		if err != nil {
			return outputError("diagnostics", err)
		}
		filter.File = file
	}
	if flagMinSeverity != "" {
		sev, err := lint.ParseSeverity(flagMinSeverity)
		if err != nil {
			return outputError("diagnostics", err)
		}
		filter.MinSeverity = sev
	}

	engine, err := openEngine()
	if err != nil {
		return outputError("diagnostics", err)
	}
	defer engine.Close()

	page, err := engine.Query().Diagnostics(filter, buildPagination())
	if err != nil {
		return outputError("diagnostics", err)
	}
	diags := make([]CLIDiagnostic, 0, len(page.Items))
	for _, d := range page.Items {
		diags = append(diags, CLIDiagnostic{
			Rule:     d.Rule,
			Severity: d.Severity,
			Message:  d.Message,
			Notes:    d.Notes,
			Fixable:  d.Fixable,
			Location: locationToCLI(d.Location),
		})
	}
	total := page.TotalCount
	return outputResult(CLIResult{Command: "diagnostics", Results: diags, TotalCount: &total})
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

func runFiles(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return outputError("files", err)
	}
	defer engine.Close()

	page, err := engine.Query().Files(flagLanguage, buildPagination())
	if err != nil {
		return outputError("files", err)
	}
	files := make([]CLIFile, 0, len(page.Items))
	for _, f := range page.Items {
		files = append(files, CLIFile{ID: f.ID, Path: f.Path, Language: f.Language, LineCount: f.LineCount})
	}
	total := page.TotalCount
	return outputResult(CLIResult{Command: "files", Results: files, TotalCount: &total})
}
