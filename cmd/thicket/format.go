package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

// formatBindingsText formats CLIBinding results as aligned columns.
func formatBindingsText(w io.Writer, bindings []CLIBinding) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVALUE\tSCOPE\tFILE\tLINE")
	for _, b := range bindings {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%d\n",
			b.ID, b.Name, b.Value, b.Scope, b.Location.File, b.Location.StartLine)
	}
	tw.Flush()
}

// formatReferencesText formats CLIReference results as aligned columns.
func formatReferencesText(w io.Writer, refs []CLIReference) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCOPE\tFILE\tLINE\tCOL")
	for _, r := range refs {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\n",
			r.Name, r.Scope, r.Location.File, r.Location.StartLine, r.Location.StartCol)
	}
	tw.Flush()
}

// formatDiagnosticsText writes one compiler-style line per diagnostic.
// Lines and columns are printed 1-based, the way editors expect them.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s:%d:%d: %s: %s [%s]\n",
			d.Location.File, d.Location.StartLine+1, d.Location.StartCol+1,
			d.Severity, d.Message, d.Rule)
		for _, note := range d.Notes {
			fmt.Fprintf(w, "\t%s\n", note)
		}
	}
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tLANGUAGE\tLINES")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", f.ID, f.Path, f.Language, f.LineCount)
	}
	tw.Flush()
}

// formatRulesText formats CLIRule results as aligned columns.
func formatRulesText(w io.Writer, rules []CLIRule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLANGUAGE\tSEVERITY\tDOC")
	for _, r := range rules {
		sev := r.Severity
		if !r.Enabled {
			sev = "off"
		}
		lang := r.Language
		if lang == "" {
			lang = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, lang, sev, r.Doc)
	}
	tw.Flush()
}

// formatIndexReportText formats a CLIIndexReport as a short summary.
func formatIndexReportText(w io.Writer, r CLIIndexReport) {
	fmt.Fprintf(w, "Indexed %d file(s), skipped %d unchanged, pruned %d in %dms\n",
		len(r.Indexed), r.Skipped, len(r.Pruned), r.DurationMS)
	fmt.Fprintf(w, "Diagnostics: %d\n", r.Diagnostics)
	fmt.Fprintf(w, "Database: %s\n", r.Database)
}

// formatChangesText formats a watch batch.
func formatChangesText(w io.Writer, changes []CLIChange) {
	for _, c := range changes {
		if c.Op == "delete" {
			fmt.Fprintf(w, "%s: removed\n", c.Path)
			continue
		}
		if len(c.Diagnostics) == 0 {
			fmt.Fprintf(w, "%s: ok\n", c.Path)
			continue
		}
		formatDiagnosticsText(w, c.Diagnostics)
	}
}

// writeResult writes result to w in format.
func writeResult(w io.Writer, format string, result CLIResult) error {
	if format == "text" {
		return writeResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// writeResultText dispatches to the appropriate text formatter based on the
// result type.
func writeResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLILocation:
		formatLocationsText(w, v)
	case []CLIBinding:
		formatBindingsText(w, v)
	case CLIBinding:
		formatBindingsText(w, []CLIBinding{v})
	case []CLIReference:
		formatReferencesText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case []CLIRule:
		formatRulesText(w, v)
	case CLIIndexReport:
		formatIndexReportText(w, v)
	case []CLIChange:
		formatChangesText(w, v)
	case nil:
		// No output for nil results (e.g., definition with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// outputResult writes a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	return writeResult(os.Stdout, flagFormat, result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	_ = writeResult(os.Stdout, flagFormat, CLIResult{Command: command, Error: err.Error()})
	return err
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLILocation:
		return len(r)
	case []CLIBinding:
		return len(r)
	case []CLIReference:
		return len(r)
	case []CLIDiagnostic:
		return len(r)
	case []CLIFile:
		return len(r)
	case []CLIRule:
		return len(r)
	case []CLIChange:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
