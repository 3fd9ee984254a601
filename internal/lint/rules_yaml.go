package lint

import "fmt"

// AnalyzerDuplicateAnchor reports an anchor name defined twice in one
// document.
var AnalyzerDuplicateAnchor = &Analyzer{
	Name:     "duplicate-anchor",
	Language: LangYAML,
	Severity: SeverityWarning,
	Doc:      "Report an anchor name defined more than once in the same document.\n\nAliases are checked against the first definition; later ones make it unclear which node an alias means.",
	Run: func(pass *Pass) error {
		for _, d := range pass.YAML.Duplicates() {
			first := pass.Lines.Position(d.Canonical.Start)
			for _, r := range d.Ranges {
				pass.Report(Diagnostic{
					Message: fmt.Sprintf("anchor %q is already defined in this document", d.Name),
					Range:   r,
					Notes:   []string{fmt.Sprintf("first defined on line %d", first.Line+1)},
				})
			}
		}
		return nil
	},
}

// AnalyzerUnusedAnchor reports anchors no alias refers to.
var AnalyzerUnusedAnchor = &Analyzer{
	Name:     "unused-anchor",
	Language: LangYAML,
	Severity: SeverityInfo,
	Doc:      "Report an anchor that no alias in its document refers to.",
	Run: func(pass *Pass) error {
		for _, d := range pass.YAML.Unused() {
			pass.Report(Diagnostic{
				Message: fmt.Sprintf("anchor %q is never used", d.Name),
				Range:   d.Range,
				Fix: &Fix{
					Description: "Remove the anchor",
					Edits:       []TextEdit{removal(pass.Source, d.Range)},
				},
			})
		}
		return nil
	},
}

// AnalyzerUndeclaredAlias reports aliases without an anchor in their
// document.
var AnalyzerUndeclaredAlias = &Analyzer{
	Name:     "undeclared-alias",
	Language: LangYAML,
	Severity: SeverityError,
	Doc:      "Report an alias whose anchor is not defined in the same document.\n\nAnchors do not cross `---` boundaries; an anchor with the same name in another document is mentioned in a note.",
	Run: func(pass *Pass) error {
		m := pass.YAML
		decls := m.Anchors()
		for _, r := range m.Unresolved() {
			diag := Diagnostic{
				Message: fmt.Sprintf("alias %q has no anchor in this document", r.Name),
				Range:   r.Range,
			}
			for _, d := range decls {
				if d.Name == r.Name {
					diag.Notes = append(diag.Notes, fmt.Sprintf("an anchor %q is defined in document %d on line %d",
						d.Name, d.Scope+1, pass.Lines.Position(d.Range.Start).Line+1))
				}
			}
			pass.Report(diag)
		}
		return nil
	},
}

// AnalyzerSyntax reports parse errors for every language.
var AnalyzerSyntax = &Analyzer{
	Name:     "syntax",
	Severity: SeverityError,
	Doc:      "Report input the parser could not make sense of.\n\nBinding results near a syntax error may be incomplete: declarations or references whose name token is missing are skipped.",
	Run: func(pass *Pass) error {
		for _, e := range pass.ParseErrors {
			pass.Reportf(e.Range, "syntax error: %s", e.Message)
		}
		return nil
	},
}

// Builtins returns every built-in analyzer.
func Builtins() []*Analyzer {
	return []*Analyzer{
		AnalyzerSyntax,
		AnalyzerDuplicatePrefix,
		AnalyzerUnusedPrefix,
		AnalyzerUndefinedPrefix,
		AnalyzerDuplicateTriple,
		AnalyzerPreferPrefixedName,
		AnalyzerUndescribedLocalResource,
		AnalyzerDuplicateAnchor,
		AnalyzerUnusedAnchor,
		AnalyzerUndeclaredAlias,
	}
}
