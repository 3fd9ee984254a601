package lint

import (
	"fmt"
	"strings"

	"github.com/jward/thicket/internal/syntax"
	"github.com/jward/thicket/internal/turtle"
)

// AnalyzerDuplicatePrefix reports prefixes declared more than once.
var AnalyzerDuplicatePrefix = &Analyzer{
	Name:     "duplicate-prefix",
	Language: LangTurtle,
	Severity: SeverityWarning,
	Doc:      "Report a prefix declared more than once in a file.\n\nThe first declaration is the one prefixed names resolve to. A later declaration with the same namespace is redundant; one with a different namespace is misleading.",
	Run: func(pass *Pass) error {
		m := pass.Turtle
		for _, d := range m.Duplicates() {
			canonical, _ := m.Resolve(d.Name, d.Scope)
			first := pass.Lines.Position(d.Canonical.Start)
			for i, r := range d.Ranges {
				diag := Diagnostic{
					Message: fmt.Sprintf("prefix %q is already declared", d.Name),
					Range:   r,
					Notes:   []string{fmt.Sprintf("first declared on line %d", first.Line+1)},
				}
				if ns := d.Values[i]; ns != canonical.Value {
					diag.Message = fmt.Sprintf("prefix %q is redeclared with a different namespace", d.Name)
					diag.Notes = append(diag.Notes, fmt.Sprintf("names resolve to <%s>, not <%s>", canonical.Value, ns))
				} else {
					diag.Fix = &Fix{
						Description: "Remove the duplicate declaration",
						Edits:       []TextEdit{removal(pass.Source, r)},
					}
				}
				pass.Report(diag)
			}
		}
		return nil
	},
}

// AnalyzerUnusedPrefix reports prefixes no prefixed name uses.
var AnalyzerUnusedPrefix = &Analyzer{
	Name:     "unused-prefix",
	Language: LangTurtle,
	Severity: SeverityWarning,
	Doc:      "Report a prefix that no prefixed name in the file uses.",
	Run: func(pass *Pass) error {
		wanted := make(map[string]bool)
		for _, c := range contractions(pass) {
			wanted[c.prefix] = true
		}
		for _, d := range pass.Turtle.Unused() {
			diag := Diagnostic{
				Message: fmt.Sprintf("prefix %q is declared but never used", d.Name),
				Range:   d.Range,
			}
			// prefer-prefixed-name may start using it, so keep it.
			if wanted[d.Name] {
				diag.Notes = []string{"full IRIs in this file can be written with this prefix"}
			} else {
				diag.Fix = &Fix{
					Description: "Remove the unused declaration",
					Edits:       []TextEdit{removal(pass.Source, d.Range)},
				}
			}
			pass.Report(diag)
		}
		return nil
	},
}

// AnalyzerUndefinedPrefix reports prefixed names whose prefix is never
// declared.
var AnalyzerUndefinedPrefix = &Analyzer{
	Name:     "undefined-prefix",
	Language: LangTurtle,
	Severity: SeverityError,
	Doc:      "Report a prefixed name whose prefix is not declared anywhere in the file.\n\nWell-known prefixes such as rdf: or foaf: come with a fix that adds the declaration.",
	Run: func(pass *Pass) error {
		known := turtle.WellKnownPrefixes()
		unresolved := pass.Turtle.Unresolved()

		// Every missing well-known prefix goes into one insertion at the
		// top of the file; each fixable diagnostic carries that same edit.
		var (
			header   strings.Builder
			declared = make(map[string]bool)
		)
		for _, r := range unresolved {
			if ns, ok := known[r.Name]; ok && !declared[r.Name] {
				declared[r.Name] = true
				header.WriteString(turtle.DeclarationFor(r.Name, ns))
			}
		}
		insert := TextEdit{Range: syntax.NewRange(0, 0), NewText: header.String()}

		for _, r := range unresolved {
			diag := Diagnostic{
				Message: fmt.Sprintf("prefix %q is not declared", r.Name),
				Range:   r.Range,
			}
			if ns, ok := known[r.Name]; ok {
				diag.Fix = &Fix{
					Description: fmt.Sprintf("Declare %s as <%s>", r.Name, ns),
					Edits:       []TextEdit{insert},
				}
			}
			pass.Report(diag)
		}
		return nil
	},
}

// AnalyzerDuplicateTriple reports a statement asserted twice. Terms are
// compared after expanding prefixed names, so ex:a and <http://ex/a> match.
var AnalyzerDuplicateTriple = &Analyzer{
	Name:     "duplicate-triple",
	Language: LangTurtle,
	Severity: SeverityWarning,
	Doc:      "Report a triple that is asserted more than once.",
	Run: func(pass *Pass) error {
		m := pass.Turtle
		seen := make(map[[3]string]syntax.Range)
		for _, t := range m.Triples() {
			pred := t.Predicate
			if t.IsRDFType {
				pred = turtle.RDFType
			}
			key := [3]string{canonicalTerm(m, t.Subject), canonicalTerm(m, pred), canonicalTerm(m, t.Object)}
			first, dup := seen[key]
			if !dup {
				seen[key] = t.StatementRange
				continue
			}
			pass.Report(Diagnostic{
				Message: fmt.Sprintf("duplicate triple %s %s %s", t.Subject, t.Predicate, t.Object),
				Range:   t.StatementRange,
				Notes:   []string{fmt.Sprintf("first asserted on line %d", pass.Lines.Position(first.Start).Line+1)},
			})
		}
		return nil
	},
}

// AnalyzerPreferPrefixedName suggests contracting full IRIs with a declared
// prefix.
var AnalyzerPreferPrefixedName = &Analyzer{
	Name:     "prefer-prefixed-name",
	Language: LangTurtle,
	Severity: SeverityInfo,
	Doc:      "Suggest writing a full IRI as a prefixed name when a declared prefix covers it.\n\nWhen several declared namespaces match, the first declared one is used and the others are listed.",
	Run: func(pass *Pass) error {
		m := pass.Turtle
		for _, c := range contractions(pass) {
			iri, pname := c.iri, c.pname
			diag := Diagnostic{
				Message: fmt.Sprintf("<%s> can be written as %s", iri, pname),
				Range:   c.rng,
				Fix: &Fix{
					Description: "Use " + pname,
					Edits:       []TextEdit{{Range: c.rng, NewText: pname}},
				},
			}
			if cands := m.ContractCandidates(iri); len(cands) > 1 {
				for _, alt := range cands[1:] {
					diag.Notes = append(diag.Notes, fmt.Sprintf("%s also matches; the first declared prefix wins", alt.PrefixedName))
				}
			}
			pass.Report(diag)
		}
		return nil
	},
}

// AnalyzerUndescribedLocalResource reports resources in the file's own
// namespace (the empty prefix) that are used as objects but never appear as
// a subject.
var AnalyzerUndescribedLocalResource = &Analyzer{
	Name:     "undescribed-local-resource",
	Language: LangTurtle,
	Severity: SeverityInfo,
	Doc:      "Report a resource written with the empty prefix (:name) that is used as an object but never described as a subject.\n\nObjects of rdf:type are classes and are not reported.",
	Run: func(pass *Pass) error {
		m := pass.Turtle
		if _, ok := m.Resolve(":", 0); !ok {
			return nil
		}
		reported := make(map[string]bool)
		refs := m.PrefixReferences()
		for _, t := range m.Triples() {
			obj := t.Object
			if t.IsRDFType || !strings.HasPrefix(obj, ":") || reported[obj] || m.HasSubject(obj) {
				continue
			}
			reported[obj] = true
			rng := t.StatementRange
			for _, r := range refs {
				if r.Name == ":" && r.Range.Start >= rng.Start && r.Range.End <= rng.End && pass.Text(r.Range) == obj {
					rng = r.Range
					break
				}
			}
			pass.Reportf(rng, "%s is referenced but never described", obj)
		}
		return nil
	},
}

// contraction is a full IRI that a declared prefix can shorten.
type contraction struct {
	rng    syntax.Range
	iri    string
	pname  string
	prefix string
}

// contractions lists, in document order, the IRIs prefer-prefixed-name
// would rewrite.
func contractions(pass *Pass) []contraction {
	var out []contraction
	for n := range syntax.Descendants(pass.Root) {
		if n.Kind() != turtle.KindIRI || n.IsMissing() {
			continue
		}
		iri := strings.TrimSuffix(strings.TrimPrefix(n.Text(), "<"), ">")
		pname, ok := pass.Turtle.ContractIRI(iri)
		if !ok {
			continue
		}
		colon := strings.IndexByte(pname, ':')
		if !validLocalName(pname[colon+1:]) {
			continue
		}
		out = append(out, contraction{rng: n.Range(), iri: iri, pname: pname, prefix: pname[:colon+1]})
	}
	return out
}

func canonicalTerm(m *turtle.Model, term string) string {
	switch {
	case strings.HasPrefix(term, "<"):
		return strings.TrimSuffix(strings.TrimPrefix(term, "<"), ">")
	case strings.HasPrefix(term, "\""), strings.HasPrefix(term, "'"):
		return term
	}
	if iri, ok := m.ExpandPrefixedName(term); ok {
		return iri
	}
	return term
}

// validLocalName accepts the conservative subset of PN_LOCAL that needs no
// escaping.
func validLocalName(s string) bool {
	if s == "" || s[0] == '-' || s[0] == '.' || s[len(s)-1] == '.' {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_' || c == '-' || c == '.':
		default:
			return false
		}
	}
	return true
}
