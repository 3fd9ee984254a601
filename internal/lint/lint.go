// Package lint runs analyzers over analysed documents. Analyzers are thin
// queries against the shared, immutable binding model; they never walk the
// source themselves unless they need syntax the model does not index.
package lint

import (
	"context"
	"fmt"
	"strings"

	"github.com/jward/thicket/internal/binding"
	"github.com/jward/thicket/internal/syntax"
	"github.com/jward/thicket/internal/turtle"
	"github.com/jward/thicket/internal/yamldoc"
)

// Languages understood by the built-in analyzers.
const (
	LangTurtle = "turtle"
	LangYAML   = "yaml"
)

// Severity ranks diagnostics. The zero value means "use the analyzer's
// default".
type Severity int

const (
	SeverityInfo Severity = iota + 1
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity parses "info", "warning" or "error".
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}
	return 0, fmt.Errorf("lint: unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Analyzer is one lint rule.
type Analyzer struct {
	Name string
	// Language restricts the analyzer to one language; empty means all.
	Language string
	Severity Severity
	Doc      string
	Run      func(*Pass) error
}

// TextEdit replaces Range with NewText.
type TextEdit struct {
	Range   syntax.Range `json:"range"`
	NewText string       `json:"new_text"`
}

// Fix is a suggested set of edits.
type Fix struct {
	Description string     `json:"description"`
	Edits       []TextEdit `json:"edits"`
}

// Diagnostic is one finding. Start and End are 0-based.
type Diagnostic struct {
	Rule     string          `json:"rule"`
	Severity Severity        `json:"severity"`
	Message  string          `json:"message"`
	Range    syntax.Range    `json:"range"`
	Start    syntax.Position `json:"start"`
	End      syntax.Position `json:"end"`
	Notes    []string        `json:"notes,omitempty"`
	Fix      *Fix            `json:"fix,omitempty"`
}

// Document is everything an analyzer may look at. Exactly one of Turtle and
// YAML is set, matching Language.
type Document struct {
	Path        string
	Language    string
	Source      []byte
	Root        syntax.Node
	Turtle      *turtle.Model
	YAML        *yamldoc.Model
	ParseErrors []syntax.ParseError
}

// Bindings returns the language-neutral model of d.
func (d *Document) Bindings() *binding.Model {
	switch {
	case d.Turtle != nil:
		return d.Turtle.Bindings()
	case d.YAML != nil:
		return d.YAML.Bindings()
	}
	return nil
}

// Pass is the per-analyzer view of a document.
type Pass struct {
	*Document
	Analyzer *Analyzer
	Lines    *syntax.LineIndex

	ctx    context.Context
	report func(Diagnostic)
}

// Context returns the context of the lint run.
func (p *Pass) Context() context.Context {
	if p.ctx == nil {
		return context.Background()
	}
	return p.ctx
}

// Report records d, filling in the rule, default severity and positions.
func (p *Pass) Report(d Diagnostic) {
	d.Rule = p.Analyzer.Name
	if d.Severity == 0 {
		d.Severity = p.Analyzer.Severity
	}
	d.Start = p.Lines.Position(d.Range.Start)
	d.End = p.Lines.Position(d.Range.End)
	p.report(d)
}

// Reportf reports a diagnostic at r with a formatted message.
func (p *Pass) Reportf(r syntax.Range, format string, args ...any) {
	p.Report(Diagnostic{Range: r, Message: fmt.Sprintf(format, args...)})
}

// Text returns the source covered by r.
func (p *Pass) Text(r syntax.Range) string {
	if int(r.End) > len(p.Source) || r.End < r.Start {
		return ""
	}
	return string(p.Source[r.Start:r.End])
}

// removal returns an edit deleting r. When r is alone on its line the whole
// line goes, newline included.
func removal(src []byte, r syntax.Range) TextEdit {
	start, end := int(r.Start), int(r.End)
	ls := start
	for ls > 0 && (src[ls-1] == ' ' || src[ls-1] == '\t') {
		ls--
	}
	le := end
	for le < len(src) && (src[le] == ' ' || src[le] == '\t') {
		le++
	}
	if (ls == 0 || src[ls-1] == '\n') && (le == len(src) || src[le] == '\n') {
		if le < len(src) {
			le++
		}
		return TextEdit{Range: syntax.NewRange(uint32(ls), uint32(le))}
	}
	// Mid-line: take one trailing space with it.
	if end < len(src) && src[end] == ' ' {
		end++
	}
	return TextEdit{Range: syntax.NewRange(uint32(start), uint32(end))}
}

// TurtleDocument adapts an analysed Turtle document.
func TurtleDocument(path string, d *turtle.Document) *Document {
	return &Document{
		Path:        path,
		Language:    LangTurtle,
		Source:      d.Source,
		Root:        d.Root,
		Turtle:      d.Model,
		ParseErrors: d.ParseErrors(),
	}
}

// YAMLDocument adapts an analysed YAML stream. The caller keeps ownership of
// d and must not close it before analyzers are done.
func YAMLDocument(path string, d *yamldoc.Document) *Document {
	return &Document{
		Path:        path,
		Language:    LangYAML,
		Source:      d.Source,
		Root:        d.Root,
		YAML:        d.Model,
		ParseErrors: d.ParseErrors(),
	}
}
