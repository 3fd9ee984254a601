package turtle

import (
	"strings"

	"github.com/jward/thicket/internal/binding"
	"github.com/jward/thicket/internal/syntax"
)

// Extractor emits prefix declarations and prefixed-name references. The
// whole file is scope 0.
type Extractor struct {
	q binding.Queue
}

var _ binding.Extractor = (*Extractor)(nil)

// NewExtractor returns an Extractor ready for one walk.
func NewExtractor() *Extractor { return &Extractor{} }

func (x *Extractor) Enter(n syntax.Node) {
	switch n.Kind() {
	case KindPrefixDeclaration, KindSparqlPrefix:
		ns, err := syntax.FindToken(n, TokPNameNS)
		if err != nil {
			return
		}
		var value string
		if iri, err := syntax.FindToken(n, TokIRIRef); err == nil {
			value = unwrapIRI(iri.Text)
		}
		x.q.Push(binding.Event{
			Kind:  binding.EventDeclaration,
			Name:  ns.Text,
			Value: value,
			Range: n.Range(),
		})
	case KindPrefixedName:
		tok, err := syntax.FindToken(n, TokPNameLN, TokPNameNS)
		if err != nil {
			return
		}
		x.q.Push(binding.Event{
			Kind:  binding.EventReference,
			Name:  namespaceOf(tok.Text),
			Range: n.Range(),
		})
	}
}

func (x *Extractor) Leave(syntax.Node) {}

func (x *Extractor) Pop() (binding.Event, bool) { return x.q.Pop() }

// isBindingNode selects the nodes Model.SyntaxOf can return.
func isBindingNode(n syntax.Node) bool {
	switch n.Kind() {
	case KindPrefixDeclaration, KindSparqlPrefix, KindPrefixedName:
		return true
	}
	return false
}

// namespaceOf returns the "ns:" part of a prefixed name, colon included.
func namespaceOf(pname string) string {
	if i := strings.IndexByte(pname, ':'); i >= 0 {
		return pname[:i+1]
	}
	return pname
}

func unwrapIRI(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, "<"), ">")
}
