package turtle

import (
	"fmt"
	"strings"

	"github.com/jward/thicket/internal/binding"
	"github.com/jward/thicket/internal/syntax"
)

type (
	// PrefixBinding is a declared prefix. Name includes the trailing colon
	// and Value holds the namespace IRI.
	PrefixBinding = binding.Declaration
	// PrefixReference is a prefixed name's use of its prefix.
	PrefixReference = binding.Reference
)

// Triple is one subject/predicate/object statement, terms as written.
// Anonymous blank nodes are labelled "_:b<offset>" after their start offset.
type Triple struct {
	Subject        string
	Predicate      string
	Object         string
	StatementRange syntax.Range
	IsRDFType      bool
}

// Contraction is one way to shorten an IRI with a declared prefix.
type Contraction struct {
	Prefix       string
	Namespace    string
	PrefixedName string
}

// Model is the prefix binding model of one Turtle document plus its triple
// index. Like binding.Model it is immutable and safe for concurrent use.
type Model struct {
	*binding.Model
	triples   []Triple
	bySubject map[string][]int
}

// Build runs the extractor over root and indexes its triples.
func Build(root syntax.Node) *Model {
	m := &Model{
		Model:     binding.Analyze(root, NewExtractor(), isBindingNode),
		bySubject: make(map[string][]int),
	}
	c := tripleCollector{m: m}
	for i := 0; i < root.ChildCount(); i++ {
		if st := root.Child(i); st != nil && st.Kind() == KindTriples {
			c.statement(st)
		}
	}
	m.triples = c.out
	for i, t := range m.triples {
		m.bySubject[t.Subject] = append(m.bySubject[t.Subject], i)
	}
	return m
}

// Bindings returns the language-neutral model.
func (m *Model) Bindings() *binding.Model { return m.Model }

// Prefixes returns the canonical prefix declarations in document order.
func (m *Model) Prefixes() []PrefixBinding { return m.Declarations() }

// PrefixReferences returns every prefixed-name use in document order.
func (m *Model) PrefixReferences() []PrefixReference { return m.References() }

// Triples returns all triples in document order.
func (m *Model) Triples() []Triple {
	out := make([]Triple, len(m.triples))
	copy(out, m.triples)
	return out
}

// TriplesFor returns the triples whose subject is written as subject.
func (m *Model) TriplesFor(subject string) []Triple {
	idx := m.bySubject[subject]
	out := make([]Triple, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.triples[i])
	}
	return out
}

// HasSubject reports whether any triple has subject as its subject.
func (m *Model) HasSubject(subject string) bool {
	return len(m.bySubject[subject]) > 0
}

// ContractCandidates returns every declared prefix whose namespace is a
// strict, non-empty prefix of iri, in declaration order. More than one
// candidate means the declared namespaces nest.
func (m *Model) ContractCandidates(iri string) []Contraction {
	var out []Contraction
	for _, d := range m.Declarations() {
		if d.Value == "" || len(iri) <= len(d.Value) || !strings.HasPrefix(iri, d.Value) {
			continue
		}
		out = append(out, Contraction{
			Prefix:       d.Name,
			Namespace:    d.Value,
			PrefixedName: d.Name + iri[len(d.Value):],
		})
	}
	return out
}

// ContractIRI shortens iri with the first declared matching prefix. When
// namespaces nest, declaration order decides, not match length.
func (m *Model) ContractIRI(iri string) (string, bool) {
	for _, d := range m.Declarations() {
		if d.Value != "" && len(iri) > len(d.Value) && strings.HasPrefix(iri, d.Value) {
			return d.Name + iri[len(d.Value):], true
		}
	}
	return "", false
}

// ExpandPrefixedName is the inverse of ContractIRI: it splits pname at the
// first colon and appends the local part to the declared namespace.
func (m *Model) ExpandPrefixedName(pname string) (string, bool) {
	i := strings.IndexByte(pname, ':')
	if i < 0 {
		return "", false
	}
	d, ok := m.Resolve(pname[:i+1], 0)
	if !ok || d.Value == "" {
		return "", false
	}
	return d.Value + pname[i+1:], true
}

type tripleCollector struct {
	m   *Model
	out []Triple
}

func (c *tripleCollector) statement(st syntax.Node) {
	subj := st.Child(0)
	if subj == nil || subj.IsMissing() {
		return
	}
	label := termLabel(subj)
	rng := st.Range()
	if pol, ok := syntax.FirstChild(st, KindPredicateObjectList); ok {
		c.predicateObjects(label, pol, rng)
	}
	c.nested(subj, rng)
}

func (c *tripleCollector) predicateObjects(subject string, pol syntax.Node, rng syntax.Range) {
	var verb syntax.Node
	for _, child := range syntax.Children(pol) {
		switch child.Kind() {
		case KindVerbA, KindIRI, KindPrefixedName:
			if child.IsMissing() {
				verb = nil
				continue
			}
			verb = child
		case KindObjectList:
			if verb == nil {
				continue
			}
			for _, obj := range syntax.Children(child) {
				if obj.Kind() == TokComma || obj.IsMissing() {
					continue
				}
				c.out = append(c.out, Triple{
					Subject:        subject,
					Predicate:      verb.Text(),
					Object:         termLabel(obj),
					StatementRange: rng,
					IsRDFType:      c.isRDFType(verb),
				})
				c.nested(obj, rng)
			}
		}
	}
}

// nested indexes the triples inside blank node property lists and
// collections reachable from term.
func (c *tripleCollector) nested(term syntax.Node, rng syntax.Range) {
	switch term.Kind() {
	case KindBlankNodePropertyList:
		if pol, ok := syntax.FirstChild(term, KindPredicateObjectList); ok {
			c.predicateObjects(termLabel(term), pol, rng)
		}
	case KindCollection:
		for _, item := range syntax.Children(term) {
			c.nested(item, rng)
		}
	}
}

func (c *tripleCollector) isRDFType(verb syntax.Node) bool {
	switch verb.Kind() {
	case KindVerbA:
		return true
	case KindIRI:
		return unwrapIRI(verb.Text()) == RDFType
	case KindPrefixedName:
		iri, ok := c.m.ExpandPrefixedName(verb.Text())
		return ok && iri == RDFType
	}
	return false
}

func termLabel(n syntax.Node) string {
	switch n.Kind() {
	case KindBlankNodePropertyList:
		return fmt.Sprintf("_:b%d", n.Range().Start)
	case KindBlankNode:
		if strings.HasPrefix(n.Text(), "[") {
			return fmt.Sprintf("_:b%d", n.Range().Start)
		}
	}
	return n.Text()
}
