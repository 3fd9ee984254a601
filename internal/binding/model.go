package binding

import (
	"slices"

	"github.com/jward/thicket/internal/syntax"
)

// modelData is the frozen result of Build. Nothing writes to it afterwards,
// which is what makes Model safe for concurrent readers.
type modelData struct {
	decls      []Declaration
	canonical  map[Key]int
	refs       []Reference
	refToDecl  []int   // reference index → declaration index, -1 if unresolved
	usages     [][]int // declaration index → reference indices, document order
	unresolved []int
	unused     []int
	duplicates []Duplicate
	nodes      map[syntax.Range]syntax.Node
	scopes     int
}

// Model is the read-only query surface over one document's bindings.
// Copies of a Model share the same data; pass *Model or Model freely between
// goroutines.
type Model struct {
	data *modelData
}

// Resolve returns the canonical declaration bound to (name, scope).
// Duplicates are never resolution targets.
func (m *Model) Resolve(name string, scope ScopeID) (Declaration, bool) {
	idx, ok := m.data.canonical[Key{Name: name, Scope: scope}]
	if !ok {
		return Declaration{}, false
	}
	return m.data.decls[idx], true
}

// ResolveReference returns the declaration ref resolved to at build time.
func (m *Model) ResolveReference(ref Reference) (Declaration, bool) {
	return m.Resolve(ref.Name, ref.Scope)
}

// IsUsed reports whether the canonical declaration of (name, scope) has at
// least one reference. Unknown keys are not used.
func (m *Model) IsUsed(name string, scope ScopeID) bool {
	idx, ok := m.data.canonical[Key{Name: name, Scope: scope}]
	return ok && len(m.data.usages[idx]) > 0
}

// Declarations returns the canonical declarations in document order.
func (m *Model) Declarations() []Declaration {
	return slices.Clone(m.data.decls)
}

// References returns every reference in document order.
func (m *Model) References() []Reference {
	return slices.Clone(m.data.refs)
}

// Unused returns canonical declarations with no references.
func (m *Model) Unused() []Declaration {
	out := make([]Declaration, 0, len(m.data.unused))
	for _, i := range m.data.unused {
		out = append(out, m.data.decls[i])
	}
	return out
}

// Duplicates returns one summary per binding key that was declared more
// than once.
func (m *Model) Duplicates() []Duplicate {
	out := make([]Duplicate, len(m.data.duplicates))
	for i, d := range m.data.duplicates {
		d.Ranges = slices.Clone(d.Ranges)
		d.Values = slices.Clone(d.Values)
		out[i] = d
	}
	return out
}

// Unresolved returns references with no canonical declaration in their
// scope, in document order.
func (m *Model) Unresolved() []Reference {
	out := make([]Reference, 0, len(m.data.unresolved))
	for _, i := range m.data.unresolved {
		out = append(out, m.data.refs[i])
	}
	return out
}

// UsagesOf returns the references resolved to decl. A declaration that is not
// canonical for its key has no usages.
func (m *Model) UsagesOf(decl Declaration) []Reference {
	idx, ok := m.data.canonical[decl.Key()]
	if !ok || m.data.decls[idx].Range != decl.Range {
		return nil
	}
	out := make([]Reference, 0, len(m.data.usages[idx]))
	for _, r := range m.data.usages[idx] {
		out = append(out, m.data.refs[r])
	}
	return out
}

// IsResolved reports whether ref has a canonical declaration.
func (m *Model) IsResolved(ref Reference) bool {
	_, ok := m.data.canonical[ref.Key()]
	return ok
}

// SyntaxOf returns the declaration or reference node recorded at r.
func (m *Model) SyntaxOf(r syntax.Range) (syntax.Node, bool) {
	n, ok := m.data.nodes[r]
	return n, ok
}

// Scopes returns the number of scopes observed while building.
func (m *Model) Scopes() int { return m.data.scopes }

// Stats summarises the model's sizes.
type Stats struct {
	Declarations int
	References   int
	Unresolved   int
	Unused       int
	Duplicates   int
}

// Stats returns counts for logging and metrics.
func (m *Model) Stats() Stats {
	dupes := 0
	for _, d := range m.data.duplicates {
		dupes += len(d.Ranges)
	}
	return Stats{
		Declarations: len(m.data.decls),
		References:   len(m.data.refs),
		Unresolved:   len(m.data.unresolved),
		Unused:       len(m.data.unused),
		Duplicates:   dupes,
	}
}
