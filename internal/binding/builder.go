package binding

import (
	"github.com/jward/thicket/internal/syntax"
)

// Builder accumulates events for one document. It is single-owner and
// becomes unusable once Build has been called.
type Builder struct {
	decls     []Declaration
	canonical map[Key]int

	// dupes holds re-declarations per key; dupOrder records keys in the
	// order their first duplicate appeared.
	dupes    map[Key][]Declaration
	dupOrder []Key

	refs  []Reference
	nodes map[syntax.Range]syntax.Node

	maxScope ScopeID
	sawScope bool
	built    bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		canonical: make(map[Key]int),
		dupes:     make(map[Key][]Declaration),
		nodes:     make(map[syntax.Range]syntax.Node),
	}
}

func (b *Builder) mustBeOpen(op string) {
	if b.built {
		panic("binding: " + op + " after Build")
	}
}

// PushNode makes n addressable through Model.SyntaxOf. Only declaration and
// reference nodes are pushed; no two of them share a range.
func (b *Builder) PushNode(n syntax.Node) {
	b.mustBeOpen("PushNode")
	b.nodes[n.Range()] = n
}

// PushEvent records ev. Declarations are registered immediately; references
// are buffered until Build so that forward references resolve.
func (b *Builder) PushEvent(ev Event) {
	b.mustBeOpen("PushEvent")
	b.observeScope(ev.Scope)

	switch ev.Kind {
	case EventDeclaration:
		key := Key{Name: ev.Name, Scope: ev.Scope}
		if _, ok := b.canonical[key]; ok {
			if _, seen := b.dupes[key]; !seen {
				b.dupOrder = append(b.dupOrder, key)
			}
			b.dupes[key] = append(b.dupes[key], Declaration{Name: ev.Name, Value: ev.Value, Range: ev.Range, Scope: ev.Scope})
			return
		}
		b.canonical[key] = len(b.decls)
		b.decls = append(b.decls, Declaration{
			Name:  ev.Name,
			Value: ev.Value,
			Range: ev.Range,
			Scope: ev.Scope,
		})
	case EventReference:
		b.refs = append(b.refs, Reference{Name: ev.Name, Range: ev.Range, Scope: ev.Scope})
	}
}

// ObserveScope records that scope exists even if it holds no names, so that
// Model.Scopes counts empty documents.
func (b *Builder) ObserveScope(scope ScopeID) {
	b.mustBeOpen("ObserveScope")
	b.observeScope(scope)
}

func (b *Builder) observeScope(scope ScopeID) {
	if !b.sawScope || scope > b.maxScope {
		b.maxScope = scope
		b.sawScope = true
	}
}

// Build resolves every buffered reference and freezes the indices into a
// Model. The Builder must not be used afterwards.
func (b *Builder) Build() *Model {
	b.mustBeOpen("Build")
	b.built = true

	d := &modelData{
		decls:     b.decls,
		canonical: b.canonical,
		refs:      b.refs,
		refToDecl: make([]int, len(b.refs)),
		usages:    make([][]int, len(b.decls)),
		nodes:     b.nodes,
	}
	if b.sawScope {
		d.scopes = int(b.maxScope) + 1
	}

	for i, ref := range b.refs {
		idx, ok := b.canonical[ref.Key()]
		if !ok {
			d.refToDecl[i] = -1
			d.unresolved = append(d.unresolved, i)
			continue
		}
		d.refToDecl[i] = idx
		d.usages[idx] = append(d.usages[idx], i)
	}

	for i := range d.decls {
		if len(d.usages[i]) == 0 {
			d.unused = append(d.unused, i)
		}
	}

	d.duplicates = make([]Duplicate, 0, len(b.dupOrder))
	for _, key := range b.dupOrder {
		dup := Duplicate{
			Name:      key.Name,
			Scope:     key.Scope,
			Canonical: b.decls[b.canonical[key]].Range,
		}
		for _, rd := range b.dupes[key] {
			dup.Ranges = append(dup.Ranges, rd.Range)
			dup.Values = append(dup.Values, rd.Value)
		}
		d.duplicates = append(d.duplicates, dup)
	}

	b.decls, b.refs, b.canonical, b.dupes, b.dupOrder, b.nodes = nil, nil, nil, nil, nil, nil
	return &Model{data: d}
}
