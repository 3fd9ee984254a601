// Package yamldoc builds the anchor/alias binding model of a YAML stream.
// Every document in the stream is its own scope: an alias never resolves to
// an anchor declared in a different document.
package yamldoc

import (
	"strings"

	"github.com/jward/thicket/internal/binding"
	"github.com/jward/thicket/internal/syntax"
)

// Tree-sitter YAML node kinds the extractor reacts to.
const (
	KindStream     syntax.Kind = "stream"
	KindDocument   syntax.Kind = "document"
	KindAnchor     syntax.Kind = "anchor"
	KindAnchorName syntax.Kind = "anchor_name"
	KindAlias      syntax.Kind = "alias"
	KindAliasName  syntax.Kind = "alias_name"
)

// Extractor emits anchors as declarations and aliases as references, scoped
// by document.
type Extractor struct {
	q          binding.Queue
	scope      binding.ScopeID
	inDocument bool
}

var _ binding.Extractor = (*Extractor)(nil)

// NewExtractor returns an Extractor positioned at the first document.
func NewExtractor() *Extractor { return &Extractor{} }

func (x *Extractor) Enter(n syntax.Node) {
	switch n.Kind() {
	case KindDocument:
		x.inDocument = true
	case KindAnchor:
		if name, ok := identifier(n, KindAnchorName, "&"); ok {
			x.q.Push(binding.Event{Kind: binding.EventDeclaration, Name: name, Range: n.Range(), Scope: x.scope})
		}
	case KindAlias:
		if name, ok := identifier(n, KindAliasName, "*"); ok {
			x.q.Push(binding.Event{Kind: binding.EventReference, Name: name, Range: n.Range(), Scope: x.scope})
		}
	}
}

func (x *Extractor) Leave(n syntax.Node) {
	if n.Kind() == KindDocument {
		x.scope++
		x.inDocument = false
	}
}

func (x *Extractor) Pop() (binding.Event, bool) { return x.q.Pop() }

// Documents returns how many documents the walk has left so far.
func (x *Extractor) Documents() int { return int(x.scope) }

// identifier reads the name of an anchor or alias. Grammar versions differ:
// newer ones split out a name child, older ones emit a single "&name" leaf.
func identifier(n syntax.Node, nameKind syntax.Kind, sigil string) (string, bool) {
	if tok, err := syntax.FindToken(n, nameKind); err == nil {
		return tok.Text, true
	}
	if n.ChildCount() > 0 || n.IsMissing() {
		return "", false
	}
	name := strings.TrimPrefix(n.Text(), sigil)
	if name == "" || name == n.Text() {
		return "", false
	}
	return name, true
}

func isBindingNode(n syntax.Node) bool {
	k := n.Kind()
	return k == KindAnchor || k == KindAlias
}
