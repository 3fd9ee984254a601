package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// tsNode adapts a tree-sitter node. smacker/go-tree-sitter nodes do not keep
// a reference to their source, so the adapter carries it.
type tsNode struct {
	n   *sitter.Node
	src []byte
}

// FromTreeSitter wraps a tree-sitter node parsed from src. It returns nil for
// a nil node so callers can chain Child lookups.
func FromTreeSitter(n *sitter.Node, src []byte) Node {
	if n == nil || n.IsNull() {
		return nil
	}
	return &tsNode{n: n, src: src}
}

// TreeSitterNode returns the underlying tree-sitter node of an adapted Node.
func TreeSitterNode(n Node) (*sitter.Node, bool) {
	t, ok := n.(*tsNode)
	if !ok {
		return nil, false
	}
	return t.n, true
}

func (t *tsNode) Kind() Kind { return Kind(t.n.Type()) }

func (t *tsNode) Range() Range {
	return Range{Start: t.n.StartByte(), End: t.n.EndByte()}
}

func (t *tsNode) Text() string {
	r := t.Range()
	if int(r.End) > len(t.src) || r.End < r.Start {
		return ""
	}
	return string(t.src[r.Start:r.End])
}

func (t *tsNode) ChildCount() int { return int(t.n.ChildCount()) }

func (t *tsNode) Child(i int) Node {
	if i < 0 || i >= t.ChildCount() {
		return nil
	}
	return FromTreeSitter(t.n.Child(i), t.src)
}

func (t *tsNode) IsMissing() bool { return t.n.IsMissing() }

func (t *tsNode) IsError() bool { return t.n.Type() == "ERROR" }
