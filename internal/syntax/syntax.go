// Package syntax is the narrow tree interface the semantic engine consumes:
// range-addressed nodes with a kind tag, a preorder Enter/Leave walk, and a
// fallible accessor for the token that names a declaration or reference.
//
// Two implementations live here. Elem is an in-memory lossless node used by
// hand-written parsers and by tests that feed synthetic trees. The tree-sitter
// adapter wraps smacker/go-tree-sitter nodes.
package syntax

import (
	"errors"
	"fmt"
)

// ErrMissingChild is returned by FindToken when a construct lacks the token
// that identifies it, which happens when the parse had errors.
var ErrMissingChild = errors.New("missing child")

// Range is a half-open byte range [Start, End) into the source.
type Range struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// NewRange returns the range [start, end).
func NewRange(start, end uint32) Range {
	return Range{Start: start, End: end}
}

// Len returns the number of bytes covered by r.
func (r Range) Len() uint32 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// IsEmpty reports whether r covers no bytes.
func (r Range) IsEmpty() bool { return r.Len() == 0 }

// Contains reports whether offset lies inside r.
func (r Range) Contains(offset uint32) bool {
	return offset >= r.Start && offset < r.End
}

// Cover returns the smallest range containing both r and o.
func (r Range) Cover(o Range) Range {
	return Range{Start: min(r.Start, o.Start), End: max(r.End, o.End)}
}

func (r Range) String() string {
	return fmt.Sprintf("%d..%d", r.Start, r.End)
}

// Kind tags a node. Tree-sitter grammars supply their node type names;
// hand-written parsers declare their own constants.
type Kind string

// Node is a read-only view of one syntax tree node.
type Node interface {
	Kind() Kind
	// Range is the trimmed range: leading and trailing trivia excluded.
	Range() Range
	// Text is the source text covered by Range.
	Text() string
	ChildCount() int
	Child(i int) Node
	// IsMissing reports a zero-width node inserted by error recovery.
	IsMissing() bool
	// IsError reports a bogus node wrapping unparseable input.
	IsError() bool
}

// Token is the identifying leaf of a declaration or reference construct.
type Token struct {
	Kind  Kind
	Text  string
	Range Range
}

// FindToken returns the first direct child of n whose kind is one of kinds.
// A child that is missing or zero-width counts as absent. The error wraps
// ErrMissingChild.
func FindToken(n Node, kinds ...Kind) (Token, error) {
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		for _, k := range kinds {
			if c.Kind() != k {
				continue
			}
			if c.IsMissing() || c.Range().IsEmpty() {
				return Token{}, fmt.Errorf("%s: %s: %w", n.Kind(), k, ErrMissingChild)
			}
			return Token{Kind: k, Text: c.Text(), Range: c.Range()}, nil
		}
	}
	return Token{}, fmt.Errorf("%s: %w", n.Kind(), ErrMissingChild)
}

// FirstChild returns the first direct child of n with the given kind.
func FirstChild(n Node, kind Kind) (Node, bool) {
	for i := 0; i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && c.Kind() == kind {
			return c, true
		}
	}
	return nil, false
}

// Children returns the direct children of n.
func Children(n Node) []Node {
	out := make([]Node, 0, n.ChildCount())
	for i := 0; i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}
