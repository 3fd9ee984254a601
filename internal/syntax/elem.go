package syntax

// Elem is an in-memory syntax node. Leaves carry their source text; inner
// nodes derive it from their children's ranges and the shared source.
type Elem struct {
	kind     Kind
	rng      Range
	text     string
	children []*Elem
	missing  bool
	bogus    bool
}

// Compile-time check: *Elem satisfies Node.
var _ Node = (*Elem)(nil)

// NewLeaf creates a token node covering rng with the given text.
func NewLeaf(kind Kind, rng Range, text string) *Elem {
	return &Elem{kind: kind, rng: rng, text: text}
}

// NewMissing creates a zero-width placeholder for a token the parser expected
// at offset but did not find.
func NewMissing(kind Kind, offset uint32) *Elem {
	return &Elem{kind: kind, rng: Range{Start: offset, End: offset}, missing: true}
}

// NewNode creates an inner node spanning its children. src is the full
// document source; it is sliced to produce Text.
func NewNode(kind Kind, src []byte, children ...*Elem) *Elem {
	e := &Elem{kind: kind, children: children}
	e.rng = spanOf(children)
	if int(e.rng.End) <= len(src) {
		e.text = string(src[e.rng.Start:e.rng.End])
	}
	return e
}

// NewError creates a bogus node wrapping tokens the parser could not place.
func NewError(src []byte, children ...*Elem) *Elem {
	e := NewNode("error", src, children...)
	e.bogus = true
	return e
}

func spanOf(children []*Elem) Range {
	var (
		r   Range
		set bool
	)
	for _, c := range children {
		if c == nil || c.missing {
			continue
		}
		if !set {
			r, set = c.rng, true
			continue
		}
		r = r.Cover(c.rng)
	}
	if !set {
		// All children missing: collapse onto the first placeholder.
		for _, c := range children {
			if c != nil {
				return Range{Start: c.rng.Start, End: c.rng.Start}
			}
		}
	}
	return r
}

func (e *Elem) Kind() Kind { return e.kind }
func (e *Elem) Range() Range { return e.rng }
func (e *Elem) Text() string { return e.text }
func (e *Elem) ChildCount() int { return len(e.children) }
func (e *Elem) IsMissing() bool { return e.missing }
func (e *Elem) IsError() bool { return e.bogus }
func (e *Elem) Elems() []*Elem { return e.children }

func (e *Elem) Child(i int) Node {
	if i < 0 || i >= len(e.children) || e.children[i] == nil {
		return nil
	}
	return e.children[i]
}

// Append adds children to e and widens its range. Parsers use it while a
// node is still under construction.
func (e *Elem) Append(src []byte, children ...*Elem) {
	e.children = append(e.children, children...)
	e.rng = spanOf(e.children)
	if int(e.rng.End) <= len(src) {
		e.text = string(src[e.rng.Start:e.rng.End])
	}
}
