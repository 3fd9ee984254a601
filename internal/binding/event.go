// Package binding is the language-neutral name resolution engine. A
// per-language Extractor turns a preorder tree walk into a flat stream of
// declaration and reference events; a Builder folds the stream into indices;
// Build finalizes them into an immutable Model that any number of goroutines
// may query without locking.
package binding

import (
	"fmt"

	"github.com/jward/thicket/internal/syntax"
)

// ScopeID isolates name resolution. Turtle files use scope 0 throughout;
// YAML streams advance the scope once per document.
type ScopeID uint32

// Key is the binding key. Only one canonical declaration exists per key.
type Key struct {
	Name  string
	Scope ScopeID
}

func (k Key) String() string { return fmt.Sprintf("%s@%d", k.Name, k.Scope) }

// EventKind distinguishes the two event variants.
type EventKind uint8

const (
	EventDeclaration EventKind = iota + 1
	EventReference
)

func (k EventKind) String() string {
	switch k {
	case EventDeclaration:
		return "declaration"
	case EventReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Event is one extractor output. Value is only meaningful for declarations
// and holds what the name is bound to, e.g. a Turtle namespace IRI.
type Event struct {
	Kind  EventKind
	Name  string
	Value string
	Range syntax.Range
	Scope ScopeID
}

// Declaration is a recorded declaring construct.
type Declaration struct {
	Name  string
	Value string
	Range syntax.Range
	Scope ScopeID
}

// Key returns the binding key of d.
func (d Declaration) Key() Key { return Key{Name: d.Name, Scope: d.Scope} }

// Reference is a recorded use of a name.
type Reference struct {
	Name  string
	Range syntax.Range
	Scope ScopeID
}

// Key returns the binding key r resolves against.
func (r Reference) Key() Key { return Key{Name: r.Name, Scope: r.Scope} }

// Duplicate summarises every re-declaration of one binding key.
type Duplicate struct {
	Name      string
	Scope     ScopeID
	Canonical syntax.Range
	Ranges    []syntax.Range
	// Values holds the value of each re-declaration, parallel to Ranges.
	Values []string
}

// Extractor translates tree-walk notifications into events. Callers drain
// Pop after every Enter and Leave.
type Extractor interface {
	Enter(n syntax.Node)
	Leave(n syntax.Node)
	Pop() (Event, bool)
}

// Queue is a FIFO of pending events. Extractors push at most a couple of
// events per node and callers drain it immediately, so the backing slice
// stays small and is reused.
type Queue struct {
	buf  []Event
	head int
}

// Push appends ev.
func (q *Queue) Push(ev Event) {
	if q.head == len(q.buf) {
		q.buf = q.buf[:0]
		q.head = 0
	}
	q.buf = append(q.buf, ev)
}

// Pop removes and returns the oldest event.
func (q *Queue) Pop() (Event, bool) {
	if q.head >= len(q.buf) {
		return Event{}, false
	}
	ev := q.buf[q.head]
	q.head++
	return ev, true
}

// Len returns the number of buffered events.
func (q *Queue) Len() int { return len(q.buf) - q.head }
