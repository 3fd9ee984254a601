package binding

import "github.com/jward/thicket/internal/syntax"

// Analyze runs the two-phase pipeline over root: every preorder step goes to
// ex, the event queue is drained into a fresh Builder after each step, and
// the finished Model is returned. keep selects the nodes made addressable
// through Model.SyntaxOf; it may be nil.
func Analyze(root syntax.Node, ex Extractor, keep func(syntax.Node) bool) *Model {
	b := NewBuilder()
	Feed(b, root, ex, keep)
	return b.Build()
}

// Feed walks root into b without building, for callers that want to observe
// extra scopes or walk more than one tree into the same model.
func Feed(b *Builder, root syntax.Node, ex Extractor, keep func(syntax.Node) bool) {
	for ev := range syntax.Preorder(root) {
		if ev.Leave {
			ex.Leave(ev.Node)
		} else {
			ex.Enter(ev.Node)
			if keep != nil && keep(ev.Node) {
				b.PushNode(ev.Node)
			}
		}
		for e, ok := ex.Pop(); ok; e, ok = ex.Pop() {
			b.PushEvent(e)
		}
	}
}
