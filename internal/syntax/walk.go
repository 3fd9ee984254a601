package syntax

import "iter"

// WalkEvent is one step of a preorder traversal.
type WalkEvent struct {
	Node  Node
	Leave bool
}

// Preorder yields Enter(n) before any descendant and Leave(n) after all of
// them, visiting children in document order. The walk uses an explicit stack
// so deeply nested inputs cannot exhaust the goroutine stack.
func Preorder(root Node) iter.Seq[WalkEvent] {
	return func(yield func(WalkEvent) bool) {
		if root == nil {
			return
		}
		type frame struct {
			node Node
			next int
		}
		stack := []frame{{node: root}}
		if !yield(WalkEvent{Node: root}) {
			return
		}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= top.node.ChildCount() {
				stack = stack[:len(stack)-1]
				if !yield(WalkEvent{Node: top.node, Leave: true}) {
					return
				}
				continue
			}
			child := top.node.Child(top.next)
			top.next++
			if child == nil {
				continue
			}
			if !yield(WalkEvent{Node: child}) {
				return
			}
			stack = append(stack, frame{node: child})
		}
	}
}

// Descendants yields every node under root (root included) in preorder.
func Descendants(root Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for ev := range Preorder(root) {
			if ev.Leave {
				continue
			}
			if !yield(ev.Node) {
				return
			}
		}
	}
}
