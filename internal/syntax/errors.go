package syntax

import "fmt"

// ParseError locates one error-recovery artifact in a tree.
type ParseError struct {
	Range   Range
	Message string
}

// Errors collects the error and missing nodes under root in document order.
// Error nodes are not descended into.
func Errors(root Node) []ParseError {
	var out []ParseError
	var visit func(n Node)
	visit = func(n Node) {
		switch {
		case n.IsMissing():
			out = append(out, ParseError{Range: n.Range(), Message: fmt.Sprintf("missing %s", n.Kind())})
			return
		case n.IsError():
			out = append(out, ParseError{Range: n.Range(), Message: fmt.Sprintf("unexpected %q", clip(n.Text(), 40))})
			return
		}
		for i := 0; i < n.ChildCount(); i++ {
			if c := n.Child(i); c != nil {
				visit(c)
			}
		}
	}
	if root != nil {
		visit(root)
	}
	return out
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
