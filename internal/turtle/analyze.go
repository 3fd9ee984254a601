package turtle

import (
	"context"

	"github.com/jward/thicket/internal/syntax"
)

// Document is a parsed and analysed Turtle source.
type Document struct {
	Source []byte
	Root   *syntax.Elem
	Model  *Model
}

// Analyze parses src and builds its model. Malformed input still yields a
// document; the only error is a cancelled context.
func Analyze(ctx context.Context, src []byte) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := Parse(src)
	return &Document{Source: src, Root: root, Model: Build(root)}, nil
}

// ParseErrors lists the error-recovery artifacts in the tree.
func (d *Document) ParseErrors() []syntax.ParseError { return syntax.Errors(d.Root) }
