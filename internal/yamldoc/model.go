package yamldoc

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	tsyaml "github.com/smacker/go-tree-sitter/yaml"

	"github.com/jward/thicket/internal/binding"
	"github.com/jward/thicket/internal/syntax"
)

type (
	// Anchor is an `&name` declaration.
	Anchor = binding.Declaration
	// Alias is a `*name` reference.
	Alias = binding.Reference
)

// Model is the anchor/alias binding model of one YAML stream.
type Model struct {
	*binding.Model
}

// Build walks root and returns its model. Documents with no anchors still
// count towards Documents.
func Build(root syntax.Node) *Model {
	b := binding.NewBuilder()
	x := NewExtractor()
	binding.Feed(b, root, x, isBindingNode)
	if n := x.Documents(); n > 0 {
		b.ObserveScope(binding.ScopeID(n - 1))
	}
	return &Model{Model: b.Build()}
}

// Bindings returns the language-neutral model.
func (m *Model) Bindings() *binding.Model { return m.Model }

// Anchors returns the canonical anchors in document order.
func (m *Model) Anchors() []Anchor { return m.Declarations() }

// Aliases returns every alias in document order.
func (m *Model) Aliases() []Alias { return m.References() }

// AnchorOf returns the anchor alias resolves to within its document.
func (m *Model) AnchorOf(alias Alias) (Anchor, bool) { return m.ResolveReference(alias) }

// Documents returns the number of documents in the stream.
func (m *Model) Documents() int { return m.Scopes() }

// Document is a parsed and analysed YAML stream. It owns the tree-sitter
// tree backing Root and every node the model returns, so it must be closed
// once those nodes are no longer needed.
type Document struct {
	Source []byte
	Root   syntax.Node
	Model  *Model
	tree   *sitter.Tree
}

// Analyze parses src with the tree-sitter YAML grammar and builds its model.
func Analyze(ctx context.Context, src []byte) (*Document, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsyaml.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("yamldoc: parse: %w", err)
	}
	root := syntax.FromTreeSitter(tree.RootNode(), src)
	if root == nil {
		tree.Close()
		return nil, fmt.Errorf("yamldoc: parse: empty tree")
	}
	return &Document{Source: src, Root: root, Model: Build(root), tree: tree}, nil
}

// ParseErrors lists the error and missing nodes tree-sitter produced.
func (d *Document) ParseErrors() []syntax.ParseError { return syntax.Errors(d.Root) }

// Close releases the tree-sitter tree.
func (d *Document) Close() {
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
}
