package yamldoc

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/thicket/internal/binding"
	"github.com/jward/thicket/internal/syntax"
)

func analyze(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Analyze(context.Background(), []byte(src))
	require.NoError(t, err)
	t.Cleanup(doc.Close)
	return doc
}

// =============================================================================
// Extractor over synthetic trees
// =============================================================================

func leaf(kind syntax.Kind, src string, text string, from int) *syntax.Elem {
	start := strings.Index(src[from:], text) + from
	return syntax.NewLeaf(kind, syntax.NewRange(uint32(start), uint32(start+len(text))), text)
}

func drain(x *Extractor) []binding.Event {
	var out []binding.Event
	for ev, ok := x.Pop(); ok; ev, ok = x.Pop() {
		out = append(out, ev)
	}
	return out
}

func TestExtractor_SplitNameGrammar(t *testing.T) {
	t.Parallel()
	src := "&a *a"
	anchor := syntax.NewNode(KindAnchor, []byte(src), leaf("&", src, "&", 0), leaf(KindAnchorName, src, "a", 0))
	alias := syntax.NewNode(KindAlias, []byte(src), leaf("*", src, "*", 0), leaf(KindAliasName, src, "a", 2))

	x := NewExtractor()
	x.Enter(anchor)
	x.Enter(alias)
	events := drain(x)

	require.Len(t, events, 2)
	assert.Equal(t, binding.EventDeclaration, events[0].Kind)
	assert.Equal(t, "a", events[0].Name)
	assert.Equal(t, syntax.NewRange(0, 2), events[0].Range)
	assert.Equal(t, binding.EventReference, events[1].Kind)
	assert.Equal(t, syntax.NewRange(3, 5), events[1].Range)
}

func TestExtractor_LeafGrammar(t *testing.T) {
	t.Parallel()
	x := NewExtractor()
	x.Enter(syntax.NewLeaf(KindAnchor, syntax.NewRange(0, 4), "&foo"))
	x.Enter(syntax.NewLeaf(KindAlias, syntax.NewRange(5, 9), "*foo"))

	events := drain(x)
	require.Len(t, events, 2)
	assert.Equal(t, "foo", events[0].Name)
	assert.Equal(t, "foo", events[1].Name)
}

func TestExtractor_SkipsMissingName(t *testing.T) {
	t.Parallel()
	src := []byte("& ")
	anchor := syntax.NewNode(KindAnchor, src,
		syntax.NewLeaf("&", syntax.NewRange(0, 1), "&"),
		syntax.NewMissing(KindAnchorName, 1))

	x := NewExtractor()
	assert.NotPanics(t, func() {
		x.Enter(anchor)
		x.Enter(syntax.NewLeaf(KindAlias, syntax.NewRange(2, 3), "*"))
		x.Enter(syntax.NewMissing(KindAlias, 3))
	})
	assert.Empty(t, drain(x))
}

func TestExtractor_ScopePerDocument(t *testing.T) {
	t.Parallel()
	doc := syntax.NewLeaf(KindDocument, syntax.NewRange(0, 1), "x")
	x := NewExtractor()

	x.Enter(doc)
	x.Enter(syntax.NewLeaf(KindAnchor, syntax.NewRange(0, 2), "&a"))
	x.Leave(doc)
	x.Enter(doc)
	x.Enter(syntax.NewLeaf(KindAlias, syntax.NewRange(3, 5), "*a"))
	x.Leave(doc)

	events := drain(x)
	require.Len(t, events, 2)
	assert.Equal(t, binding.ScopeID(0), events[0].Scope)
	assert.Equal(t, binding.ScopeID(1), events[1].Scope)
	assert.Equal(t, 2, x.Documents())
}

// =============================================================================
// Tree-sitter documents
// =============================================================================

func TestAnalyze_AliasResolves(t *testing.T) {
	t.Parallel()
	m := analyze(t, "anchor: &a value\nalias: *a\n").Model

	require.Len(t, m.Anchors(), 1)
	require.Len(t, m.Aliases(), 1)
	anchor, ok := m.AnchorOf(m.Aliases()[0])
	require.True(t, ok)
	assert.Equal(t, "a", anchor.Name)
	assert.Len(t, m.UsagesOf(anchor), 1)
	assert.Empty(t, m.Unresolved())
	assert.Empty(t, m.Unused())
}

func TestAnalyze_DocumentsAreIsolated(t *testing.T) {
	t.Parallel()
	m := analyze(t, "anchor: &a value\n---\nalias: *a\n").Model

	unresolved := m.Unresolved()
	require.Len(t, unresolved, 1)
	assert.Equal(t, binding.ScopeID(1), unresolved[0].Scope)
	require.Len(t, m.Anchors(), 1)
	assert.Equal(t, binding.ScopeID(0), m.Anchors()[0].Scope)
	assert.Len(t, m.Unused(), 1)
	assert.Equal(t, 2, m.Documents())
}

func TestAnalyze_UndeclaredAlias(t *testing.T) {
	t.Parallel()
	m := analyze(t, "alias: *missing\n").Model

	assert.Len(t, m.Unresolved(), 1)
	assert.Empty(t, m.Declarations())
	assert.Equal(t, "missing", m.Unresolved()[0].Name)
}

func TestAnalyze_DuplicateAnchor(t *testing.T) {
	t.Parallel()
	src := "a: &x 1\nb: &x 2\nc: *x\n"
	m := analyze(t, src).Model

	dupes := m.Duplicates()
	require.Len(t, dupes, 1)
	assert.Equal(t, "x", dupes[0].Name)
	assert.Equal(t, uint32(strings.Index(src, "&x")), dupes[0].Canonical.Start)
	require.Len(t, dupes[0].Ranges, 1)
	assert.Equal(t, uint32(strings.LastIndex(src, "&x")), dupes[0].Ranges[0].Start)

	anchor, ok := m.AnchorOf(m.Aliases()[0])
	require.True(t, ok)
	assert.Equal(t, dupes[0].Canonical, anchor.Range)
}

func TestAnalyze_ForwardAlias(t *testing.T) {
	t.Parallel()
	m := analyze(t, "first: [*later]\nsecond: &later 2\n").Model
	assert.Empty(t, m.Unresolved())
}

func TestAnalyze_SyntaxOf(t *testing.T) {
	t.Parallel()
	doc := analyze(t, "anchor: &a value\nalias: *a\n")

	alias := doc.Model.Aliases()[0]
	n, ok := doc.Model.SyntaxOf(alias.Range)
	require.True(t, ok)
	assert.Equal(t, KindAlias, n.Kind())
	assert.Equal(t, "*a", n.Text())
}

func TestAnalyze_Empty(t *testing.T) {
	t.Parallel()
	doc := analyze(t, "")
	assert.Empty(t, doc.Model.Declarations())
	assert.Empty(t, doc.Model.References())
}
