package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchedStore_DeclarationsByFile_ReturnsBufferedDeclarations(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/onto.ttl", "turtle")

	batch := NewBatchedStore(s)

	id1, err := batch.InsertDeclaration(&Declaration{FileID: f.ID, Name: "ex:", IsCanonical: true})
	require.NoError(t, err)
	assert.Negative(t, id1, "batched IDs should be negative")

	id2, err := batch.InsertDeclaration(&Declaration{FileID: f.ID, Name: "foaf:", IsCanonical: true})
	require.NoError(t, err)
	assert.Negative(t, id2)
	assert.NotEqual(t, id1, id2)

	decls, err := batch.DeclarationsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, decls, 2)
	for _, d := range decls {
		assert.Negative(t, d.ID, "buffered declarations should have negative IDs")
	}
	assert.Equal(t, 2, batch.Len())
}

func TestBatchedStore_DeclarationsByFile_MergesWithDatabase(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/onto.ttl", "turtle")
	other := insertTestFile(t, s, "/other.ttl", "turtle")

	_, err := s.InsertDeclaration(&Declaration{FileID: f.ID, Name: "old:", IsCanonical: true})
	require.NoError(t, err)

	batch := NewBatchedStore(s)
	_, err = batch.InsertDeclaration(&Declaration{FileID: f.ID, Name: "new:", IsCanonical: true})
	require.NoError(t, err)
	_, err = batch.InsertDeclaration(&Declaration{FileID: other.ID, Name: "elsewhere:", IsCanonical: true})
	require.NoError(t, err)

	decls, err := batch.DeclarationsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, decls, 2)
	names := []string{decls[0].Name, decls[1].Name}
	assert.ElementsMatch(t, []string{"old:", "new:"}, names)
}

func TestCommitBatch_RemapsReferenceLinks(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/onto.ttl", "turtle")

	batch := NewBatchedStore(s)
	declID, err := batch.InsertDeclaration(&Declaration{FileID: f.ID, Name: "ex:", Value: "http://e/", IsCanonical: true})
	require.NoError(t, err)
	_, err = batch.InsertReference(&Reference{FileID: f.ID, Name: "ex:", DeclarationID: &declID})
	require.NoError(t, err)
	_, err = batch.InsertReference(&Reference{FileID: f.ID, Name: "zz:"})
	require.NoError(t, err)
	_, err = batch.InsertDiagnostic(&Diagnostic{FileID: f.ID, Rule: "undefined-prefix", Severity: "error", Message: "m", Notes: []string{"n"}})
	require.NoError(t, err)

	require.NoError(t, s.CommitBatch(batch, f.ID))

	decls, err := s.DeclarationsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Positive(t, decls[0].ID)
	assert.Equal(t, "http://e/", decls[0].Value)

	usages, err := s.Usages(decls[0].ID)
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, "ex:", usages[0].Name)

	unresolved, err := s.UnresolvedReferences("")
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "zz:", unresolved[0].Name)

	diags, err := s.DiagnosticsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, []string{"n"}, diags[0].Notes)
}

func TestCommitBatch_ReplacesPreviousData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/onto.ttl", "turtle")

	first := NewBatchedStore(s)
	_, err := first.InsertDeclaration(&Declaration{FileID: f.ID, Name: "a:", IsCanonical: true})
	require.NoError(t, err)
	require.NoError(t, s.CommitBatch(first, f.ID))

	second := NewBatchedStore(s)
	_, err = second.InsertDeclaration(&Declaration{FileID: f.ID, Name: "b:", IsCanonical: true})
	require.NoError(t, err)
	require.NoError(t, s.CommitBatch(second, f.ID))

	decls, err := s.DeclarationsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "b:", decls[0].Name)
}

func TestCommitBatch_UnknownFakeID(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/onto.ttl", "turtle")

	batch := NewBatchedStore(s)
	bogus := int64(-42)
	_, err := batch.InsertReference(&Reference{FileID: f.ID, Name: "ex:", DeclarationID: &bogus})
	require.NoError(t, err)

	err = s.CommitBatch(batch, f.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in fakeToReal")
}
