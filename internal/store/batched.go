package store

import "sync"

// BatchedStore buffers index inserts in memory using fake (negative) IDs.
// It implements DataStore so a worker can write to it without knowing
// whether it's hitting SQLite or an in-memory buffer. A reference's
// DeclarationID may point at a fake ID; CommitBatch rewrites it.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// Read queries are passed through to the underlying Store, which is safe
// for concurrent reads.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Declarations []Declaration
	References   []Reference
	Diagnostics  []Diagnostic

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertDeclaration(d *Declaration) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	b.Declarations = append(b.Declarations, *d)
	return fakeID, nil
}

func (b *BatchedStore) InsertReference(r *Reference) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	r.ID = fakeID
	b.References = append(b.References, *r)
	return fakeID, nil
}

func (b *BatchedStore) InsertDiagnostic(d *Diagnostic) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	b.Diagnostics = append(b.Diagnostics, *d)
	return fakeID, nil
}

// DeclarationsByFile returns declarations for a file, merging any buffered
// (not yet committed) declarations with those already in the database.
func (b *BatchedStore) DeclarationsByFile(fileID int64) ([]*Declaration, error) {
	dbDecls, err := b.store.DeclarationsByFile(fileID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Declarations {
		if b.Declarations[i].FileID == fileID {
			dbDecls = append(dbDecls, &b.Declarations[i])
		}
	}
	return dbDecls, nil
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Declarations) + len(b.References) + len(b.Diagnostics)
}
