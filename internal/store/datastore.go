package store

// DataStore is the interface for index-phase writes. Both Store (direct
// SQLite) and BatchedStore (in-memory buffering for parallel workers)
// implement this interface.
type DataStore interface {
	// Inserts return the assigned ID.
	InsertDeclaration(d *Declaration) (int64, error)
	InsertReference(r *Reference) (int64, error)
	InsertDiagnostic(d *Diagnostic) (int64, error)

	DeclarationsByFile(fileID int64) ([]*Declaration, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
