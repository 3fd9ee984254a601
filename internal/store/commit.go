package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch replaces the derived data of the batch's files with the
// buffered rows in a single transaction. Fake (negative) IDs are remapped to
// real IDs, and reference → declaration links within the batch are
// rewritten using the fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Declarations (depend on file_id only, which is already real)
//  2. References (depend on file_id, declaration_id)
//  3. Diagnostics (depend on file_id, run_id)
func (s *Store) CommitBatch(batch *BatchedStore, fileIDs ...int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for _, id := range fileIDs {
		if err := deleteFileDataTx(tx, id); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}

	fakeToReal := make(map[int64]int64, len(batch.Declarations))

	// 1. Declarations
	for _, d := range batch.Declarations {
		realID, err := insertDeclarationTx(tx, &d)
		if err != nil {
			return fmt.Errorf("commit batch: declaration %q: %w", d.Name, err)
		}
		fakeToReal[d.ID] = realID
	}

	// 2. References
	for _, r := range batch.References {
		if r.DeclarationID != nil && *r.DeclarationID < 0 {
			realID, ok := fakeToReal[*r.DeclarationID]
			if !ok {
				return fmt.Errorf("commit batch: reference %q has declaration_id=%d not in fakeToReal map (have %d declarations)",
					r.Name, *r.DeclarationID, len(batch.Declarations))
			}
			r.DeclarationID = &realID
		}
		if _, err := insertReferenceTx(tx, &r); err != nil {
			return fmt.Errorf("commit batch: reference %q: %w", r.Name, err)
		}
	}

	// 3. Diagnostics
	for _, d := range batch.Diagnostics {
		if _, err := insertDiagnosticTx(tx, &d); err != nil {
			return fmt.Errorf("commit batch: diagnostic %q: %w", d.Rule, err)
		}
	}

	return tx.Commit()
}

// --- Transaction-scoped insert helpers ---
// These mirror the Store insert methods but accept *sql.Tx instead of using s.db.

func insertDeclarationTx(tx *sql.Tx, d *Declaration) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO declarations (file_id, name, value, scope, is_canonical,
			start_byte, end_byte, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.FileID, d.Name, d.Value, d.Scope, d.IsCanonical,
		d.StartByte, d.EndByte, d.StartLine, d.StartCol, d.EndLine, d.EndCol,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertReferenceTx(tx *sql.Tx, r *Reference) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO references_ (file_id, declaration_id, name, scope,
			start_byte, end_byte, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.FileID, r.DeclarationID, r.Name, r.Scope,
		r.StartByte, r.EndByte, r.StartLine, r.StartCol, r.EndLine, r.EndCol,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertDiagnosticTx(tx *sql.Tx, d *Diagnostic) (int64, error) {
	var runID any
	if d.RunID != "" {
		runID = d.RunID
	}
	res, err := tx.Exec(
		`INSERT INTO diagnostics (file_id, run_id, rule, severity, message, notes, fixable,
			start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.FileID, runID, d.Rule, d.Severity, d.Message, marshalNotes(d.Notes), d.Fixable,
		d.StartLine, d.StartCol, d.EndLine, d.EndCol,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
