package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, language, hash, line_count, last_indexed) VALUES (?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.LineCount, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

// UpdateFile rewrites a file's hash, line count and index time.
func (s *Store) UpdateFile(f *File) error {
	_, err := s.db.Exec(
		"UPDATE files SET language = ?, hash = ?, line_count = ?, last_indexed = ? WHERE id = ?",
		f.Language, f.Hash, f.LineCount, f.LastIndexed, f.ID,
	)
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	return nil
}

const fileCols = "id, path, language, hash, line_count, last_indexed"

func scanFile(sc scanner) (*File, error) {
	f := &File{}
	var hash sql.NullString
	var lastIndexed sql.NullTime
	if err := sc.Scan(&f.ID, &f.Path, &f.Language, &hash, &f.LineCount, &lastIndexed); err != nil {
		return nil, err
	}
	f.Hash = hash.String
	f.LastIndexed = lastIndexed.Time
	return f, nil
}

// FileByPath returns the file at path, or nil when it was never indexed.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *Store) FilesByLanguage(language string) ([]*File, error) {
	files, err := s.queryFiles("SELECT "+fileCols+" FROM files WHERE language = ? ORDER BY path", language)
	if err != nil {
		return nil, fmt.Errorf("files by language: %w", err)
	}
	return files, nil
}

func (s *Store) AllFiles() ([]*File, error) {
	files, err := s.queryFiles("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("all files: %w", err)
	}
	return files, nil
}

// DeleteFile removes a file and everything derived from it.
func (s *Store) DeleteFile(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteFileDataTx(tx, fileID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM files WHERE id = ?", fileID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return tx.Commit()
}

// --- Declaration operations ---

func (s *Store) InsertDeclaration(d *Declaration) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO declarations (file_id, name, value, scope, is_canonical,
			start_byte, end_byte, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.FileID, d.Name, d.Value, d.Scope, d.IsCanonical,
		d.StartByte, d.EndByte, d.StartLine, d.StartCol, d.EndLine, d.EndCol,
	)
	if err != nil {
		return 0, fmt.Errorf("insert declaration: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return id, nil
}

// DeclarationCols is the column list for declaration queries, exported for
// use by QueryBuilder.
const DeclarationCols = `d.id, d.file_id, d.name, d.value, d.scope, d.is_canonical,
	d.start_byte, d.end_byte, d.start_line, d.start_col, d.end_line, d.end_col`

// ScanDeclarationRow scans a single row selected with DeclarationCols.
func ScanDeclarationRow(sc scanner) (*Declaration, error) {
	d := &Declaration{}
	var value sql.NullString
	err := sc.Scan(&d.ID, &d.FileID, &d.Name, &value, &d.Scope, &d.IsCanonical,
		&d.StartByte, &d.EndByte, &d.StartLine, &d.StartCol, &d.EndLine, &d.EndCol)
	if err != nil {
		return nil, err
	}
	d.Value = value.String
	return d, nil
}

func (s *Store) queryDeclarations(query string, args ...any) ([]*Declaration, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var decls []*Declaration
	for rows.Next() {
		d, err := ScanDeclarationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		decls = append(decls, d)
	}
	return decls, rows.Err()
}

func (s *Store) DeclarationsByFile(fileID int64) ([]*Declaration, error) {
	return s.queryDeclarations("SELECT "+DeclarationCols+" FROM declarations d WHERE d.file_id = ? ORDER BY d.start_byte", fileID)
}

func (s *Store) DeclarationsByName(name string) ([]*Declaration, error) {
	return s.queryDeclarations("SELECT "+DeclarationCols+" FROM declarations d WHERE d.name = ? ORDER BY d.file_id, d.start_byte", name)
}

// --- Reference operations ---

func (s *Store) InsertReference(r *Reference) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO references_ (file_id, declaration_id, name, scope,
			start_byte, end_byte, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.FileID, r.DeclarationID, r.Name, r.Scope,
		r.StartByte, r.EndByte, r.StartLine, r.StartCol, r.EndLine, r.EndCol,
	)
	if err != nil {
		return 0, fmt.Errorf("insert reference: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return id, nil
}

// ReferenceCols is the column list for reference queries.
const ReferenceCols = `r.id, r.file_id, r.declaration_id, r.name, r.scope,
	r.start_byte, r.end_byte, r.start_line, r.start_col, r.end_line, r.end_col`

// ScanReferenceRow scans a single row selected with ReferenceCols.
func ScanReferenceRow(sc scanner) (*Reference, error) {
	r := &Reference{}
	err := sc.Scan(&r.ID, &r.FileID, &r.DeclarationID, &r.Name, &r.Scope,
		&r.StartByte, &r.EndByte, &r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) queryReferences(query string, args ...any) ([]*Reference, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []*Reference
	for rows.Next() {
		r, err := ScanReferenceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (s *Store) ReferencesByFile(fileID int64) ([]*Reference, error) {
	return s.queryReferences("SELECT "+ReferenceCols+" FROM references_ r WHERE r.file_id = ? ORDER BY r.start_byte", fileID)
}

// Usages returns the references resolved to a declaration.
func (s *Store) Usages(declarationID int64) ([]*Reference, error) {
	return s.queryReferences("SELECT "+ReferenceCols+" FROM references_ r WHERE r.declaration_id = ? ORDER BY r.start_byte", declarationID)
}

// --- Diagnostic operations ---

func (s *Store) InsertDiagnostic(d *Diagnostic) (int64, error) {
	var runID any
	if d.RunID != "" {
		runID = d.RunID
	}
	res, err := s.db.Exec(
		`INSERT INTO diagnostics (file_id, run_id, rule, severity, message, notes, fixable,
			start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.FileID, runID, d.Rule, d.Severity, d.Message, marshalNotes(d.Notes), d.Fixable,
		d.StartLine, d.StartCol, d.EndLine, d.EndCol,
	)
	if err != nil {
		return 0, fmt.Errorf("insert diagnostic: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return id, nil
}

// DiagnosticCols is the column list for diagnostic queries.
const DiagnosticCols = `g.id, g.file_id, g.run_id, g.rule, g.severity, g.message, g.notes, g.fixable,
	g.start_line, g.start_col, g.end_line, g.end_col`

// ScanDiagnosticRow scans a single row selected with DiagnosticCols.
func ScanDiagnosticRow(sc scanner) (*Diagnostic, error) {
	d := &Diagnostic{}
	var runID, notes sql.NullString
	err := sc.Scan(&d.ID, &d.FileID, &runID, &d.Rule, &d.Severity, &d.Message, &notes, &d.Fixable,
		&d.StartLine, &d.StartCol, &d.EndLine, &d.EndCol)
	if err != nil {
		return nil, err
	}
	d.RunID = runID.String
	d.Notes = unmarshalNotes(notes.String)
	return d, nil
}

func (s *Store) DiagnosticsByFile(fileID int64) ([]*Diagnostic, error) {
	rows, err := s.db.Query("SELECT "+DiagnosticCols+" FROM diagnostics g WHERE g.file_id = ? ORDER BY g.start_line, g.start_col, g.rule", fileID)
	if err != nil {
		return nil, fmt.Errorf("diagnostics by file: %w", err)
	}
	defer rows.Close()
	var diags []*Diagnostic
	for rows.Next() {
		d, err := ScanDiagnosticRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

// --- Metadata ---

func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}

// Metadata returns the value stored under key and whether it exists.
func (s *Store) Metadata(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("metadata %s: %w", key, err)
	}
	return v, true, nil
}

// --- Runs ---

func (s *Store) InsertRun(r *Run) error {
	_, err := s.db.Exec("INSERT INTO runs (id, started_at) VALUES (?, ?)", r.ID, r.StartedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps r as finished with its final counts.
func (s *Store) FinishRun(r *Run) error {
	now := time.Now()
	r.FinishedAt = &now
	_, err := s.db.Exec(
		"UPDATE runs SET finished_at = ?, files_indexed = ?, files_skipped = ?, diagnostics = ? WHERE id = ?",
		now, r.FilesIndexed, r.FilesSkipped, r.Diagnostics, r.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently started run, or nil when there is none.
func (s *Store) LatestRun() (*Run, error) {
	r := &Run{}
	var finished sql.NullTime
	err := s.db.QueryRow(
		"SELECT id, started_at, finished_at, files_indexed, files_skipped, diagnostics FROM runs ORDER BY started_at DESC LIMIT 1",
	).Scan(&r.ID, &r.StartedAt, &finished, &r.FilesIndexed, &r.FilesSkipped, &r.Diagnostics)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return r, nil
}
