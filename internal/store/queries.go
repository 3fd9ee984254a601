package store

import "fmt"

// languageFilter narrows a query joined to files f. An empty language
// matches every file.
func languageFilter(language string) (string, []any) {
	if language == "" {
		return "", nil
	}
	return " AND f.language = ?", []any{language}
}

// UnusedDeclarations returns canonical declarations no reference resolves
// to, ordered by path and position.
func (s *Store) UnusedDeclarations(language string) ([]*Declaration, error) {
	where, args := languageFilter(language)
	decls, err := s.queryDeclarations(
		`SELECT `+DeclarationCols+` FROM declarations d
		 JOIN files f ON f.id = d.file_id
		 WHERE d.is_canonical
		   AND NOT EXISTS (SELECT 1 FROM references_ r WHERE r.declaration_id = d.id)`+where+`
		 ORDER BY f.path, d.start_byte`, args...)
	if err != nil {
		return nil, fmt.Errorf("unused declarations: %w", err)
	}
	return decls, nil
}

// DuplicateDeclarations returns every non-canonical declaration.
func (s *Store) DuplicateDeclarations(language string) ([]*Declaration, error) {
	where, args := languageFilter(language)
	decls, err := s.queryDeclarations(
		`SELECT `+DeclarationCols+` FROM declarations d
		 JOIN files f ON f.id = d.file_id
		 WHERE NOT d.is_canonical`+where+`
		 ORDER BY f.path, d.start_byte`, args...)
	if err != nil {
		return nil, fmt.Errorf("duplicate declarations: %w", err)
	}
	return decls, nil
}

// UnresolvedReferences returns references with no declaration.
func (s *Store) UnresolvedReferences(language string) ([]*Reference, error) {
	where, args := languageFilter(language)
	refs, err := s.queryReferences(
		`SELECT `+ReferenceCols+` FROM references_ r
		 JOIN files f ON f.id = r.file_id
		 WHERE r.declaration_id IS NULL`+where+`
		 ORDER BY f.path, r.start_byte`, args...)
	if err != nil {
		return nil, fmt.Errorf("unresolved references: %w", err)
	}
	return refs, nil
}

// DiagnosticCounts returns the number of stored diagnostics per severity.
func (s *Store) DiagnosticCounts() (map[string]int, error) {
	rows, err := s.db.Query("SELECT severity, COUNT(*) FROM diagnostics GROUP BY severity")
	if err != nil {
		return nil, fmt.Errorf("diagnostic counts: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var sev string
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, fmt.Errorf("scan diagnostic count: %w", err)
		}
		out[sev] = n
	}
	return out, rows.Err()
}

// Diagnostics returns stored diagnostics ordered by path and position. An
// empty rule matches every rule.
func (s *Store) Diagnostics(rule string) ([]*Diagnostic, error) {
	query := `SELECT ` + DiagnosticCols + ` FROM diagnostics g JOIN files f ON f.id = g.file_id`
	var args []any
	if rule != "" {
		query += ` WHERE g.rule = ?`
		args = append(args, rule)
	}
	rows, err := s.db.Query(query+` ORDER BY f.path, g.start_line, g.start_col, g.rule`, args...)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
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
