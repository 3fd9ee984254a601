package store

import "fmt"

// PruneFiles deletes every indexed file whose path is not in keep, along
// with its derived rows, and returns the removed paths.
func (s *Store) PruneFiles(keep []string) ([]string, error) {
	query := "SELECT id, path FROM files"
	var args []any
	if len(keep) > 0 {
		query += " WHERE path NOT IN (" + placeholderList(len(keep)) + ")"
		args = stringsToArgs(keep)
	}
	rows, err := s.db.Query(query+" ORDER BY path", args...)
	if err != nil {
		return nil, fmt.Errorf("prune files: %w", err)
	}
	type stale struct {
		id   int64
		path string
	}
	var gone []stale
	for rows.Next() {
		var st stale
		if err := rows.Scan(&st.id, &st.path); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan file: %w", err)
		}
		gone = append(gone, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prune files: %w", err)
	}

	paths := make([]string, 0, len(gone))
	for _, st := range gone {
		if err := s.DeleteFile(st.id); err != nil {
			return paths, fmt.Errorf("prune %s: %w", st.path, err)
		}
		paths = append(paths, st.path)
	}
	return paths, nil
}
