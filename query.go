package thicket

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jward/thicket/internal/lint"
	"github.com/jward/thicket/internal/store"
)

// QueryBuilder reads the outcomes persisted by IndexFiles. Lines and
// columns are 0-based.
type QueryBuilder struct {
	store *store.Store
}

// Location is a source range in an indexed file.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// BindingResult is a stored declaration with its file path.
type BindingResult struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Value     string   `json:"value,omitempty"`
	Scope     int      `json:"scope"`
	Canonical bool     `json:"canonical"`
	Location  Location `json:"location"`
}

// ReferenceResult is a stored reference with its file path.
type ReferenceResult struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Scope    int      `json:"scope"`
	Resolved bool     `json:"resolved"`
	Location Location `json:"location"`
}

// DiagnosticResult is a stored diagnostic with its file path.
type DiagnosticResult struct {
	Rule     string   `json:"rule"`
	Severity string   `json:"severity"`
	Message  string   `json:"message"`
	Notes    []string `json:"notes,omitempty"`
	Fixable  bool     `json:"fixable"`
	RunID    string   `json:"run_id,omitempty"`
	Location Location `json:"location"`
}

// Pagination controls offset+limit paging on list results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

func paginate[T any](items []T, page Pagination) *PagedResult[T] {
	page = page.normalize()
	out := &PagedResult[T]{TotalCount: len(items)}
	if page.Offset >= len(items) {
		return out
	}
	end := min(page.Offset+page.Limit, len(items))
	out.Items = items[page.Offset:end]
	return out
}

// paths maps file IDs to paths.
func (q *QueryBuilder) paths() (map[int64]string, error) {
	files, err := q.store.AllFiles()
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(files))
	for _, f := range files {
		out[f.ID] = f.Path
	}
	return out, nil
}

func (q *QueryBuilder) bindings(decls []*store.Declaration) ([]BindingResult, error) {
	paths, err := q.paths()
	if err != nil {
		return nil, err
	}
	out := make([]BindingResult, 0, len(decls))
	for _, d := range decls {
		out = append(out, BindingResult{
			ID:        d.ID,
			Name:      d.Name,
			Value:     d.Value,
			Scope:     d.Scope,
			Canonical: d.IsCanonical,
			Location:  Location{File: paths[d.FileID], StartLine: d.StartLine, StartCol: d.StartCol, EndLine: d.EndLine, EndCol: d.EndCol},
		})
	}
	return out, nil
}

func (q *QueryBuilder) references(refs []*store.Reference) ([]ReferenceResult, error) {
	paths, err := q.paths()
	if err != nil {
		return nil, err
	}
	out := make([]ReferenceResult, 0, len(refs))
	for _, r := range refs {
		out = append(out, ReferenceResult{
			ID:       r.ID,
			Name:     r.Name,
			Scope:    r.Scope,
			Resolved: r.DeclarationID != nil,
			Location: Location{File: paths[r.FileID], StartLine: r.StartLine, StartCol: r.StartCol, EndLine: r.EndLine, EndCol: r.EndCol},
		})
	}
	return out, nil
}

// Unused returns canonical declarations nothing refers to. An empty
// language matches every language.
func (q *QueryBuilder) Unused(language string, page Pagination) (*PagedResult[BindingResult], error) {
	if q.store == nil {
		return nil, ErrNoStore
	}
	decls, err := q.store.UnusedDeclarations(language)
	if err != nil {
		return nil, fmt.Errorf("unused: %w", err)
	}
	res, err := q.bindings(decls)
	if err != nil {
		return nil, fmt.Errorf("unused: %w", err)
	}
	return paginate(res, page), nil
}

// Duplicates returns every re-declaration of an already bound key.
func (q *QueryBuilder) Duplicates(language string, page Pagination) (*PagedResult[BindingResult], error) {
	if q.store == nil {
		return nil, ErrNoStore
	}
	decls, err := q.store.DuplicateDeclarations(language)
	if err != nil {
		return nil, fmt.Errorf("duplicates: %w", err)
	}
	res, err := q.bindings(decls)
	if err != nil {
		return nil, fmt.Errorf("duplicates: %w", err)
	}
	return paginate(res, page), nil
}

// Unresolved returns references with no declaration in their scope.
func (q *QueryBuilder) Unresolved(language string, page Pagination) (*PagedResult[ReferenceResult], error) {
	if q.store == nil {
		return nil, ErrNoStore
	}
	refs, err := q.store.UnresolvedReferences(language)
	if err != nil {
		return nil, fmt.Errorf("unresolved: %w", err)
	}
	res, err := q.references(refs)
	if err != nil {
		return nil, fmt.Errorf("unresolved: %w", err)
	}
	return paginate(res, page), nil
}

// Declarations returns every stored declaration called name, duplicates
// included.
func (q *QueryBuilder) Declarations(name string) ([]BindingResult, error) {
	if q.store == nil {
		return nil, ErrNoStore
	}
	decls, err := q.store.DeclarationsByName(name)
	if err != nil {
		return nil, fmt.Errorf("declarations: %w", err)
	}
	return q.bindings(decls)
}

// canonical returns the canonical declaration of (name, scope) in file.
func (q *QueryBuilder) canonical(file, name string, scope int) (*store.Declaration, error) {
	f, err := q.store.FileByPath(file)
	if err != nil || f == nil {
		return nil, err
	}
	decls, err := q.store.DeclarationsByFile(f.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range decls {
		if d.IsCanonical && d.Name == name && d.Scope == scope {
			return d, nil
		}
	}
	return nil, nil
}

// Usages returns the references bound to the canonical declaration of
// (name, scope) in file. It returns nil when the file is not indexed or the
// key is not declared there.
func (q *QueryBuilder) Usages(file, name string, scope int) ([]Location, error) {
	if q.store == nil {
		return nil, ErrNoStore
	}
	decl, err := q.canonical(file, name, scope)
	if err != nil {
		return nil, fmt.Errorf("usages: %w", err)
	}
	if decl == nil {
		return nil, nil
	}
	refs, err := q.store.Usages(decl.ID)
	if err != nil {
		return nil, fmt.Errorf("usages: %w", err)
	}
	locs := make([]Location, 0, len(refs))
	for _, r := range refs {
		locs = append(locs, Location{File: file, StartLine: r.StartLine, StartCol: r.StartCol, EndLine: r.EndLine, EndCol: r.EndCol})
	}
	return locs, nil
}

// DefinitionAt finds the declaration the reference at (file, line, col)
// resolves to. It returns nil when no resolved reference covers the
// position.
func (q *QueryBuilder) DefinitionAt(file string, line, col int) (*BindingResult, error) {
	if q.store == nil {
		return nil, ErrNoStore
	}
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("definition at: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}

	// The position must fall within the reference span.
	var declID int64
	err = q.store.DB().QueryRow(
		`SELECT declaration_id FROM references_
		 WHERE file_id = ? AND declaration_id IS NOT NULL
		   AND (start_line < ? OR (start_line = ? AND start_col <= ?))
		   AND (end_line > ? OR (end_line = ? AND end_col >= ?))
		 ORDER BY start_byte LIMIT 1`,
		f.ID,
		line, line, col,
		line, line, col,
	).Scan(&declID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("definition at: query references: %w", err)
	}

	row := q.store.DB().QueryRow(`SELECT `+store.DeclarationCols+` FROM declarations d WHERE d.id = ?`, declID)
	decl, err := store.ScanDeclarationRow(row)
	if err != nil {
		return nil, fmt.Errorf("definition at: declaration %d: %w", declID, err)
	}
	res, err := q.bindings([]*store.Declaration{decl})
	if err != nil {
		return nil, fmt.Errorf("definition at: %w", err)
	}
	return &res[0], nil
}

// DiagnosticFilter narrows Diagnostics. Zero fields match everything.
type DiagnosticFilter struct {
	File        string
	Rule        string
	MinSeverity lint.Severity
}

// Diagnostics returns stored diagnostics ordered by path and position.
func (q *QueryBuilder) Diagnostics(filter DiagnosticFilter, page Pagination) (*PagedResult[DiagnosticResult], error) {
	if q.store == nil {
		return nil, ErrNoStore
	}
	diags, err := q.store.Diagnostics(filter.Rule)
	if err != nil {
		return nil, err
	}
	paths, err := q.paths()
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	var out []DiagnosticResult
	for _, d := range diags {
		path := paths[d.FileID]
		if filter.File != "" && path != filter.File {
			continue
		}
		if filter.MinSeverity != 0 {
			sev, err := lint.ParseSeverity(d.Severity)
			if err != nil || sev < filter.MinSeverity {
				continue
			}
		}
		out = append(out, DiagnosticResult{
			Rule:     d.Rule,
			Severity: d.Severity,
			Message:  d.Message,
			Notes:    d.Notes,
			Fixable:  d.Fixable,
			RunID:    d.RunID,
			Location: Location{File: path, StartLine: d.StartLine, StartCol: d.StartCol, EndLine: d.EndLine, EndCol: d.EndCol},
		})
	}
	return paginate(out, page), nil
}

// Files returns indexed files, optionally restricted to one language.
func (q *QueryBuilder) Files(language string, page Pagination) (*PagedResult[File], error) {
	if q.store == nil {
		return nil, ErrNoStore
	}
	var (
		files []*store.File
		err   error
	)
	if language == "" {
		files, err = q.store.AllFiles()
	} else {
		files, err = q.store.FilesByLanguage(language)
	}
	if err != nil {
		return nil, err
	}
	out := make([]File, 0, len(files))
	for _, f := range files {
		out = append(out, *f)
	}
	return paginate(out, page), nil
}
