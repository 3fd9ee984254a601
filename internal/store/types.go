package store

import "time"

type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

// Declaration is a persisted declaring construct. Duplicates are kept with
// IsCanonical false so they can be listed, but nothing resolves to them.
type Declaration struct {
	ID          int64
	FileID      int64
	Name        string
	Value       string
	Scope       int
	IsCanonical bool
	StartByte   int
	EndByte     int
	StartLine   int
	StartCol    int
	EndLine     int
	EndCol      int
}

// Reference is a persisted use of a name. DeclarationID is nil when the
// reference did not resolve.
type Reference struct {
	ID            int64
	FileID        int64
	DeclarationID *int64
	Name          string
	Scope         int
	StartByte     int
	EndByte       int
	StartLine     int
	StartCol      int
	EndLine       int
	EndCol        int
}

type Diagnostic struct {
	ID        int64
	FileID    int64
	RunID     string
	Rule      string
	Severity  string
	Message   string
	Notes     []string
	Fixable   bool
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Run records one index invocation.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   *time.Time
	FilesIndexed int
	FilesSkipped int
	Diagnostics  int
}
