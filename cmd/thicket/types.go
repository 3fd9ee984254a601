package main

// CLIResult is the top-level JSON envelope for every command.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLILocation is a JSON-friendly source range. Lines and columns are 0-based.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLIBinding is a JSON-friendly declaration.
type CLIBinding struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Value     string      `json:"value,omitempty"`
	Scope     int         `json:"scope"`
	Canonical bool        `json:"canonical"`
	Location  CLILocation `json:"location"`
}

// CLIReference is a JSON-friendly reference.
type CLIReference struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Scope    int         `json:"scope"`
	Resolved bool        `json:"resolved"`
	Location CLILocation `json:"location"`
}

// CLIDiagnostic is a JSON-friendly diagnostic.
type CLIDiagnostic struct {
	Rule     string      `json:"rule"`
	Severity string      `json:"severity"`
	Message  string      `json:"message"`
	Notes    []string    `json:"notes,omitempty"`
	Fixable  bool        `json:"fixable"`
	Location CLILocation `json:"location"`
}

// CLIFile is a JSON-friendly file representation.
type CLIFile struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Language  string `json:"language"`
	LineCount int    `json:"line_count"`
}

// CLIRule describes one registered rule.
type CLIRule struct {
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
	Severity string `json:"severity"`
	Enabled  bool   `json:"enabled"`
	Doc      string `json:"doc,omitempty"`
}

// CLIIndexReport summarises an index run.
type CLIIndexReport struct {
	Run         string   `json:"run"`
	Database    string   `json:"database"`
	Indexed     []string `json:"indexed"`
	Skipped     int      `json:"skipped"`
	Pruned      []string `json:"pruned,omitempty"`
	Diagnostics int      `json:"diagnostics"`
	DurationMS  int64    `json:"duration_ms"`
}

// CLIChange is one file event reported by watch.
type CLIChange struct {
	Path        string          `json:"path"`
	Op          string          `json:"op"`
	Diagnostics []CLIDiagnostic `json:"diagnostics,omitempty"`
}
