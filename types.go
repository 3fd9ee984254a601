package thicket

import (
	"github.com/jward/thicket/internal/binding"
	"github.com/jward/thicket/internal/lint"
	"github.com/jward/thicket/internal/store"
)

// Public type aliases for internal types used in the Engine and
// QueryBuilder APIs. External consumers use these names; no conversion is
// needed.

type Store = store.Store
type File = store.File
type Run = store.Run

type Analyzer = lint.Analyzer
type Diagnostic = lint.Diagnostic
type Severity = lint.Severity
type TextEdit = lint.TextEdit

type Stats = binding.Stats

const (
	SeverityInfo    = lint.SeverityInfo
	SeverityWarning = lint.SeverityWarning
	SeverityError   = lint.SeverityError
)
