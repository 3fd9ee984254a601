package thicket

import (
	"github.com/jward/thicket/internal/binding"
	"github.com/jward/thicket/internal/lint"
	"github.com/jward/thicket/internal/store"
	"github.com/jward/thicket/internal/syntax"
)

// Rows store 0-based lines and byte columns, like syntax.Position.

func declarationRow(fileID int64, name, value string, scope binding.ScopeID, r syntax.Range, lines *syntax.LineIndex) *store.Declaration {
	start, end := lines.Position(r.Start), lines.Position(r.End)
	return &store.Declaration{
		FileID:    fileID,
		Name:      name,
		Value:     value,
		Scope:     int(scope),
		StartByte: int(r.Start),
		EndByte:   int(r.End),
		StartLine: start.Line,
		StartCol:  start.Col,
		EndLine:   end.Line,
		EndCol:    end.Col,
	}
}

func referenceRow(fileID int64, ref binding.Reference, lines *syntax.LineIndex) *store.Reference {
	start, end := lines.Position(ref.Range.Start), lines.Position(ref.Range.End)
	return &store.Reference{
		FileID:    fileID,
		Name:      ref.Name,
		Scope:     int(ref.Scope),
		StartByte: int(ref.Range.Start),
		EndByte:   int(ref.Range.End),
		StartLine: start.Line,
		StartCol:  start.Col,
		EndLine:   end.Line,
		EndCol:    end.Col,
	}
}

func diagnosticRow(fileID int64, runID string, d lint.Diagnostic) *store.Diagnostic {
	return &store.Diagnostic{
		FileID:    fileID,
		RunID:     runID,
		Rule:      d.Rule,
		Severity:  d.Severity.String(),
		Message:   d.Message,
		Notes:     d.Notes,
		Fixable:   d.Fix != nil,
		StartLine: d.Start.Line,
		StartCol:  d.Start.Col,
		EndLine:   d.End.Line,
		EndCol:    d.End.Col,
	}
}
