package runtime

import (
	"context"
	"log/slog"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/thicket/internal/lint"
	"github.com/jward/thicket/internal/syntax"
)

// makeQueryFn creates the "query" host function for documents backed by a
// tree-sitter tree.
//
// query(pattern) → []map[string]map
//
// Each match maps capture names to {kind, text, start, end, line, col}.
// Nodes never cross into the script, so scripts cannot outlive the tree.
func makeQueryFn(pass *lint.Pass) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("query", 1, len(args))
		}

		pattern, err := toString(args[0])
		if err != nil {
			return object.Errorf("query: pattern must be a string, got %s", args[0].Type())
		}

		root, ok := syntax.TreeSitterNode(pass.Root)
		if !ok {
			return object.Errorf("query: %s documents have no tree-sitter tree", pass.Language)
		}

		lang, found := GrammarForLanguage(pass.Language)
		if !found {
			return object.Errorf("query: no grammar for language %q", pass.Language)
		}

		q, err := sitter.NewQuery([]byte(pattern), lang)
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, root)

		results := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, pass.Source)

			matchMap := make(map[string]object.Object, len(match.Captures))
			for _, capture := range match.Captures {
				name := q.CaptureNameForId(capture.Index)
				r := syntax.NewRange(capture.Node.StartByte(), capture.Node.EndByte())
				matchMap[name] = object.NewMap(rangeFields(pass, map[string]object.Object{
					"kind": object.NewString(capture.Node.Type()),
					"text": object.NewString(pass.Text(r)),
				}, r))
			}
			results = append(results, object.NewMap(matchMap))
		}
		return object.NewList(results)
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
