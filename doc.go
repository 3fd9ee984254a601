// Package thicket binds names to declarations in Turtle (RDF) and YAML
// documents and lints the result.
//
// # Pipeline
//
// For each document thicket:
//
//  1. Parses it: a hand-written error-tolerant parser for Turtle, the
//     tree-sitter grammar for YAML.
//  2. Walks the tree once in preorder; a language extractor emits
//     declaration and reference events (Turtle prefixes and prefixed names,
//     YAML anchors and aliases).
//  3. Folds the events into an immutable binding model: canonical
//     declarations, duplicates, resolved and unresolved references, unused
//     declarations.
//  4. Runs the enabled rules concurrently against the shared model: the
//     built-in analyzers plus any Risor rule scripts.
//
// # Usage
//
//	e, err := thicket.New(".thicket.db", thicket.WithScriptsFS(scripts.Rules()))
//	if err != nil { ... }
//	defer e.Close()
//
//	results, err := e.LintFiles(ctx, paths)
//	report, err := e.IndexDirectory(ctx, "path/to/project")
//	unused, err := e.Query().Unused("turtle", thicket.Pagination{})
//
// # Incremental Indexing
//
// [Engine.IndexFiles] detects unchanged files via content hashing and skips
// them. When the rule scripts or the rule configuration change, every file
// is reindexed. Use [WithLanguages] to restrict which languages the Engine
// processes.
//
// # Scripts
//
// Rule scripts live under <language>/<name>.risor and start with a header:
//
//	// doc: one-line description
//	// severity: warning
//
// See the internal/runtime package for the globals exposed to scripts.
package thicket
