package thicket

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/thicket/internal/store"
	"github.com/jward/thicket/scripts"
)

const (
	testTurtle = "@prefix ex: <http://e/> .\n" +
		"@prefix dc: <http://purl.org/dc/elements/1.1/> .\n" +
		"ex:s ex:p ex:o .\n"
	testYAML = "a: &x 1\nb: *x\nc: *y\n"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// writeFile writes src under dir and returns the path.
func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func ruleNames(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Rule
	}
	return out
}

func TestNew_CreatesStore(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	require.NotNil(t, e.Store())

	_, err := e.Store().InsertFile(&store.File{Path: "/tmp/x.ttl", Language: "turtle"})
	require.NoError(t, err)
}

func TestNew_WithoutDatabase(t *testing.T) {
	t.Parallel()
	e, err := New("")
	require.NoError(t, err)
	defer e.Close()

	assert.Nil(t, e.Store())
	_, err = e.IndexFiles(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = e.Query().Unused("", Pagination{})
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestNew_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := New("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

func TestNew_UnknownRuleConfig(t *testing.T) {
	t.Parallel()
	_, err := New("", WithRuleConfig(map[string]string{"no-such-rule": "error"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-rule")
}

func TestWithLanguages(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithLanguages("yaml"))

	assert.True(t, e.Supports("a.yaml"))
	assert.False(t, e.Supports("a.ttl"))
	_, err := e.AnalyzeSource(context.Background(), "a.ttl", []byte(testTurtle))
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestAnalyzeSource_Turtle(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	res, err := e.AnalyzeSource(context.Background(), "doc.ttl", []byte(testTurtle))
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, "turtle", res.Language)
	assert.NoError(t, res.RuleErr)
	assert.Equal(t, []string{"unused-prefix"}, ruleNames(res.Diagnostics))
	assert.Equal(t, `prefix "dc:" is declared but never used`, res.Diagnostics[0].Message)
	assert.Equal(t, 1, res.Diagnostics[0].Start.Line)
	assert.False(t, res.HasErrors())

	require.NotNil(t, res.Bindings())
	assert.Equal(t, 2, res.Stats.Declarations)
	assert.Equal(t, 3, res.Stats.References)
}

func TestAnalyzeSource_YAML(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	res, err := e.AnalyzeSource(context.Background(), "doc.yml", []byte(testYAML))
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, "yaml", res.Language)
	assert.Equal(t, []string{"undeclared-alias"}, ruleNames(res.Diagnostics))
	assert.True(t, res.HasErrors())
	assert.Equal(t, 1, res.Stats.Unresolved)

	res.Close()
	assert.Nil(t, res.Bindings())
	res.Close()
}

func TestAnalyzeSource_UnsupportedExtension(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	_, err := e.AnalyzeSource(context.Background(), "readme.txt", []byte("hi"))
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestAnalyzeSource_RuleConfig(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithRuleConfig(map[string]string{
		"unused-prefix":    "off",
		"undeclared-alias": "info",
	}))
	ctx := context.Background()

	res, err := e.AnalyzeSource(ctx, "doc.ttl", []byte(testTurtle))
	require.NoError(t, err)
	res.Close()
	assert.Empty(t, res.Diagnostics)
	assert.False(t, e.RuleEnabled("unused-prefix"))

	res, err = e.AnalyzeSource(ctx, "doc.yaml", []byte(testYAML))
	require.NoError(t, err)
	res.Close()
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, SeverityInfo, res.Diagnostics[0].Severity)
}

func TestAnalyzeSource_ScriptRules(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"yaml/every-anchor.risor": {Data: []byte("// doc: report every anchor\n// severity: error\n" +
			"for _, d := range declarations() {\n" +
			"    report({\"message\": \"anchor \" + d[\"name\"], \"start\": d[\"start\"], \"end\": d[\"end\"]})\n" +
			"}\n")},
	}
	e := newTestEngine(t, WithScriptsFS(fsys))

	res, err := e.AnalyzeSource(context.Background(), "doc.yaml", []byte(testYAML))
	require.NoError(t, err)
	defer res.Close()

	require.NoError(t, res.RuleErr)
	assert.Equal(t, []string{"every-anchor", "undeclared-alias"}, ruleNames(res.Diagnostics))
	assert.Equal(t, "anchor x", res.Diagnostics[0].Message)
	assert.Equal(t, SeverityError, res.Diagnostics[0].Severity)
}

func TestAnalyzeSource_EmbeddedScripts(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithScriptsFS(scripts.Rules()))

	var names []string
	for _, a := range e.Rules() {
		names = append(names, a.Name)
	}
	assert.Contains(t, names, "well-known-prefix")
	assert.Contains(t, names, "anchor-fanout")

	src := "@prefix rdf: <http://example.org/not-rdf#> .\nrdf:x rdf:y rdf:z .\n"
	res, err := e.AnalyzeSource(context.Background(), "doc.ttl", []byte(src))
	require.NoError(t, err)
	defer res.Close()
	require.NoError(t, res.RuleErr)
	assert.Contains(t, ruleNames(res.Diagnostics), "well-known-prefix")
}

func TestAnalyzeSource_ScriptClashesWithBuiltin(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"turtle/unused-prefix.risor": {Data: []byte("// doc: clash\n")},
	}
	_, err := New("", WithScriptsFS(fsys))
	require.Error(t, err)
}

func TestAnalyzeSource_Metrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	e := newTestEngine(t, WithRegisterer(reg))

	res, err := e.AnalyzeSource(context.Background(), "doc.ttl", []byte(testTurtle))
	require.NoError(t, err)
	res.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Documents.WithLabelValues("turtle")))
	assert.Equal(t, 3.0, testutil.ToFloat64(e.metrics.References.WithLabelValues("turtle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Diagnostics.WithLabelValues("unused-prefix", "warning")))
}

func TestLintFiles(t *testing.T) {
	t.Parallel()
	for _, parallel := range []bool{true, false} {
		e := newTestEngine(t, WithParallel(parallel, 2))
		dir := t.TempDir()
		ttl := writeFile(t, dir, "a.ttl", testTurtle)
		yml := writeFile(t, dir, "b.yaml", testYAML)
		txt := writeFile(t, dir, "c.txt", "ignored")

		results, err := e.LintFiles(context.Background(), []string{yml, txt, ttl})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, yml, results[0].Path)
		assert.Equal(t, ttl, results[1].Path)
		for _, r := range results {
			assert.Nil(t, r.Document, "results are closed")
			assert.Len(t, r.Diagnostics, 1)
		}
	}
}

func TestLintFiles_CollectsErrors(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	dir := t.TempDir()
	ttl := writeFile(t, dir, "a.ttl", testTurtle)

	results, err := e.LintFiles(context.Background(), []string{filepath.Join(dir, "missing.ttl"), ttl})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lint had 1 error(s)")
	require.Len(t, results, 1)
	assert.Equal(t, ttl, results[0].Path)
}

func TestLintFiles_Cancelled(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ttl := writeFile(t, t.TempDir(), "a.ttl", testTurtle)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.LintFiles(ctx, []string{ttl})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestIndexFiles(t *testing.T) {
	t.Parallel()
	for _, parallel := range []bool{true, false} {
		e := newTestEngine(t, WithParallel(parallel, 0))
		ctx := context.Background()
		dir := t.TempDir()
		ttl := writeFile(t, dir, "a.ttl", testTurtle)
		yml := writeFile(t, dir, "b.yaml", testYAML)
		txt := writeFile(t, dir, "c.txt", "ignored")

		report, err := e.IndexFiles(ctx, []string{ttl, yml, txt})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{ttl, yml}, report.Indexed)
		assert.Empty(t, report.Skipped)
		assert.Equal(t, 2, report.Run.FilesIndexed)
		assert.Equal(t, 2, report.Run.Diagnostics)
		require.NotNil(t, report.Run.FinishedAt)

		f, err := e.Store().FileByPath(ttl)
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, store.HashContent([]byte(testTurtle)), f.Hash)
		assert.Equal(t, 4, f.LineCount)

		decls, err := e.Store().DeclarationsByFile(f.ID)
		require.NoError(t, err)
		assert.Len(t, decls, 2)
		refs, err := e.Store().ReferencesByFile(f.ID)
		require.NoError(t, err)
		require.Len(t, refs, 3)
		for _, r := range refs {
			assert.NotNil(t, r.DeclarationID, "every ex: reference resolves")
		}
	}
}

func TestIndexFiles_SkipsUnchangedFiles(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ctx := context.Background()
	ttl := writeFile(t, t.TempDir(), "a.ttl", testTurtle)

	_, err := e.IndexFiles(ctx, []string{ttl})
	require.NoError(t, err)

	report, err := e.IndexFiles(ctx, []string{ttl})
	require.NoError(t, err)
	assert.Empty(t, report.Indexed)
	assert.Equal(t, []string{ttl}, report.Skipped)
}

func TestIndexFiles_ReindexesChangedFiles(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ctx := context.Background()
	ttl := writeFile(t, t.TempDir(), "a.ttl", testTurtle)

	_, err := e.IndexFiles(ctx, []string{ttl})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(ttl, []byte("@prefix ex: <http://e/> .\nex:s ex:p ex:o .\n"), 0o644))
	report, err := e.IndexFiles(ctx, []string{ttl})
	require.NoError(t, err)
	assert.Equal(t, []string{ttl}, report.Indexed)

	unused, err := e.Query().Unused("", Pagination{})
	require.NoError(t, err)
	assert.Empty(t, unused.Items, "old rows are replaced")
	diags, err := e.Query().Diagnostics(DiagnosticFilter{}, Pagination{})
	require.NoError(t, err)
	assert.Empty(t, diags.Items)
}

func TestIndexFiles_RuleChangeForcesReindex(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ttl := writeFile(t, t.TempDir(), "a.ttl", testTurtle)
	ctx := context.Background()

	e, err := New(dbPath)
	require.NoError(t, err)
	assert.True(t, e.RulesChanged(), "first run")
	_, err = e.IndexFiles(ctx, []string{ttl})
	require.NoError(t, err)
	assert.False(t, e.RulesChanged())
	require.NoError(t, e.Close())

	e, err = New(dbPath, WithRuleConfig(map[string]string{"unused-prefix": "error"}))
	require.NoError(t, err)
	defer e.Close()
	assert.True(t, e.RulesChanged())

	report, err := e.IndexFiles(ctx, []string{ttl})
	require.NoError(t, err)
	assert.Equal(t, []string{ttl}, report.Indexed)

	diags, err := e.Query().Diagnostics(DiagnosticFilter{MinSeverity: SeverityError}, Pagination{})
	require.NoError(t, err)
	require.Len(t, diags.Items, 1)
	assert.Equal(t, "unused-prefix", diags.Items[0].Rule)
}

func TestIndexDirectory_Prunes(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()
	ttl := writeFile(t, dir, "a.ttl", testTurtle)
	yml := writeFile(t, dir, "b.yaml", testYAML)

	_, err := e.IndexDirectory(ctx, dir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(yml))
	report, err := e.IndexDirectory(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{yml}, report.Pruned)
	assert.Equal(t, []string{ttl}, report.Skipped)

	files, err := e.Query().Files("", Pagination{})
	require.NoError(t, err)
	require.Len(t, files.Items, 1)
	assert.Equal(t, ttl, files.Items[0].Path)
}

func TestDiscoverFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := writeFile(t, dir, "a.ttl", testTurtle)
	b := writeFile(t, dir, "b.yaml", testYAML)
	f := writeFile(t, dir, "sub/f.yml", testYAML)
	writeFile(t, dir, "c.txt", "x")
	writeFile(t, dir, ".hidden/d.ttl", testTurtle)
	writeFile(t, dir, "node_modules/e.yaml", testYAML)

	tests := []struct {
		name             string
		include, exclude []string
		want             []string
	}{
		{"all", nil, nil, []string{a, b, f}},
		{"exclude", nil, []string{"sub/**"}, []string{a, b}},
		{"include", []string{"**/*.ttl"}, nil, []string{a}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New("", WithFilter(tt.include, tt.exclude))
			require.NoError(t, err)
			got, err := e.DiscoverFiles(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
