package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/thicket/internal/lint"
	"github.com/jward/thicket/internal/turtle"
	"github.com/jward/thicket/internal/yamldoc"
)

// --- Language detection tests ---

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"onto.ttl", "turtle", true},
		{"onto.turtle", "turtle", true},
		{"config.yaml", "yaml", true},
		{"config.yml", "yaml", true},
		{"path/to/FILE.TTL", "turtle", true},
		{"file.txt", "", false},
		{"Makefile", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, ok := LanguageForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrammarForLanguage(t *testing.T) {
	t.Parallel()

	l, ok := GrammarForLanguage("yaml")
	require.True(t, ok)
	assert.NotNil(t, l)

	_, ok = GrammarForLanguage("turtle")
	assert.False(t, ok, "turtle is parsed without tree-sitter")
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`result := 1 + 1`), 0644))

	rt := NewRuntime(dir)
	require.NoError(t, rt.RunScript(context.Background(), "test.risor", nil))
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(t.TempDir())
	err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{
		"turtle/rule.risor": &fstest.MapFile{Data: []byte(content)},
	}))

	got, err := rt.LoadScript("turtle/rule.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Absolute-style path should be resolved within the FS.
	got, err = rt.LoadScript("/turtle/rule.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = rt.LoadScript("missing.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FallsBackToDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`z := 7`), 0644))

	rt := NewRuntime(dir)
	got, err := rt.LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, `z := 7`, got)
}

func TestRuleScriptPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "yaml/anchor-fanout.risor", RuleScriptPath("yaml", "anchor-fanout"))
}

// --- Importer wiring ---

func TestImport_FSImporter(t *testing.T) {
	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	rt := NewRuntime(dir)
	script := `
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestLog_GoesToSlog(t *testing.T) {
	var buf bytes.Buffer
	rt := NewRuntime("", WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	require.NoError(t, rt.RunSource(context.Background(), `log.Warn("careful")`, nil))
	assert.Contains(t, buf.String(), "careful")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "script=<inline>")
}

// --- Headers and discovery ---

func TestParseHeader(t *testing.T) {
	t.Parallel()

	h, err := parseHeader("// doc: Flags things.\n// severity: error\n\nx := 1\n// severity: info\n")
	require.NoError(t, err)
	assert.Equal(t, "Flags things.", h.doc)
	assert.Equal(t, lint.SeverityError, h.severity)

	h, err = parseHeader("x := 1\n")
	require.NoError(t, err)
	assert.Equal(t, lint.SeverityWarning, h.severity)

	_, err = parseHeader("// severity: loud\n")
	require.Error(t, err)
}

func TestScriptAnalyzers_Discovery(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{
		"turtle/a.risor":   &fstest.MapFile{Data: []byte("// severity: info\n")},
		"yaml/b.risor":     &fstest.MapFile{Data: []byte("// doc: B\n")},
		"helpers.risor":    &fstest.MapFile{Data: []byte("")},
		"python/c.risor":   &fstest.MapFile{Data: []byte("")},
		"turtle/notes.txt": &fstest.MapFile{Data: []byte("")},
	}))

	got, err := rt.ScriptAnalyzers()
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "turtle", got[0].Language)
	assert.Equal(t, lint.SeverityInfo, got[0].Severity)

	assert.Equal(t, "b", got[1].Name)
	assert.Equal(t, "yaml", got[1].Language)
	assert.Equal(t, "B", got[1].Doc)
	assert.Equal(t, lint.SeverityWarning, got[1].Severity)
}

func TestScriptAnalyzers_NoSource(t *testing.T) {
	t.Parallel()

	got, err := NewRuntime("").ScriptAnalyzers()
	require.NoError(t, err)
	assert.Empty(t, got)
}

// --- Scripts running as lint rules ---

func turtleDoc(t *testing.T, src string) *lint.Document {
	t.Helper()
	d, err := turtle.Analyze(context.Background(), []byte(src))
	require.NoError(t, err)
	return lint.TurtleDocument("test.ttl", d)
}

func yamlDoc(t *testing.T, src string) *lint.Document {
	t.Helper()
	d, err := yamldoc.Analyze(context.Background(), []byte(src))
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return lint.YAMLDocument("test.yaml", d)
}

func scriptRules(t *testing.T, files map[string]string) []*lint.Analyzer {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, src := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	analyzers, err := NewRuntime("", WithRuntimeFS(fsys)).ScriptAnalyzers()
	require.NoError(t, err)
	return analyzers
}

func TestScriptRule_DeclarationsAndReport(t *testing.T) {
	t.Parallel()

	analyzers := scriptRules(t, map[string]string{
		"turtle/no-ex.risor": `// severity: error
for _, d := range declarations() {
    if d["name"] == "ex:" {
        line := d["line"]
        report({"message": "no ex please", "start": d["start"], "end": d["end"], "notes": ['line {line}']})
    }
}
`,
	})

	src := "@prefix foo: <http://f/> .\n@prefix ex: <http://e/> .\nex:a foo:b ex:c .\n"
	diags, err := lint.Run(context.Background(), turtleDoc(t, src), analyzers)
	require.NoError(t, err)
	require.Len(t, diags, 1)

	d := diags[0]
	assert.Equal(t, "no-ex", d.Rule)
	assert.Equal(t, lint.SeverityError, d.Severity)
	assert.Equal(t, "no ex please", d.Message)
	assert.Equal(t, "@prefix ex: <http://e/> .", src[d.Range.Start:d.Range.End])
	assert.Equal(t, 1, d.Start.Line)
	assert.Equal(t, []string{"line 1"}, d.Notes)
}

func TestScriptRule_TurtleHelpers(t *testing.T) {
	t.Parallel()

	analyzers := scriptRules(t, map[string]string{
		"turtle/helpers.risor": `
assert(language == "turtle", "language")
assert(file_path == "test.ttl", "file_path")
assert(contract_iri("http://e/thing") == "ex:thing", "contract")
assert(contract_iri("http://nowhere/x") == nil, "contract miss")
assert(expand_prefixed_name("ex:thing") == "http://e/thing", "expand")
assert(expand_prefixed_name("zz:thing") == nil, "expand miss")
assert(len(triples()) == 2, "triples")
assert(len(unresolved()) == 1, "unresolved")
assert(unresolved()[0]["name"] == "zz:", "unresolved name")
assert(len(unused()) == 0, "unused")
assert(resolve("ex:")["value"] == "http://e/", "resolve")
assert(resolve("nope:") == nil, "resolve miss")
assert(len(usages("ex:")) == 4, "usages")
assert(text(0, 7) == "@prefix", "text")
report({"message": "ran", "start": 0, "end": 0, "severity": "info"})
`,
	})

	src := "@prefix ex: <http://e/> .\nex:a ex:b ex:c ; ex:b zz:d .\n"
	diags, err := lint.Run(context.Background(), turtleDoc(t, src), analyzers)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "ran", diags[0].Message)
	assert.Equal(t, lint.SeverityInfo, diags[0].Severity)
}

func TestScriptRule_YAMLQueryAndScopes(t *testing.T) {
	t.Parallel()

	analyzers := scriptRules(t, map[string]string{
		"yaml/aliases.risor": `
matches := query("(alias) @a")
assert(len(matches) == 2, 'expected 2 alias matches, got {len(matches)}')
for _, m := range matches {
    report({"message": "alias " + m["a"]["text"], "start": m["a"]["start"], "end": m["a"]["end"]})
}
assert(len(declarations()) == 2, "anchors")
assert(resolve("x", 1)["scope"] == 1, "scoped resolve")
assert(len(usages("x", 0)) == 1, "usages doc 0")
`,
	})

	src := "a: &x 1\nb: *x\n---\nc: &x 2\nd: *x\n"
	diags, err := lint.Run(context.Background(), yamlDoc(t, src), analyzers)
	require.NoError(t, err)
	require.Len(t, diags, 2)
	assert.Equal(t, "alias *x", diags[0].Message)
	assert.Equal(t, 1, diags[0].Start.Line)
	assert.Equal(t, 4, diags[1].Start.Line)
}

func TestScriptRule_ErrorsSurface(t *testing.T) {
	t.Parallel()

	analyzers := scriptRules(t, map[string]string{
		"turtle/broken.risor": `report({"start": 0, "end": 0})`,
		"turtle/fine.risor":   `report({"message": "ok", "start": 0, "end": 0})`,
	})

	diags, err := lint.Run(context.Background(), turtleDoc(t, "@prefix ex: <http://e/> .\n"), analyzers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, err.Error(), "message is required")
	require.Len(t, diags, 1)
	assert.Equal(t, "fine", diags[0].Rule)
}

func TestScriptRule_ReportRejectsBadRange(t *testing.T) {
	t.Parallel()

	analyzers := scriptRules(t, map[string]string{
		"turtle/oob.risor": `report({"message": "x", "start": 0, "end": 10000})`,
	})
	_, err := lint.Run(context.Background(), turtleDoc(t, "@prefix ex: <http://e/> .\n"), analyzers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad range")
}

func TestScriptRule_ScopeOutOfRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		call string
	}{
		{"past uint32", `resolve("x", 4294967296)`},
		{"negative", `usages("x", -1)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			analyzers := scriptRules(t, map[string]string{"yaml/scope.risor": tt.call + "\n"})
			_, err := lint.Run(context.Background(), yamlDoc(t, "a: &x 1\nb: *x\n"), analyzers)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "out of range")
		})
	}
}

func TestScriptRule_ImportsSharedModule(t *testing.T) {
	t.Parallel()

	analyzers := scriptRules(t, map[string]string{
		"shared.risor":       "banned := \"ex:\"\n",
		"turtle/banned.risor": "import shared\nfor _, d := range declarations() {\n    if d[\"name\"] == shared.banned {\n        report({\"message\": \"banned\", \"start\": d[\"start\"], \"end\": d[\"end\"]})\n    }\n}\n",
	})

	diags, err := lint.Run(context.Background(), turtleDoc(t, "@prefix ex: <http://e/> .\n"), analyzers)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "banned", diags[0].Message)
}
