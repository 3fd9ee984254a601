package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/thicket"
	"github.com/jward/thicket/internal/lint"
	"github.com/jward/thicket/internal/syntax"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(root)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "sub", "deep")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(deep)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	got := findRepoRoot(dir)
	assert.Equal(t, dir, got)
}

func TestResolveDBPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		override   string
		configured string
		want       string
	}{
		{"default", "", "", "/repo/.thicket.db"},
		{"configured", "", "data/index.db", "/repo/data/index.db"},
		{"flag wins", "other.db", "data/index.db", "/repo/other.db"},
		{"absolute", "/tmp/x.db", "", "/tmp/x.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, resolveDBPath("/repo", tt.override, tt.configured))
		})
	}
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	err := validateFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json or text")
}

func TestParseIntArg(t *testing.T) {
	t.Parallel()
	n, err := parseIntArg("12", "line")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parseIntArg("-1", "line")
	assert.Error(t, err)
	_, err = parseIntArg("x", "col")
	assert.ErrorContains(t, err, "invalid col")
}

func TestDiagnosticToCLI(t *testing.T) {
	t.Parallel()
	d := lint.Diagnostic{
		Rule:     "unused-prefix",
		Severity: lint.SeverityWarning,
		Message:  "prefix dc: is never used",
		Start:    syntax.Position{Line: 1, Col: 0},
		End:      syntax.Position{Line: 1, Col: 40},
		Fix:      &lint.Fix{Description: "remove"},
	}
	got := diagnosticToCLI("/a.ttl", d)
	assert.Equal(t, "warning", got.Severity)
	assert.True(t, got.Fixable)
	assert.Equal(t, CLILocation{File: "/a.ttl", StartLine: 1, EndLine: 1, EndCol: 40}, got.Location)
}

func TestWriteResult_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	total := 1
	err := writeResult(&buf, "json", CLIResult{
		Command:    "unused",
		Results:    []CLIBinding{{ID: 3, Name: "dc:", Canonical: true, Location: CLILocation{File: "a.ttl", StartLine: 1}}},
		TotalCount: &total,
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "unused", got["command"])
	assert.EqualValues(t, 1, got["total_count"])
	results := got["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "dc:", results[0].(map[string]any)["name"])
}

func TestWriteResult_TextDiagnostics(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	total := 3
	err := writeResult(&buf, "text", CLIResult{
		Command: "lint",
		Results: []CLIDiagnostic{{
			Rule:     "undeclared-alias",
			Severity: "error",
			Message:  "alias *y has no anchor",
			Notes:    []string{"declare &y first"},
			Location: CLILocation{File: "c.yaml", StartLine: 2, StartCol: 3},
		}},
		TotalCount: &total,
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "c.yaml:3:4: error: alias *y has no anchor [undeclared-alias]\n")
	assert.Contains(t, out, "\tdeclare &y first\n")
	assert.Contains(t, out, "Showing 1 of 3 results")
}

func TestWriteResult_TextRules(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := writeResult(&buf, "text", CLIResult{
		Command: "rules",
		Results: []CLIRule{
			{Name: "unused-anchor", Language: "yaml", Severity: "warning", Enabled: false},
			{Name: "every-file", Severity: "info", Enabled: true},
		},
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Regexp(t, `unused-anchor\s+yaml\s+off`, out)
	assert.Regexp(t, `every-file\s+\*\s+info`, out)
}

func TestWriteResult_TextNilAndUnknown(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, "text", CLIResult{Command: "definition"}))
	assert.Empty(t, buf.String())

	err := writeResult(&buf, "text", CLIResult{Command: "x", Results: 42})
	assert.ErrorContains(t, err, "unsupported result type")
}

func TestExpandPaths(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "a.ttl"), []byte("@prefix ex: <http://e/> .\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.yaml"), []byte("a: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("#\n"), 0o644))
	single := filepath.Join(dir, "notes.md")

	engine, err := thicket.New("")
	require.NoError(t, err)
	defer engine.Close()

	paths, err := expandPaths(engine, []string{filepath.Join(dir, "sub"), single})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "sub", "a.ttl"),
		filepath.Join(dir, "sub", "b.yaml"),
		single,
	}, paths)

	_, err = expandPaths(engine, []string{filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "path not found")
}

func TestApplyFixes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "a.ttl")
	src := "@prefix ex: <http://e/> .\n@prefix dc: <http://purl.org/dc/elements/1.1/> .\nex:s ex:p ex:o .\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	engine, err := thicket.New("")
	require.NoError(t, err)
	defer engine.Close()

	ctx := context.Background()
	results, err := engine.LintFiles(ctx, []string{path})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotEmpty(t, results[0].Diagnostics)

	fixed, err := applyFixes(ctx, engine, results)
	require.NoError(t, err)
	require.Len(t, fixed, 1)
	assert.Empty(t, fixed[0].Diagnostics)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "@prefix dc:")
	assert.Contains(t, string(data), "ex:s ex:p ex:o .")
}
