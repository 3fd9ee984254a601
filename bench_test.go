package thicket

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jward/thicket/scripts"
)

// benchTurtle builds a vocabulary of n resources that all use the same
// handful of prefixes, with one unused and one undefined prefix so every
// built-in rule has something to look at.
func benchTurtle(n int) string {
	var sb strings.Builder
	sb.WriteString("@prefix ex: <http://example.org/vocab#> .\n")
	sb.WriteString("@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .\n")
	sb.WriteString("@prefix owl: <http://www.w3.org/2002/07/owl#> .\n")
	sb.WriteString("@prefix unused: <http://example.org/unused#> .\n\n")
	for i := range n {
		fmt.Fprintf(&sb, "ex:Class%d a owl:Class ;\n", i)
		fmt.Fprintf(&sb, "    rdfs:label \"Class %d\" ;\n", i)
		fmt.Fprintf(&sb, "    rdfs:subClassOf <http://example.org/vocab#Base>, zz:Other .\n\n")
	}
	return sb.String()
}

// benchYAML builds a stream of n documents, each with an anchor aliased
// twice.
func benchYAML(n int) string {
	var sb strings.Builder
	for i := range n {
		if i > 0 {
			sb.WriteString("---\n")
		}
		fmt.Fprintf(&sb, "base: &base%d\n  image: app:%d\n  restart: always\n", i, i)
		fmt.Fprintf(&sb, "web:\n  <<: *base%d\n  port: 80\n", i)
		fmt.Fprintf(&sb, "worker:\n  <<: *base%d\n  command: run\n", i)
	}
	return sb.String()
}

func benchEngine(b *testing.B, dbPath string) *Engine {
	b.Helper()
	e, err := New(dbPath, WithScriptsFS(scripts.Rules()))
	if err != nil {
		b.Fatal(err)
	}
	return e
}

func BenchmarkAnalyzeSource_Turtle(b *testing.B) {
	e := benchEngine(b, "")
	defer e.Close()
	src := []byte(benchTurtle(200))
	ctx := context.Background()

	b.SetBytes(int64(len(src)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := e.AnalyzeSource(ctx, "bench.ttl", src)
		if err != nil {
			b.Fatal(err)
		}
		res.Close()
	}
}

func BenchmarkAnalyzeSource_YAML(b *testing.B) {
	e := benchEngine(b, "")
	defer e.Close()
	src := []byte(benchYAML(200))
	ctx := context.Background()

	b.SetBytes(int64(len(src)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := e.AnalyzeSource(ctx, "bench.yaml", src)
		if err != nil {
			b.Fatal(err)
		}
		res.Close()
	}
}

// BenchmarkIndexFiles measures a full index of a small tree into a fresh
// database, parallel pipeline included.
func BenchmarkIndexFiles(b *testing.B) {
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		dir := b.TempDir()
		e := benchEngine(b, filepath.Join(dir, "bench.db"))
		var paths []string
		for j := range 8 {
			ttl := filepath.Join(dir, fmt.Sprintf("v%d.ttl", j))
			yml := filepath.Join(dir, fmt.Sprintf("c%d.yaml", j))
			if err := os.WriteFile(ttl, []byte(benchTurtle(50)), 0o644); err != nil {
				b.Fatal(err)
			}
			if err := os.WriteFile(yml, []byte(benchYAML(50)), 0o644); err != nil {
				b.Fatal(err)
			}
			paths = append(paths, ttl, yml)
		}
		b.StartTimer()

		if _, err := e.IndexFiles(ctx, paths); err != nil {
			e.Close()
			b.Fatal(err)
		}

		b.StopTimer()
		e.Close()
		b.StartTimer()
	}
}

// BenchmarkQueryUnused measures the query path over an indexed database.
func BenchmarkQueryUnused(b *testing.B) {
	dir := b.TempDir()
	e := benchEngine(b, filepath.Join(dir, "bench.db"))
	defer e.Close()
	path := filepath.Join(dir, "v.ttl")
	if err := os.WriteFile(path, []byte(benchTurtle(200)), 0o644); err != nil {
		b.Fatal(err)
	}
	if _, err := e.IndexFiles(context.Background(), []string{path}); err != nil {
		b.Fatal(err)
	}

	q := e.Query()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := q.Unused("", Pagination{}); err != nil {
			b.Fatal(err)
		}
	}
}
