package runtime

import (
	"context"
	"fmt"
	"math"

	"github.com/risor-io/risor/object"

	"github.com/jward/thicket/internal/binding"
	"github.com/jward/thicket/internal/lint"
	"github.com/jward/thicket/internal/syntax"
)

// passGlobals exposes one lint pass to a rule script. Risor scripts cannot
// construct Go structs, so everything crosses the boundary as maps of
// primitive values.
func passGlobals(pass *lint.Pass) map[string]any {
	m := pass.Bindings()
	g := map[string]any{
		"file_path":    object.NewString(pass.Path),
		"language":     object.NewString(pass.Language),
		"source":       object.NewString(string(pass.Source)),
		"declarations": makeListFn("declarations", func() object.Object { return declsToList(pass, m.Declarations()) }),
		"references":   makeListFn("references", func() object.Object { return refsToList(pass, m.References()) }),
		"unused":       makeListFn("unused", func() object.Object { return declsToList(pass, m.Unused()) }),
		"unresolved":   makeListFn("unresolved", func() object.Object { return refsToList(pass, m.Unresolved()) }),
		"duplicates":   makeListFn("duplicates", func() object.Object { return duplicatesToList(pass, m.Duplicates()) }),
		"resolve":      makeResolveFn(pass, m),
		"usages":       makeUsagesFn(pass, m),
		"text":         makeTextFn(pass),
		"report":       makeReportFn(pass),
	}
	if pass.Turtle != nil {
		g["triples"] = makeListFn("triples", func() object.Object { return triplesToList(pass) })
		g["contract_iri"] = makeStringLookupFn("contract_iri", pass.Turtle.ContractIRI)
		g["expand_prefixed_name"] = makeStringLookupFn("expand_prefixed_name", pass.Turtle.ExpandPrefixedName)
	}
	if pass.YAML != nil {
		g["query"] = makeQueryFn(pass)
	}
	return g
}

func makeListFn(name string, list func() object.Object) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError(name, 0, len(args))
		}
		return list()
	})
}

// resolve(name, scope) → declaration map or nil
func makeResolveFn(pass *lint.Pass, m *binding.Model) *object.Builtin {
	return object.NewBuiltin("resolve", func(ctx context.Context, args ...object.Object) object.Object {
		name, scope, err := keyArgs("resolve", args)
		if err != nil {
			return object.NewError(err)
		}
		d, ok := m.Resolve(name, scope)
		if !ok {
			return object.Nil
		}
		return declToMap(pass, d)
	})
}

// usages(name, scope) → list of reference maps
func makeUsagesFn(pass *lint.Pass, m *binding.Model) *object.Builtin {
	return object.NewBuiltin("usages", func(ctx context.Context, args ...object.Object) object.Object {
		name, scope, err := keyArgs("usages", args)
		if err != nil {
			return object.NewError(err)
		}
		d, ok := m.Resolve(name, scope)
		if !ok {
			return object.NewList([]object.Object{})
		}
		return refsToList(pass, m.UsagesOf(d))
	})
}

func keyArgs(fn string, args []object.Object) (string, binding.ScopeID, error) {
	if len(args) < 1 || len(args) > 2 {
		return "", 0, fmt.Errorf("%s: expected 1 or 2 arguments, got %d", fn, len(args))
	}
	name, err := toString(args[0])
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", fn, err)
	}
	var scope int64
	if len(args) == 2 {
		if scope, err = toInt64(args[1]); err != nil {
			return "", 0, fmt.Errorf("%s: %w", fn, err)
		}
		if scope < 0 || scope > math.MaxUint32 {
			return "", 0, fmt.Errorf("%s: scope %d out of range", fn, scope)
		}
	}
	return name, binding.ScopeID(scope), nil
}

// text(start, end) → source text of the byte range
func makeTextFn(pass *lint.Pass) *object.Builtin {
	return object.NewBuiltin("text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("text", 2, len(args))
		}
		start, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("text: %v", err)
		}
		end, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("text: %v", err)
		}
		if start < 0 || end < start {
			return object.Errorf("text: bad range %d..%d", start, end)
		}
		return object.NewString(pass.Text(syntax.NewRange(uint32(start), uint32(end))))
	})
}

// contract_iri(iri) / expand_prefixed_name(pname) → string or nil
func makeStringLookupFn(name string, lookup func(string) (string, bool)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		s, err := toString(args[0])
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		out, ok := lookup(s)
		if !ok {
			return object.Nil
		}
		return object.NewString(out)
	})
}

// report({message, start, end, severity?, notes?})
//
// severity defaults to the rule's own severity.
func makeReportFn(pass *lint.Pass) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("report", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("report: %v", err)
		}
		msg := getString(m, "message")
		if msg == "" {
			return object.Errorf("report: message is required")
		}
		start, end := getInt64(m, "start"), getInt64(m, "end")
		if start < 0 || end < start || end > int64(len(pass.Source)) {
			return object.Errorf("report: bad range %d..%d", start, end)
		}
		d := lint.Diagnostic{
			Message: msg,
			Range:   syntax.NewRange(uint32(start), uint32(end)),
		}
		if s := getString(m, "severity"); s != "" {
			sev, err := lint.ParseSeverity(s)
			if err != nil {
				return object.Errorf("report: %v", err)
			}
			d.Severity = sev
		}
		if notes, ok := m["notes"].(*object.List); ok {
			for _, n := range notes.Value() {
				if s, err := toString(n); err == nil {
					d.Notes = append(d.Notes, s)
				}
			}
		}
		pass.Report(d)
		return object.Nil
	})
}

func rangeFields(pass *lint.Pass, m map[string]object.Object, r syntax.Range) map[string]object.Object {
	pos := pass.Lines.Position(r.Start)
	m["start"] = object.NewInt(int64(r.Start))
	m["end"] = object.NewInt(int64(r.End))
	m["line"] = object.NewInt(int64(pos.Line))
	m["col"] = object.NewInt(int64(pos.Col))
	return m
}

func declToMap(pass *lint.Pass, d binding.Declaration) object.Object {
	return object.NewMap(rangeFields(pass, map[string]object.Object{
		"name":  object.NewString(d.Name),
		"value": object.NewString(d.Value),
		"scope": object.NewInt(int64(d.Scope)),
	}, d.Range))
}

func declsToList(pass *lint.Pass, decls []binding.Declaration) object.Object {
	results := make([]object.Object, 0, len(decls))
	for _, d := range decls {
		results = append(results, declToMap(pass, d))
	}
	return object.NewList(results)
}

func refsToList(pass *lint.Pass, refs []binding.Reference) object.Object {
	results := make([]object.Object, 0, len(refs))
	for _, r := range refs {
		results = append(results, object.NewMap(rangeFields(pass, map[string]object.Object{
			"name":  object.NewString(r.Name),
			"scope": object.NewInt(int64(r.Scope)),
		}, r.Range)))
	}
	return object.NewList(results)
}

func duplicatesToList(pass *lint.Pass, dupes []binding.Duplicate) object.Object {
	results := make([]object.Object, 0, len(dupes))
	for _, d := range dupes {
		ranges := make([]object.Object, 0, len(d.Ranges))
		for _, r := range d.Ranges {
			ranges = append(ranges, object.NewMap(rangeFields(pass, map[string]object.Object{}, r)))
		}
		results = append(results, object.NewMap(map[string]object.Object{
			"name":      object.NewString(d.Name),
			"scope":     object.NewInt(int64(d.Scope)),
			"canonical": object.NewMap(rangeFields(pass, map[string]object.Object{}, d.Canonical)),
			"ranges":    object.NewList(ranges),
		}))
	}
	return object.NewList(results)
}

func triplesToList(pass *lint.Pass) object.Object {
	triples := pass.Turtle.Triples()
	results := make([]object.Object, 0, len(triples))
	for _, t := range triples {
		results = append(results, object.NewMap(rangeFields(pass, map[string]object.Object{
			"subject":     object.NewString(t.Subject),
			"predicate":   object.NewString(t.Predicate),
			"object":      object.NewString(t.Object),
			"is_rdf_type": object.NewBool(t.IsRDFType),
		}, t.StatementRange)))
	}
	return object.NewList(results)
}

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getInt64(m map[string]object.Object, key string) int64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	if i, ok := v.(*object.Int); ok {
		return i.Value()
	}
	if f, ok := v.(*object.Float); ok {
		return int64(f.Value())
	}
	return 0
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
