package lint

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/jward/thicket/internal/syntax"
)

// Run executes every analyzer that applies to doc.Language concurrently.
// All of them share doc and its model. A failing or panicking analyzer does
// not stop the others; its error is joined into the returned error and the
// diagnostics of the rest are still returned, sorted by position then rule.
func Run(ctx context.Context, doc *Document, analyzers []*Analyzer) ([]Diagnostic, error) {
	lines := syntax.NewLineIndex(doc.Source)

	var (
		mu    sync.Mutex
		diags []Diagnostic
		errs  []error
		wg    sync.WaitGroup
	)
	collect := func(d Diagnostic) {
		mu.Lock()
		diags = append(diags, d)
		mu.Unlock()
	}

	for _, a := range analyzers {
		if a.Language != "" && a.Language != doc.Language {
			continue
		}
		if err := ctx.Err(); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(a *Analyzer) {
			defer wg.Done()
			pass := &Pass{Document: doc, Analyzer: a, Lines: lines, ctx: ctx, report: collect}
			if err := runOne(pass); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(a)
	}
	wg.Wait()

	SortDiagnostics(diags)
	return diags, errors.Join(errs...)
}

func runOne(pass *Pass) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lint: %s: panic: %v", pass.Analyzer.Name, r)
		}
	}()
	if err := pass.Analyzer.Run(pass); err != nil {
		return fmt.Errorf("lint: %s: %w", pass.Analyzer.Name, err)
	}
	return nil
}

// SortDiagnostics orders diags by start offset, then end offset, then rule.
func SortDiagnostics(diags []Diagnostic) {
	slices.SortStableFunc(diags, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Range.Start, b.Range.Start),
			cmp.Compare(a.Range.End, b.Range.End),
			cmp.Compare(a.Rule, b.Rule),
		)
	})
}

// ErrOverlappingEdits is returned by ApplyEdits when two edits touch the
// same bytes.
var ErrOverlappingEdits = errors.New("lint: overlapping edits")

// ApplyEdits returns src with edits applied. Edits may come in any order.
func ApplyEdits(src []byte, edits []TextEdit) ([]byte, error) {
	sorted := slices.Clone(edits)
	slices.SortFunc(sorted, func(a, b TextEdit) int {
		return cmp.Compare(a.Range.Start, b.Range.Start)
	})

	out := make([]byte, 0, len(src))
	pos := uint32(0)
	for _, e := range sorted {
		if e.Range.Start < pos {
			return nil, fmt.Errorf("%w at %s", ErrOverlappingEdits, e.Range)
		}
		if int(e.Range.End) > len(src) || e.Range.End < e.Range.Start {
			return nil, fmt.Errorf("lint: edit %s out of bounds", e.Range)
		}
		out = append(out, src[pos:e.Range.Start]...)
		out = append(out, e.NewText...)
		pos = e.Range.End
	}
	return append(out, src[pos:]...), nil
}

// Fixes gathers the edits of every fixable diagnostic, skipping any fix that
// would overlap one already taken. An edit identical to one already taken
// counts as applied, so diagnostics may share an edit.
func Fixes(diags []Diagnostic) []TextEdit {
	var taken []TextEdit
	for _, d := range diags {
		if d.Fix == nil {
			continue
		}
		var fresh []TextEdit
		for _, e := range d.Fix.Edits {
			if !slices.Contains(taken, e) {
				fresh = append(fresh, e)
			}
		}
		if slices.ContainsFunc(fresh, func(e TextEdit) bool { return overlapsAny(e, taken) }) {
			continue
		}
		taken = append(taken, fresh...)
	}
	return taken
}

func overlapsAny(e TextEdit, edits []TextEdit) bool {
	for _, o := range edits {
		if e.Range.Start < o.Range.End && o.Range.Start < e.Range.End {
			return true
		}
		// Two insertions at the same point would reorder unpredictably.
		if e.Range.Start == o.Range.Start {
			return true
		}
	}
	return false
}
