package thicket

import (
	"context"
	"fmt"
	goruntime "runtime"
	"sync"

	"github.com/jward/thicket/internal/store"
)

// numWorkers returns the pool size for n items.
func (e *Engine) numWorkers(n int) int {
	if !e.useParallel {
		return 1
	}
	w := e.workers
	if w <= 0 {
		w = goruntime.NumCPU()
	}
	return max(1, min(w, n))
}

// forEach runs fn over paths on the worker pool and returns the errors in
// the order they happened. fn receives the index of its path.
func (e *Engine) forEach(ctx context.Context, paths []string, fn func(int, string) error) []error {
	if len(paths) == 0 {
		return nil
	}
	type job struct {
		i    int
		path string
	}
	jobs := make(chan job, len(paths))
	for i, p := range paths {
		jobs <- job{i, p}
	}
	close(jobs)

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for range e.numWorkers(len(paths)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				err := ctx.Err()
				if err == nil {
					err = fn(j.i, j.path)
				}
				if err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	return errs
}

// indexParallel indexes files using a three-phase pipeline:
//
//	Phase A (serial):   Hash check, file records.
//	Phase B (parallel): Parse, bind and lint into a BatchedStore per file.
//	Phase C (serial):   Commit each batch to SQLite as it arrives.
func (e *Engine) indexParallel(ctx context.Context, paths []string, run *store.Run, force bool, report *IndexReport) error {
	var (
		items []workItem
		errs  []error
	)

	// ---- Phase A: Serial file preparation ----
	for _, path := range paths {
		item, skip, err := e.prepareFile(path, force)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			if item.path != "" {
				report.Skipped = append(report.Skipped, path)
			}
			continue
		}
		items = append(items, item)
	}

	// ---- Phase B: Parallel extraction ----
	type result struct {
		item  workItem
		batch *store.BatchedStore
		diags int
		err   error
	}
	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range e.numWorkers(len(items)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{item: item, err: err}
					continue
				}
				batch := store.NewBatchedStore(e.store)
				n, err := e.extractInto(ctx, batch, item, run.ID)
				resultCh <- result{item: item, batch: batch, diags: n, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("extract %s: %w", res.item.path, res.err))
			continue
		}
		if err := e.store.CommitBatch(res.batch, res.item.file.ID); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
			continue
		}
		if err := e.finishFile(res.item); err != nil {
			errs = append(errs, err)
			continue
		}
		run.Diagnostics += res.diags
		report.Indexed = append(report.Indexed, res.item.path)
	}

	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}
