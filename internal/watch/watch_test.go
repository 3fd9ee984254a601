package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, root string) (*Watcher, context.CancelFunc) {
	t.Helper()
	w, err := New(Config{
		Root:     root,
		Debounce: 20 * time.Millisecond,
		Filter:   func(p string) bool { return strings.HasSuffix(p, ".ttl") },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	// Give Run a moment to register its watches.
	time.Sleep(50 * time.Millisecond)
	return w, cancel
}

// nextBatch waits for a batch containing path.
func nextBatch(t *testing.T, w *Watcher, path string) []Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case batch, ok := <-w.Events():
			require.True(t, ok, "events closed")
			for _, e := range batch {
				if e.Path == path {
					return batch
				}
			}
		case <-deadline:
			t.Fatalf("no event for %s", path)
		}
	}
}

func TestWatcher_ReportsChangesAndDeletes(t *testing.T) {
	root := t.TempDir()
	w, _ := newTestWatcher(t, root)

	path := filepath.Join(root, "a.ttl")
	require.NoError(t, os.WriteFile(path, []byte("@prefix ex: <http://e/> .\n"), 0644))
	batch := nextBatch(t, w, path)
	assert.Contains(t, batch, Event{Path: path, Op: OpChange})

	require.NoError(t, os.Remove(path))
	batch = nextBatch(t, w, path)
	assert.Contains(t, batch, Event{Path: path, Op: OpDelete})
}

func TestWatcher_NewDirectoriesAreWatched(t *testing.T) {
	root := t.TempDir()
	w, _ := newTestWatcher(t, root)

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(sub, "b.ttl")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	nextBatch(t, w, path)
}

func TestFlushPending_SkipsUnchangedContent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "a.ttl")
	require.NoError(t, os.WriteFile(path, []byte("same"), 0644))

	w, err := New(Config{Root: root})
	require.NoError(t, err)
	t.Cleanup(func() { w.watcher.Close() })

	w.Seed(path, []byte("same"))
	w.pending[path] = 0
	assert.Empty(t, w.flushPending())

	require.NoError(t, os.WriteFile(path, []byte("different"), 0644))
	w.pending[path] = 0
	assert.Equal(t, []Event{{Path: path, Op: OpChange}}, w.flushPending())
}

func TestSkipDir(t *testing.T) {
	t.Parallel()
	assert.True(t, skipDir("/x/.git"))
	assert.True(t, skipDir("/x/node_modules"))
	assert.False(t, skipDir("/x/ontologies"))
	assert.False(t, skipDir("."))
}
