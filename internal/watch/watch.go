// Package watch reports debounced changes to analysable files below a root
// directory.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config configures the file watcher
type Config struct {
	// Root is the directory to watch recursively.
	Root string
	// Debounce is how long changes accumulate before a batch is emitted.
	Debounce time.Duration
	// Filter selects the files of interest; nil accepts every file.
	Filter func(path string) bool
	Logger *slog.Logger
}

// Op is the kind of change.
type Op string

const (
	OpChange Op = "change"
	OpDelete Op = "delete"
)

// Event is one changed file. Path is absolute.
type Event struct {
	Path string
	Op   Op
}

// Watcher watches a tree for file changes and emits them in batches.
type Watcher struct {
	config  Config
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.Mutex
	hashes map[string]string

	events chan []Event
}

// New creates a watcher. Call Run to start it.
func New(config Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = 200 * time.Millisecond
	}
	if config.Filter == nil {
		config.Filter = func(string) bool { return true }
	}
	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  config.Logger,
		pending: make(map[string]fsnotify.Op),
		hashes:  make(map[string]string),
		events:  make(chan []Event, 16),
	}, nil
}

// Events returns the channel of change batches. It is closed when Run
// returns.
func (w *Watcher) Events() <-chan []Event {
	return w.events
}

// Run adds watches below Root and processes changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer w.watcher.Close()

	if err := w.addWatchesRecursive(w.config.Root); err != nil {
		return err
	}
	w.logger.Info("File watcher started",
		slog.String("root", w.config.Root),
		slog.Duration("debounce", w.config.Debounce))

	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			if batch := w.flushPending(); len(batch) > 0 {
				select {
				case w.events <- batch:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

// Seed records the current content hash of path so an event that does not
// change the bytes is not reported.
func (w *Watcher) Seed(path string, src []byte) {
	w.hashMu.Lock()
	w.hashes[path] = hashOf(src)
	w.hashMu.Unlock()
}

func skipDir(path string) bool {
	base := filepath.Base(path)
	return base == "vendor" || base == "node_modules" || (strings.HasPrefix(base, ".") && base != ".")
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	})
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !skipDir(path) {
				if err := w.addWatchesRecursive(path); err != nil {
					w.logger.Warn("Failed to watch new directory", slog.String("path", path), slog.String("error", err.Error()))
				}
			}
			return
		}
	}
	if !w.config.Filter(path) {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("File change detected", slog.String("path", path), slog.String("op", event.Op.String()))
}

// flushPending turns accumulated fsnotify operations into a sorted batch,
// dropping files whose content did not change.
func (w *Watcher) flushPending() []Event {
	w.pendingMu.Lock()
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var batch []Event
	for path := range toProcess {
		src, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			w.hashMu.Lock()
			_, known := w.hashes[path]
			delete(w.hashes, path)
			w.hashMu.Unlock()
			if known || toProcess[path].Has(fsnotify.Remove) || toProcess[path].Has(fsnotify.Rename) {
				batch = append(batch, Event{Path: path, Op: OpDelete})
			}
			continue
		}
		if err != nil {
			w.logger.Warn("Failed to read changed file", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}

		h := hashOf(src)
		w.hashMu.Lock()
		old, had := w.hashes[path]
		w.hashes[path] = h
		w.hashMu.Unlock()
		if had && old == h {
			continue
		}
		batch = append(batch, Event{Path: path, Op: OpChange})
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch
}

func hashOf(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}
