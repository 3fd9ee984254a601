package thicket

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jward/thicket/internal/binding"
	"github.com/jward/thicket/internal/lint"
	"github.com/jward/thicket/internal/metrics"
	"github.com/jward/thicket/internal/runtime"
	"github.com/jward/thicket/internal/store"
	"github.com/jward/thicket/internal/syntax"
	"github.com/jward/thicket/internal/turtle"
	"github.com/jward/thicket/internal/yamldoc"
)

var (
	// ErrUnsupportedLanguage is returned for files whose extension maps to
	// no language, or to a language the Engine was restricted away from.
	ErrUnsupportedLanguage = errors.New("thicket: unsupported language")

	// ErrNoStore is returned by operations that need a database when the
	// Engine was created without one.
	ErrNoStore = errors.New("thicket: no database configured")
)

const rulesHashKey = "rules_hash"

// Engine orchestrates the thicket pipeline: file discovery, parsing and
// binding, lint rules (built-in and scripted), change detection and
// persistence of outcomes.
type Engine struct {
	store    *store.Store // nil when created with an empty dbPath
	runtime  *runtime.Runtime
	registry *lint.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger

	scriptsDir string
	scriptsFS  fs.FS
	rules      map[string]string
	languages  map[string]bool // nil means all languages
	include    []string
	exclude    []string
	registerer prometheus.Registerer

	// useParallel enables the worker pool in LintFiles and IndexFiles.
	useParallel bool
	workers     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		if len(languages) == 0 {
			e.languages = nil
			return
		}
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls the worker pool. When true (default), files are
// parsed and linted concurrently and a single goroutine commits results.
// workers <= 0 means one worker per CPU.
func WithParallel(parallel bool, workers int) Option {
	return func(e *Engine) {
		e.useParallel = parallel
		e.workers = workers
	}
}

// WithScriptsFS loads rule scripts from fsys, laid out as
// <language>/<name>.risor. It takes precedence over WithScriptsDir.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithScriptsDir loads rule scripts from a directory on disk.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithRuleConfig applies per-rule settings: "off" or a severity.
func WithRuleConfig(rules map[string]string) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithLogger sets the logger used by the Engine and its scripts.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRegisterer registers the Engine's Prometheus collectors with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.registerer = reg
	}
}

// WithFilter sets doublestar include and exclude patterns used by
// DiscoverFiles. An empty include list matches everything.
func WithFilter(include, exclude []string) Option {
	return func(e *Engine) {
		e.include = include
		e.exclude = exclude
	}
}

// New creates an Engine. When dbPath is empty the Engine only lints and
// IndexFiles and Query report ErrNoStore.
//
// Script loading priority:
//  1. If WithScriptsFS is set, use the provided fs.FS
//  2. Otherwise, if WithScriptsDir is set, use that directory
//  3. Otherwise only built-in rules run
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:      slog.Default(),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registerer != nil {
		e.metrics = metrics.New(e.registerer)
	}

	registry := lint.DefaultRegistry()
	if e.scriptsFS != nil || e.scriptsDir != "" {
		rtOpts := []runtime.RuntimeOption{runtime.WithLogger(e.logger)}
		if e.scriptsFS != nil {
			rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
		}
		e.runtime = runtime.NewRuntime(e.scriptsDir, rtOpts...)
		analyzers, err := e.runtime.ScriptAnalyzers()
		if err != nil {
			return nil, fmt.Errorf("thicket: load scripts: %w", err)
		}
		for _, a := range analyzers {
			if err := registry.Register(a); err != nil {
				return nil, fmt.Errorf("thicket: register script rule: %w", err)
			}
		}
	}
	if err := registry.Configure(e.rules); err != nil {
		return nil, fmt.Errorf("thicket: configure rules: %w", err)
	}
	e.registry = registry

	if dbPath != "" {
		s, err := store.NewStore(dbPath)
		if err != nil {
			return nil, fmt.Errorf("thicket: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("thicket: migrate: %w", err)
		}
		e.store = s
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the underlying Store, or nil without a database.
func (e *Engine) Store() *Store {
	return e.store
}

// Rules returns every registered rule, configured severities applied.
func (e *Engine) Rules() []*Analyzer {
	return e.registry.All()
}

// RuleEnabled reports whether name is registered and not switched off.
func (e *Engine) RuleEnabled(name string) bool {
	return e.registry.Enabled(name)
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// Result is the outcome of analysing one document. Results returned by
// AnalyzeSource hold the parse tree and must be closed; results returned by
// LintFiles are already closed and carry no Document.
type Result struct {
	Path        string
	Language    string
	Source      []byte
	Document    *lint.Document
	Diagnostics []Diagnostic
	Stats       Stats
	// RuleErr joins the failures of rules that errored or panicked. The
	// diagnostics of the other rules are still present.
	RuleErr error

	close func()
}

// Bindings returns the binding model of the document, or nil once closed.
func (r *Result) Bindings() *binding.Model {
	if r.Document == nil {
		return nil
	}
	return r.Document.Bindings()
}

// Close releases the parse tree. It is safe to call more than once.
func (r *Result) Close() {
	if r.close != nil {
		r.close()
		r.close = nil
	}
	r.Document = nil
}

// HasErrors reports whether any diagnostic has error severity.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == lint.SeverityError {
			return true
		}
	}
	return false
}

// languageFor maps path to a language the Engine processes.
func (e *Engine) languageFor(path string) (string, bool) {
	lang, ok := runtime.LanguageForFile(path)
	if !ok {
		return "", false
	}
	if e.languages != nil && !e.languages[lang] {
		return "", false
	}
	return lang, true
}

// Supports reports whether the Engine would analyse path.
func (e *Engine) Supports(path string) bool {
	_, ok := e.languageFor(path)
	return ok
}

// AnalyzeSource parses src as the language implied by path, builds its
// binding model and runs every enabled rule against it. The caller must
// Close the result.
func (e *Engine) AnalyzeSource(ctx context.Context, path string, src []byte) (*Result, error) {
	lang, ok := e.languageFor(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
	}

	start := time.Now()
	doc, closeFn, err := parseDocument(ctx, lang, path, src)
	if err != nil {
		return nil, err
	}
	took := time.Since(start)

	stats := doc.Bindings().Stats()
	e.metrics.ObserveDocument(lang, stats, took)

	diags, ruleErr := lint.Run(ctx, doc, e.registry.For(lang))
	e.metrics.ObserveDiagnostics(diags)
	if ruleErr != nil {
		e.logger.Warn("rule failed", slog.String("path", path), slog.Any("error", ruleErr))
	}
	e.logger.Debug("analysed",
		slog.String("path", path),
		slog.String("language", lang),
		slog.Int("declarations", stats.Declarations),
		slog.Int("references", stats.References),
		slog.Int("diagnostics", len(diags)),
		slog.Duration("build", took),
	)

	return &Result{
		Path:        path,
		Language:    lang,
		Source:      src,
		Document:    doc,
		Diagnostics: diags,
		Stats:       stats,
		RuleErr:     ruleErr,
		close:       closeFn,
	}, nil
}

func parseDocument(ctx context.Context, lang, path string, src []byte) (*lint.Document, func(), error) {
	switch lang {
	case lint.LangTurtle:
		d, err := turtle.Analyze(ctx, src)
		if err != nil {
			return nil, nil, fmt.Errorf("thicket: %s: %w", path, err)
		}
		return lint.TurtleDocument(path, d), nil, nil
	case lint.LangYAML:
		d, err := yamldoc.Analyze(ctx, src)
		if err != nil {
			return nil, nil, fmt.Errorf("thicket: %s: %w", path, err)
		}
		return lint.YAMLDocument(path, d), d.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
}

// LintFiles analyses each supported path and returns closed results in the
// order of paths. Unsupported paths are skipped. Per-file failures do not
// stop the others; they are summarised in the returned error.
func (e *Engine) LintFiles(ctx context.Context, paths []string) ([]*Result, error) {
	var supported []string
	for _, p := range paths {
		if e.Supports(p) {
			supported = append(supported, p)
		}
	}

	results := make([]*Result, len(supported))
	errs := e.forEach(ctx, supported, func(i int, path string) error {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		res, err := e.AnalyzeSource(ctx, path, src)
		if err != nil {
			return err
		}
		res.Close()
		results[i] = res
		return nil
	})

	out := results[:0]
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("lint had %d error(s): %w", len(errs), errs[0])
	}
	return out, nil
}

// IndexReport summarises an IndexFiles call.
type IndexReport struct {
	Run     *Run
	Indexed []string
	Skipped []string
	Pruned  []string
}

// IndexFiles analyses paths and persists the outcome: declarations,
// references with their resolution, and diagnostics. Files whose content
// hash matches the stored one are skipped unless the rule set changed since
// the last index.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) (*IndexReport, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	run := &store.Run{ID: uuid.NewString(), StartedAt: time.Now()}
	if err := e.store.InsertRun(run); err != nil {
		return nil, fmt.Errorf("thicket: start run: %w", err)
	}

	force := e.RulesChanged()
	if force {
		e.logger.Info("rules changed, reindexing all files")
	}

	report := &IndexReport{Run: run}
	var err error
	if e.useParallel {
		err = e.indexParallel(ctx, paths, run, force, report)
	} else {
		err = e.indexSerial(ctx, paths, run, force, report)
	}

	run.FilesIndexed = len(report.Indexed)
	run.FilesSkipped = len(report.Skipped)
	if ferr := e.store.FinishRun(run); ferr != nil && err == nil {
		err = fmt.Errorf("thicket: finish run: %w", ferr)
	}
	if err != nil {
		return report, err
	}

	e.storeRulesHash()
	e.logger.Info("index complete",
		slog.String("run", run.ID),
		slog.Int("indexed", run.FilesIndexed),
		slog.Int("skipped", run.FilesSkipped),
		slog.Int("diagnostics", run.Diagnostics),
	)
	return report, nil
}

// IndexDirectory discovers files under root, indexes them and prunes
// stored files that no longer exist there.
func (e *Engine) IndexDirectory(ctx context.Context, root string) (*IndexReport, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	paths, err := e.DiscoverFiles(root)
	if err != nil {
		return nil, err
	}
	report, err := e.IndexFiles(ctx, paths)
	if err != nil {
		return report, err
	}
	pruned, err := e.store.PruneFiles(paths)
	if err != nil {
		return report, fmt.Errorf("thicket: prune: %w", err)
	}
	report.Pruned = pruned
	return report, nil
}

// indexSerial writes straight to the Store, one file at a time.
func (e *Engine) indexSerial(ctx context.Context, paths []string, run *store.Run, force bool, report *IndexReport) error {
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
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
		if err := e.store.DeleteFileData(item.file.ID); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", path, err))
			continue
		}
		n, err := e.extractInto(ctx, e.store, item, run.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("extract %s: %w", path, err))
			continue
		}
		if err := e.finishFile(item); err != nil {
			errs = append(errs, err)
			continue
		}
		run.Diagnostics += n
		report.Indexed = append(report.Indexed, path)
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// workItem holds everything an index worker needs.
type workItem struct {
	path string
	lang string
	src  []byte
	hash string
	file *store.File
}

// prepareFile reads path and makes sure it has a file row. skip is true for
// unsupported files (item.path empty) and unchanged ones (item.path set).
func (e *Engine) prepareFile(path string, force bool) (workItem, bool, error) {
	lang, ok := e.languageFor(path)
	if !ok {
		return workItem{}, true, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := store.HashContent(src)

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	item := workItem{path: path, lang: lang, src: src, hash: hash, file: existing}
	if existing != nil && existing.Hash == hash && !force {
		return item, true, nil
	}
	if existing == nil {
		// The hash stays empty until the data is committed, so a failed
		// extraction is retried on the next run.
		f := &store.File{Path: path, Language: lang, LastIndexed: time.Now()}
		if _, err := e.store.InsertFile(f); err != nil {
			return workItem{}, false, err
		}
		item.file = f
	}
	return item, false, nil
}

// extractInto analyses item and writes its rows to ds. It returns the number
// of diagnostics written.
func (e *Engine) extractInto(ctx context.Context, ds store.DataStore, item workItem, runID string) (int, error) {
	res, err := e.AnalyzeSource(ctx, item.path, item.src)
	if err != nil {
		return 0, err
	}
	defer res.Close()

	fileID := item.file.ID
	lines := syntax.NewLineIndex(item.src)
	model := res.Bindings()

	ids := make(map[binding.Key]int64)
	for _, d := range model.Declarations() {
		row := declarationRow(fileID, d.Name, d.Value, d.Scope, d.Range, lines)
		row.IsCanonical = true
		id, err := ds.InsertDeclaration(row)
		if err != nil {
			return 0, fmt.Errorf("insert declaration %q: %w", d.Name, err)
		}
		ids[d.Key()] = id
	}
	for _, dup := range model.Duplicates() {
		for i, r := range dup.Ranges {
			row := declarationRow(fileID, dup.Name, dup.Values[i], dup.Scope, r, lines)
			if _, err := ds.InsertDeclaration(row); err != nil {
				return 0, fmt.Errorf("insert duplicate %q: %w", dup.Name, err)
			}
		}
	}
	for _, r := range model.References() {
		row := referenceRow(fileID, r, lines)
		if decl, ok := model.ResolveReference(r); ok {
			id := ids[decl.Key()]
			row.DeclarationID = &id
		}
		if _, err := ds.InsertReference(row); err != nil {
			return 0, fmt.Errorf("insert reference %q: %w", r.Name, err)
		}
	}
	for _, d := range res.Diagnostics {
		row := diagnosticRow(fileID, runID, d)
		if _, err := ds.InsertDiagnostic(row); err != nil {
			return 0, fmt.Errorf("insert diagnostic %q: %w", d.Rule, err)
		}
	}
	item.file.LineCount = lines.LineCount()
	return len(res.Diagnostics), nil
}

// finishFile records the new hash once the file's rows are committed.
func (e *Engine) finishFile(item workItem) error {
	item.file.Hash = item.hash
	item.file.LastIndexed = time.Now()
	if err := e.store.UpdateFile(item.file); err != nil {
		return fmt.Errorf("update %s: %w", item.path, err)
	}
	return nil
}

// rulesHash fingerprints everything that decides what a file's stored
// outcome looks like: the rule scripts and the rule configuration.
func (e *Engine) rulesHash() string {
	h := sha256.New()
	if fsys := e.scriptSource(); fsys != nil {
		var paths []string
		fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				paths = append(paths, path)
			}
			return nil
		})
		sort.Strings(paths)
		for _, p := range paths {
			src, err := fs.ReadFile(fsys, p)
			if err != nil {
				continue
			}
			h.Write([]byte(p))
			h.Write(src)
		}
	}
	for _, a := range e.registry.All() {
		fmt.Fprintf(h, "%s=%s:%t\n", a.Name, a.Severity, e.registry.Enabled(a.Name))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (e *Engine) scriptSource() fs.FS {
	if e.scriptsFS != nil {
		return e.scriptsFS
	}
	if e.scriptsDir != "" {
		return os.DirFS(e.scriptsDir)
	}
	return nil
}

// RulesChanged reports whether the rule scripts or rule configuration
// differ from what built the current database. It is true on first run.
func (e *Engine) RulesChanged() bool {
	if e.store == nil {
		return false
	}
	stored, ok, err := e.store.Metadata(rulesHashKey)
	if err != nil || !ok {
		return true
	}
	return stored != e.rulesHash()
}

func (e *Engine) storeRulesHash() {
	if err := e.store.SetMetadata(rulesHashKey, e.rulesHash()); err != nil {
		e.logger.Warn("store rules hash", slog.Any("error", err))
	}
}

// skipDirs are excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// DiscoverFiles lists the supported files under root. Inside a git
// repository it uses git ls-files to respect .gitignore; otherwise it walks
// the filesystem skipping hidden directories, node_modules and vendor.
// Include and exclude patterns match slash-separated paths relative to root.
func (e *Engine) DiscoverFiles(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("thicket: resolve %s: %w", root, err)
	}
	paths, err := gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking", slog.String("root", root), slog.Any("error", err))
		paths, err = walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}

	var out []string
	for _, p := range paths {
		if !e.Supports(p) {
			continue
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			continue
		}
		if e.filtered(filepath.ToSlash(rel)) {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// filtered reports whether rel is excluded by the include/exclude patterns.
func (e *Engine) filtered(rel string) bool {
	for _, pat := range e.exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	if len(e.include) == 0 {
		return false
	}
	for _, pat := range e.include {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return false
		}
	}
	return true
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root.
func gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		paths = append(paths, filepath.Join(root, line))
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used when git is
// not available.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
