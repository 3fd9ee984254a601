package runtime

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/thicket/internal/lint"
)

// Runtime embeds a Risor VM and runs rule scripts against analysed
// documents. Scripts see the document's binding model through host
// functions and report diagnostics with report().
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger routes the scripts' log object to l.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Runtime loading scripts from scriptsDir, or from the
// fs.FS given with WithRuntimeFS.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(label, extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	_, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		// For fs.FS, strip any leading path separator so the path is
		// relative within the FS (e.g., "/turtle/x.risor" -> "turtle/x.risor").
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// RuleScriptPath returns the path of a language's rule script.
func RuleScriptPath(language, name string) string {
	return path.Join(language, name+".risor")
}

// source returns the filesystem scripts are discovered in.
func (r *Runtime) source() fs.FS {
	if r.fsys != nil {
		return r.fsys
	}
	if r.scriptsDir != "" {
		return os.DirFS(r.scriptsDir)
	}
	return nil
}

// ScriptAnalyzers discovers <language>/<name>.risor rule scripts and wraps
// each in a lint.Analyzer. Directories that are not a known language are
// ignored, so shared modules can live next to the rules.
func (r *Runtime) ScriptAnalyzers() ([]*lint.Analyzer, error) {
	fsys := r.source()
	if fsys == nil {
		return nil, nil
	}
	matches, err := fs.Glob(fsys, "*/*.risor")
	if err != nil {
		return nil, fmt.Errorf("runtime: discovering scripts: %w", err)
	}
	sort.Strings(matches)

	var out []*lint.Analyzer
	for _, m := range matches {
		language := path.Dir(m)
		if !IsSupportedLanguage(language) {
			continue
		}
		src, err := fs.ReadFile(fsys, m)
		if err != nil {
			return nil, fmt.Errorf("runtime: reading %s: %w", m, err)
		}
		meta, err := parseHeader(string(src))
		if err != nil {
			return nil, fmt.Errorf("runtime: %s: %w", m, err)
		}
		out = append(out, r.analyzer(strings.TrimSuffix(path.Base(m), ".risor"), language, meta))
	}
	return out, nil
}

func (r *Runtime) analyzer(name, language string, meta header) *lint.Analyzer {
	scriptPath := RuleScriptPath(language, name)
	return &lint.Analyzer{
		Name:     name,
		Language: language,
		Severity: meta.severity,
		Doc:      meta.doc,
		Run: func(pass *lint.Pass) error {
			return r.RunScript(pass.Context(), scriptPath, passGlobals(pass))
		},
	}
}

type header struct {
	severity lint.Severity
	doc      string
}

// parseHeader reads the leading comment block of a script:
//
//	// doc: one-line description
//	// severity: warning
func parseHeader(src string) (header, error) {
	h := header{severity: lint.SeverityWarning}
	sc := bufio.NewScanner(strings.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "//") {
			break
		}
		key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "//")), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "doc":
			h.doc = value
		case "severity":
			sev, err := lint.ParseSeverity(value)
			if err != nil {
				return h, err
			}
			h.severity = sev
		}
	}
	return h, nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(label string, extra map[string]any) map[string]any {
	globals := map[string]any{
		"log": mustProxy(&logObject{logger: r.logger.With(slog.String("script", label))}),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
