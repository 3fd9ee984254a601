package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jward/thicket"
	"github.com/jward/thicket/internal/config"
	"github.com/jward/thicket/scripts"
)

var (
	flagDB         string
	flagFormat     string
	flagConfig     string
	flagVerbose    bool
	flagScriptsDir string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// errFindings makes the process exit 1 without printing anything more.
var errFindings = errors.New("error-severity diagnostics reported")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errorHandled && !errors.Is(err, errFindings) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "thicket",
	Short:         "Binding-aware linter for Turtle and YAML",
	Long:          "thicket resolves Turtle prefixes and YAML anchors, runs built-in and Risor script rules over the result, and can keep a SQLite index of the outcome for queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger(flagVerbose)
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: config database, relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: thicket.yaml in the working directory or a parent)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.PersistentFlags().StringVar(&flagScriptsDir, "scripts-dir", "", "load rule scripts from disk instead of the built-in set")

	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(rulesCmd)
}

// setupLogger installs a text handler on stderr as the default logger.
func setupLogger(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// project is the resolved working context of one command.
type project struct {
	root   string
	config *config.Config
}

// loadProject finds the repo root above dir and loads the layered config
// from there.
func loadProject(dir string) (*project, error) {
	root := findRepoRoot(dir)
	cfg, err := config.NewLoader(slog.Default(), config.WithWorkDir(dir)).Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &project{root: root, config: cfg}, nil
}

// engineOptions translates the config into Engine options.
func (p *project) engineOptions(extra ...thicket.Option) []thicket.Option {
	cfg := p.config
	opts := []thicket.Option{
		thicket.WithLogger(slog.Default()),
		thicket.WithRuleConfig(cfg.Rules),
		thicket.WithLanguages(cfg.Languages...),
		thicket.WithFilter(cfg.Include, cfg.Exclude),
		thicket.WithParallel(true, cfg.Parallel),
	}
	if cfg.ScriptsEnabled() {
		dir := flagScriptsDir
		if dir == "" {
			dir = cfg.Scripts.Dir
		}
		if dir != "" {
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(p.root, dir)
			}
			opts = append(opts, thicket.WithScriptsDir(dir))
		} else {
			opts = append(opts, thicket.WithScriptsFS(scripts.Rules()))
		}
	}
	return append(opts, extra...)
}

// newEngine creates an Engine for the project. An empty dbPath gives a
// lint-only Engine.
func (p *project) newEngine(dbPath string, reg prometheus.Registerer) (*thicket.Engine, error) {
	var extra []thicket.Option
	if reg != nil {
		extra = append(extra, thicket.WithRegisterer(reg))
	}
	engine, err := thicket.New(dbPath, p.engineOptions(extra...)...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

// dbPath returns the database path from the --db flag or the config.
func (p *project) dbPath() string {
	return resolveDBPath(p.root, flagDB, p.config.Database)
}

// resolveTargetDir returns the absolute path of the directory to work on.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns override (the --db flag) when set, falling back to
// configured and then the default. Relative paths are taken from repoRoot.
func resolveDBPath(repoRoot, override, configured string) string {
	path := configured
	if override != "" {
		path = override
	}
	if path == "" {
		path = config.DefaultConfig().Database
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, path)
}
