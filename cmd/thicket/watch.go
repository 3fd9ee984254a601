package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jward/thicket"
	"github.com/jward/thicket/internal/metrics"
	"github.com/jward/thicket/internal/watch"
)

var (
	flagMetricsAddr string
	flagDebounce    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-lint files as they change",
	Long:  "Lints every supported file below path once, then lints each file again whenever its content changes. Stops on interrupt.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 200*time.Millisecond, "how long changes settle before re-linting")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("watch", err)
	}
	proj, err := loadProject(targetDir)
	if err != nil {
		return outputError("watch", err)
	}

	var reg *prometheus.Registry
	if flagMetricsAddr != "" {
		reg = prometheus.NewRegistry()
	}
	engine, err := proj.newEngine("", registererOrNil(reg))
	if err != nil {
		return outputError("watch", err)
	}
	defer engine.Close()

	if reg != nil {
		srv := &http.Server{Addr: flagMetricsAddr, Handler: metricsMux(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		slog.Info("serving metrics", slog.String("addr", flagMetricsAddr))
	}

	w, err := watch.New(watch.Config{
		Root:     targetDir,
		Debounce: flagDebounce,
		Filter:   engine.Supports,
		Logger:   slog.Default(),
	})
	if err != nil {
		return outputError("watch", fmt.Errorf("starting watcher: %w", err))
	}

	paths, err := engine.DiscoverFiles(targetDir)
	if err != nil {
		return outputError("watch", err)
	}
	changes := make([]watch.Event, 0, len(paths))
	for _, p := range paths {
		if src, err := os.ReadFile(p); err == nil {
			w.Seed(p, src)
		}
		changes = append(changes, watch.Event{Path: p, Op: watch.OpChange})
	}
	if err := reportChanges(ctx, engine, changes); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for batch := range w.Events() {
		if err := reportChanges(ctx, engine, batch); err != nil {
			return err
		}
	}
	return <-done
}

// reportChanges lints the changed files of batch and prints one result.
func reportChanges(ctx context.Context, engine *thicket.Engine, batch []watch.Event) error {
	out := make([]CLIChange, 0, len(batch))
	var changed []string
	for _, ev := range batch {
		if ev.Op == watch.OpChange {
			changed = append(changed, ev.Path)
		}
	}
	results, err := engine.LintFiles(ctx, changed)
	if err != nil {
		slog.Warn("lint failed for some files", slog.Any("error", err))
	}
	byPath := make(map[string]*thicket.Result, len(results))
	for _, r := range results {
		byPath[r.Path] = r
	}

	for _, ev := range batch {
		c := CLIChange{Path: ev.Path, Op: string(ev.Op)}
		if r, ok := byPath[ev.Path]; ok {
			for _, d := range r.Diagnostics {
				c.Diagnostics = append(c.Diagnostics, diagnosticToCLI(r.Path, d))
			}
		} else if ev.Op == watch.OpChange {
			// Failed to lint; already logged.
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	return outputResult(CLIResult{Command: "watch", Results: out})
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	return mux
}

// registererOrNil avoids handing the Engine a typed nil interface.
func registererOrNil(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return nil
	}
	return reg
}
