package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/zres"
	"github.com/aretw0/zres/internal/logging"
	"github.com/aretw0/zres/internal/presentation/tui"
	httpadapter "github.com/aretw0/zres/pkg/adapters/http"
	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/observability"
)

// ChangeWatcher reports batches of file changes below a set of roots.
// Changes closer together than the debounce interval form one batch.
type ChangeWatcher struct {
	roots    []string
	debounce time.Duration
	logger   *slog.Logger
}

// NewChangeWatcher watches roots recursively. Missing roots are skipped.
func NewChangeWatcher(debounce time.Duration, logger *slog.Logger, roots ...string) *ChangeWatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ChangeWatcher{roots: roots, debounce: debounce, logger: logger}
}

// Run calls onChange with the changed paths of every batch until ctx is done.
// onChange runs on the watcher goroutine, so batches never overlap.
func (w *ChangeWatcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	for _, root := range w.roots {
		if err := addTree(fw, root); err != nil {
			return err
		}
	}

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		changed = make(map[string]struct{})
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					if err := addTree(fw, ev.Name); err != nil {
						w.logger.Warn("watching new directory", "path", ev.Name, "err", err)
					}
				}
			}
			w.logger.Debug("change", "path", ev.Name, "op", ev.Op.String())
			changed[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "err", err)

		case <-fire:
			fire = nil
			paths := make([]string, 0, len(changed))
			for p := range changed {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(changed)
			onChange(ctx, paths)
		}
	}
}

// addTree watches root and every directory below it.
func addTree(fw *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fw.Add(path)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// WatchOptions adds the watch-only flags.
type WatchOptions struct {
	Options
}

// RunWatch builds once, then rebuilds whenever the source or tools tree
// changes, until ctx is done. With a listen address it also serves the
// build status.
func RunWatch(ctx context.Context, opts WatchOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := LoadConfig(opts.Options)
	if err != nil {
		return err
	}
	logger := logging.ForDebug(opts.Debug)
	stderr := opts.stderr()
	metrics := observability.NewMetrics()

	p, closeFn, err := newPipeline(ctx, cfg, logger, metrics.Hooks())
	defer closeFn()
	if err != nil {
		return err
	}

	tui.PrintBanner(stderr, zres.Version)
	printer := tui.NewPrinter(stderr)

	var mu sync.Mutex
	build := func(ctx context.Context) (*domain.Report, error) {
		mu.Lock()
		defer mu.Unlock()
		report, err := p.Build(ctx)
		printer.Report(report)
		if cfg.MetricsFile != "" {
			if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
				logger.Warn("writing metrics file", "path", cfg.MetricsFile, "err", werr)
			}
		}
		return report, err
	}

	status := httpadapter.NewServer(build,
		httpadapter.WithMetrics(metrics.Handler()),
		httpadapter.WithLogger(logger),
	)
	record := func(ctx context.Context) {
		status.Start()
		report, _ := build(ctx)
		status.Record(report)
	}

	serveErr := make(chan error, 1)
	if cfg.Watch.Listen != "" {
		go func() {
			serveErr <- httpadapter.ListenAndServe(ctx, cfg.Watch.Listen, status.Handler(), logger)
		}()
	}

	record(ctx)

	watcher := NewChangeWatcher(cfg.Watch.Debounce, logger, p.Source(), p.ToolsDir())
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Run(ctx, func(ctx context.Context, paths []string) {
			logger.Info("change detected, rebuilding", "paths", len(paths))
			record(ctx)
		})
	}()

	select {
	case err := <-serveErr:
		return err
	case err := <-watchErr:
		if err != nil {
			return err
		}
		if cfg.Watch.Listen != "" {
			return <-serveErr
		}
		return nil
	}
}
