// Package engine implements the fixpoint pass loop of a resource build.
//
// A run wipes the target tree, then walks the source and target trees
// repeatedly. Every pass resolves the request files that are new or changed
// since the last pass. When a walk finds nothing pending the run finalizes:
// tools that deferred themselves with "on-final" are called once more, in the
// order they asked.
//
//	Walking -> Resolving -> Walking ... -> Finalizing -> Done
//	                  \-> Failed (first fatal error, pass limit)
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/zres/internal/logging"
	"github.com/aretw0/zres/pkg/adapters/memory"
	"github.com/aretw0/zres/pkg/cachekey"
	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/invoker"
	"github.com/aretw0/zres/pkg/locator"
	"github.com/aretw0/zres/pkg/ports"
	"github.com/aretw0/zres/pkg/report"
	"github.com/aretw0/zres/pkg/request"
)

// sharedLocker serializes runs of every engine in this process that did not
// get a locker of their own.
var sharedLocker = memory.NewLocker()

// Engine runs builds.
type Engine struct {
	locator      *locator.Locator
	invoker      *invoker.Invoker
	keyer        *cachekey.Keyer
	locker       ports.RunLocker
	lockTTL      time.Duration
	hooks        []domain.LifecycleHooks
	logger       *slog.Logger
	passLimit    int
	workers      int
	pack         bool
	workspaceDir string
	metadata     map[string]string
	notices      []domain.Warning
}

// Option configures the engine.
type Option func(*Engine)

// WithInvoker sets the tool invoker.
func WithInvoker(iv *invoker.Invoker) Option {
	return func(e *Engine) {
		e.invoker = iv
	}
}

// WithKeyer sets the cache keyer, and so the cache root.
func WithKeyer(k *cachekey.Keyer) Option {
	return func(e *Engine) {
		e.keyer = k
	}
}

// WithLocker sets the run locker. Defaults to a lock shared by the process.
func WithLocker(l ports.RunLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = l
		if ttl > 0 {
			e.lockTTL = ttl
		}
	}
}

// WithLifecycleHooks registers observability hooks. It may be given more
// than once; hooks are called in registration order.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPassLimit bounds the number of passes (default 32).
func WithPassLimit(n int) Option {
	return func(e *Engine) {
		e.passLimit = n
	}
}

// WithWorkers sets how many tools may run at once within a pass. Defaults to
// the number of CPUs.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithPack copies every non-request source file to the target verbatim.
func WithPack(pack bool) Option {
	return func(e *Engine) {
		e.pack = pack
	}
}

// WithWorkspace sets the workspace root (the working directory of tools) and
// its metadata variables.
func WithWorkspace(dir string, metadata map[string]string) Option {
	return func(e *Engine) {
		e.workspaceDir = dir
		e.metadata = metadata
	}
}

// WithNotices records ws as warnings at the start of every run.
func WithNotices(ws ...domain.Warning) Option {
	return func(e *Engine) {
		e.notices = append(e.notices, ws...)
	}
}

// New creates an engine resolving tools with loc.
func New(loc *locator.Locator, opts ...Option) (*Engine, error) {
	if loc == nil {
		return nil, fmt.Errorf("%w: engine needs a tool locator", domain.ErrConfig)
	}
	e := &Engine{
		locator:   loc,
		locker:    sharedLocker,
		lockTTL:   time.Hour,
		logger:    logging.NewNop(),
		passLimit: domain.DefaultPassLimit,
		workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.invoker == nil {
		e.invoker = invoker.New(invoker.WithLogger(e.logger))
	}
	if e.keyer == nil {
		e.keyer = cachekey.New("")
	}
	if e.passLimit < 1 {
		return nil, fmt.Errorf("%w: pass limit must be at least 1, got %d", domain.ErrConfig, e.passLimit)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	if e.workspaceDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		e.workspaceDir = wd
	}
	return e, nil
}

// Run builds sourceDir into targetDir. The returned report is never nil; on
// failure it holds what was gathered up to the first fatal error, which is
// also returned.
func (e *Engine) Run(ctx context.Context, sourceDir, targetDir string) (*domain.Report, error) {
	runID := uuid.NewString()
	col := report.New(runID)
	hooks := domain.ChainHooks(e.hooks...)
	logger := e.logger.With("run_id", runID)

	finish := func(err error) (*domain.Report, error) {
		col.Fail(err)
		rep := col.Snapshot()
		hooks.OnRunDone(ctx, &domain.RunEvent{EventBase: base(domain.EventRunDone, runID), Report: rep})
		return rep, rep.Err
	}

	source, target, err := checkDirs(sourceDir, targetDir)
	if err != nil {
		return finish(err)
	}

	unlock, err := e.lock(ctx, target)
	if err != nil {
		return finish(err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to release run lock", "target", target, "err", err)
		}
	}()

	if err := resetTarget(target); err != nil {
		return finish(err)
	}
	logger.Info("build started", "source", source, "target", target)

	st := &passState{
		runID:    runID,
		source:   source,
		target:   target,
		resolved: make(map[string]string),
		claimed:  make(map[string]string),
		report:   col,
		hooks:    hooks,
		logger:   logger,
	}
	for _, w := range e.notices {
		st.warn(ctx, w)
	}
	if err := e.passes(ctx, st); err != nil {
		return finish(err)
	}
	if err := e.finalize(ctx, st); err != nil {
		return finish(err)
	}
	if err := e.cleanup(ctx, st); err != nil {
		return finish(err)
	}
	if err := os.Remove(filepath.Join(target, domain.IncompleteMarker)); err != nil {
		return finish(err)
	}
	logger.Info("build done", "passes", st.pass)
	return finish(nil)
}

// checkDirs resolves both roots and rejects overlapping trees.
func checkDirs(sourceDir, targetDir string) (string, string, error) {
	source, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	target, err := filepath.Abs(targetDir)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	st, err := os.Stat(source)
	if err != nil {
		return "", "", fmt.Errorf("%w: source %v", domain.ErrConfig, err)
	}
	if !st.IsDir() {
		return "", "", fmt.Errorf("%w: source %s is not a directory", domain.ErrConfig, source)
	}
	if _, inside := request.Within(target, source); inside {
		return "", "", fmt.Errorf("%w: target %s contains the source %s", domain.ErrConfig, target, source)
	}
	if _, inside := request.Within(source, target); inside {
		return "", "", fmt.Errorf("%w: target %s is inside the source %s", domain.ErrConfig, target, source)
	}
	return source, target, nil
}

// resetTarget wipes the target and marks it incomplete until the run is done.
func resetTarget(target string) error {
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("wipe target: %w", err)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	marker := filepath.Join(target, domain.IncompleteMarker)
	if err := os.WriteFile(marker, []byte("zres build in progress or failed\n"), 0o644); err != nil {
		return fmt.Errorf("mark target: %w", err)
	}
	return nil
}

// lock takes the target lock, then the cache root lock. Every run locks in
// that order, so runs sharing either root are serialized without deadlock.
func (e *Engine) lock(ctx context.Context, target string) (ports.UnlockFunc, error) {
	unlockTarget, err := e.locker.Lock(ctx, lockKey("target", target), e.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock target %s: %w", target, err)
	}
	unlockCache, err := e.locker.Lock(ctx, lockKey("cache", e.keyer.Root), e.lockTTL)
	if err != nil {
		_ = unlockTarget(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("lock cache %s: %w", e.keyer.Root, err)
	}
	return func(ctx context.Context) error {
		return errors.Join(unlockCache(ctx), unlockTarget(ctx))
	}, nil
}

func lockKey(kind, path string) string {
	return kind + "-" + cachekey.Hash(kind, path, "", nil)[:32]
}

func base(t domain.EventType, runID string) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, RunID: runID}
}

// IsIncomplete reports whether targetDir carries the marker of a run that
// did not finish.
func IsIncomplete(targetDir string) bool {
	_, err := os.Stat(filepath.Join(targetDir, domain.IncompleteMarker))
	return !errors.Is(err, os.ErrNotExist)
}
