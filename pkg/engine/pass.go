package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/zres/internal/fsutil"
	"github.com/aretw0/zres/pkg/cachekey"
	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/invoker"
	"github.com/aretw0/zres/pkg/report"
	"github.com/aretw0/zres/pkg/request"
)

// passState is the mutable state of one run. It is never persisted.
type passState struct {
	runID  string
	source string
	target string
	pass   int

	// resolved maps request paths to the content digest they were resolved with.
	resolved map[string]string

	mu sync.Mutex
	// claimed maps target paths to the request that produced them.
	claimed map[string]string
	finals  []finalTask

	report *report.Collector
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// finalTask keeps the tier index of the deferring tool so a delegate in the
// final pass can move on to the next tier.
type finalTask struct {
	domain.FinalTask
	tier int
}

func (st *passState) claim(req domain.Request) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if prev, ok := st.claimed[req.Target]; ok && prev != req.Path {
		return fmt.Errorf("%w: %s is the target of both %s and %s", domain.ErrTargetConflict, req.Target, prev, req.Path)
	}
	st.claimed[req.Target] = req.Path
	return nil
}

func (st *passState) deferTask(req domain.Request, tool domain.ToolTarget, tier int, args string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.finals = append(st.finals, finalTask{
		FinalTask: domain.FinalTask{Request: req, Tool: tool, Args: args, Seq: len(st.finals)},
		tier:      tier,
	})
}

func (st *passState) warn(ctx context.Context, w domain.Warning) {
	st.report.Warn(w)
	st.hooks.OnWarning(ctx, &domain.WarningEvent{EventBase: base(domain.EventWarning, st.runID), Warning: w})
}

// passes runs the fixpoint loop until a walk finds nothing pending.
func (e *Engine) passes(ctx context.Context, st *passState) error {
	for st.pass = 1; ; st.pass++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		st.report.Pass(st.pass)

		pending, err := e.walk(st)
		if err != nil {
			return err
		}
		ev := &domain.PassEvent{EventBase: base(domain.EventPassStart, st.runID), Pass: st.pass, Pending: len(pending)}
		st.hooks.OnPassStart(ctx, ev)
		st.logger.Debug("pass", "pass", st.pass, "pending", len(pending))

		if len(pending) == 0 {
			st.hooks.OnPassDone(ctx, &domain.PassEvent{EventBase: base(domain.EventPassDone, st.runID), Pass: st.pass})
			return nil
		}
		if st.pass >= e.passLimit {
			paths := make([]string, len(pending))
			for i, req := range pending {
				paths[i] = req.Path
			}
			return &domain.LimitError{Limit: e.passLimit, Pending: paths}
		}

		if err := e.resolvePass(ctx, st, pending); err != nil {
			return err
		}
		for _, req := range pending {
			st.resolved[req.Path] = req.Digest()
		}
		st.hooks.OnPassDone(ctx, &domain.PassEvent{EventBase: base(domain.EventPassDone, st.runID), Pass: st.pass, Pending: len(pending)})
	}
}

// pending reads the request at path. ok is false when the request was already
// resolved with the same content or when the file is gone.
func (st *passState) pending(path string) (domain.Request, bool, error) {
	req, err := request.New(path, st.source, st.target)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Request{}, false, nil
	}
	if err != nil {
		return domain.Request{}, false, err
	}
	if digest, ok := st.resolved[req.Path]; ok && digest == req.Digest() {
		return domain.Request{}, false, nil
	}
	return req, true, nil
}

// walk mirrors the source directories into the target and returns the
// requests that are new or changed since they were last resolved, sorted by
// path.
func (e *Engine) walk(st *passState) ([]domain.Request, error) {
	var found []domain.Request
	add := func(path string) error {
		req, ok, err := st.pending(path)
		if ok {
			found = append(found, req)
		}
		return err
	}

	err := filepath.WalkDir(st.source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(st.source, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(filepath.Join(st.target, rel), fsutil.DirMode)
		}
		if request.IsRequest(d.Name()) {
			return add(path)
		}
		if e.pack && st.pass == 1 {
			return fsutil.CopyFile(filepath.Join(st.target, rel), path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source: %w", err)
	}

	err = filepath.WalkDir(st.target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !request.IsRequest(d.Name()) {
			return nil
		}
		return add(path)
	})
	if err != nil {
		return nil, fmt.Errorf("walk target: %w", err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

// resolvePass resolves the pending requests on the worker pool. The first
// fatal error stops new tools from starting. Tools run on ctx rather than the
// group context, so a tool that already started is never killed by another
// request's failure.
func (e *Engine) resolvePass(ctx context.Context, st *passState, pending []domain.Request) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, req := range pending {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return e.resolve(ctx, gctx, st, req)
		})
	}
	return g.Wait()
}

// resolve runs the tool of one request, following delegations.
func (e *Engine) resolve(ctx, gctx context.Context, st *passState, req domain.Request) error {
	if _, err := os.Stat(req.Path); errors.Is(err, fs.ErrNotExist) {
		st.logger.Debug("request vanished", "request", req.Path)
		return nil
	}
	if err := st.claim(req); err != nil {
		return err
	}

	cacheDir := e.keyer.KeyFor(st.source, st.target, req.Path, req.Content)
	var delegated []domain.Tier
	for from := 0; ; {
		tool, idx, err := e.locator.ResolveFrom(req.Tool, from)
		if err != nil {
			var nf *domain.ToolNotFoundError
			if errors.As(err, &nf) {
				nf.Request = req.Path
				nf.Delegated = delegated
			}
			return err
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		if err := cachekey.Ensure(cacheDir); err != nil {
			return fmt.Errorf("cache dir for %s: %w", req.Path, err)
		}

		res, err := e.call(ctx, st, invoker.Invocation{
			Request:  req,
			Tool:     tool,
			CacheDir: cacheDir,
		}, false)
		if err != nil {
			return err
		}
		if res.Delegated {
			delegated = append(delegated, tool.Tier)
			from = idx + 1
			continue
		}
		st.report.Invoked(false)
		if res.OnFinal != nil {
			st.deferTask(req, tool, idx, *res.OnFinal)
		}
		return nil
	}
}

// call invokes a tool with the run-wide fields filled in and reports the
// invocation to the hooks and the collector.
func (e *Engine) call(ctx context.Context, st *passState, inv invoker.Invocation, final bool) (invoker.Result, error) {
	inv.SourceDir = st.source
	inv.TargetDir = st.target
	inv.WorkspaceDir = e.workspaceDir
	inv.Metadata = e.metadata

	ev := &domain.ToolEvent{
		EventBase: base(domain.EventToolCall, st.runID),
		Pass:      st.pass,
		Request:   inv.Request.Path,
		Tool:      inv.Tool,
		Final:     final,
	}
	st.hooks.OnToolCall(ctx, ev)

	res, err := e.invoker.Invoke(ctx, inv)

	ret := *ev
	ret.EventBase = base(domain.EventToolReturn, st.runID)
	ret.Delegated = res.Delegated
	ret.IsError = err != nil
	ret.Duration = res.Duration
	st.hooks.OnToolReturn(ctx, &ret)

	for _, msg := range res.Warnings {
		st.warn(ctx, domain.Warning{Tool: inv.Tool.Name, Request: inv.Request.Path, Message: msg})
	}
	return res, err
}
