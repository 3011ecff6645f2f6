package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/invoker"
	"github.com/aretw0/zres/pkg/request"
)

// finalize runs the deferred tasks one at a time in enqueue order. A task
// whose request file is gone by now is dropped.
func (e *Engine) finalize(ctx context.Context, st *passState) error {
	tasks := append([]finalTask(nil), st.finals...)
	if len(tasks) == 0 {
		return nil
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Seq < tasks[j].Seq })

	st.pass++
	st.report.Pass(st.pass)
	st.hooks.OnPassStart(ctx, &domain.PassEvent{EventBase: base(domain.EventPassStart, st.runID), Pass: st.pass, Pending: len(tasks), Final: true})
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := os.Stat(task.Request.Path); errors.Is(err, fs.ErrNotExist) {
			st.logger.Debug("final task retracted", "request", task.Request.Path, "tool", task.Tool.Name)
			continue
		}
		if err := e.runFinal(ctx, st, task); err != nil {
			return err
		}
	}
	st.hooks.OnPassDone(ctx, &domain.PassEvent{EventBase: base(domain.EventPassDone, st.runID), Pass: st.pass, Pending: len(tasks), Final: true})
	return nil
}

func (e *Engine) runFinal(ctx context.Context, st *passState, task finalTask) error {
	args := task.Args
	tool, tier := task.Tool, task.tier
	cacheDir := e.keyer.KeyFor(st.source, st.target, task.Request.Path, task.Request.Content)
	var delegated []domain.Tier
	for {
		res, err := e.call(ctx, st, invoker.Invocation{
			Request:  task.Request,
			Tool:     tool,
			CacheDir: cacheDir,
			Final:    &args,
		}, true)
		if err != nil {
			return err
		}
		if !res.Delegated {
			st.report.Invoked(true)
			return nil
		}
		delegated = append(delegated, tool.Tier)
		tool, tier, err = e.locator.ResolveFrom(task.Request.Tool, tier+1)
		if err != nil {
			var nf *domain.ToolNotFoundError
			if errors.As(err, &nf) {
				nf.Request = task.Request.Path
				nf.Delegated = delegated
			}
			return err
		}
	}
}

// cleanup removes the request files left in the target. A request that
// was never resolved can only come from the final pass and is reported.
func (e *Engine) cleanup(ctx context.Context, st *passState) error {
	var leftovers []string
	err := filepath.WalkDir(st.target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !request.IsRequest(d.Name()) {
			return nil
		}
		leftovers = append(leftovers, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("clean target: %w", err)
	}
	for _, path := range leftovers {
		if _, ok := st.resolved[path]; !ok {
			st.warn(ctx, domain.Warning{
				Request: path,
				Message: "request generated in the final pass was not resolved",
			})
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("clean target: %w", err)
		}
	}
	return nil
}
