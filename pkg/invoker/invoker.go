// Package invoker runs one tool for one request and interprets what the tool
// reported back on stdout.
package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/zres/internal/logging"
	"github.com/aretw0/zres/pkg/adapters/process"
	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/protocol"
	"github.com/aretw0/zres/pkg/registry"
)

// Invocation is everything needed to run a tool for a request.
type Invocation struct {
	Request      domain.Request
	Tool         domain.ToolTarget
	SourceDir    string
	TargetDir    string
	CacheDir     string
	WorkspaceDir string
	// Metadata holds the workspace ZR_* variables.
	Metadata map[string]string
	// Final holds the on-final args during the final pass, nil otherwise.
	Final *string
}

// Result is the interpreted outcome of a successful invocation.
type Result struct {
	// Delegated is set when the tool handed the request to the next tier.
	Delegated bool
	Warnings  []string
	// OnFinal is set when the tool asked to run again in the final pass.
	OnFinal  *string
	Stderr   string
	Duration time.Duration
}

// Invoker executes tools.
type Invoker struct {
	runner   *process.Runner
	registry *registry.Registry
	logger   *slog.Logger
}

// Option configures the invoker.
type Option func(*Invoker)

// WithRunner sets the process runner.
func WithRunner(r *process.Runner) Option {
	return func(iv *Invoker) {
		iv.runner = r
	}
}

// WithRegistry sets the registry builtins are executed from.
func WithRegistry(r *registry.Registry) Option {
	return func(iv *Invoker) {
		iv.registry = r
	}
}

// WithLogger sets the logger. Tool output that is not a directive is logged
// at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(iv *Invoker) {
		iv.logger = l
	}
}

// New creates an Invoker.
func New(opts ...Option) *Invoker {
	iv := &Invoker{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(iv)
	}
	if iv.runner == nil {
		iv.runner = process.NewRunner()
	}
	if iv.registry == nil {
		iv.registry = registry.NewRegistry()
	}
	return iv
}

// Env builds the ZR_* variables of an invocation.
func Env(inv Invocation) map[string]string {
	env := make(map[string]string, len(inv.Metadata)+9)
	for k, v := range inv.Metadata {
		env[k] = v
	}
	env[domain.EnvSourceDir] = inv.SourceDir
	env[domain.EnvTargetDir] = inv.TargetDir
	env[domain.EnvCacheDir] = inv.CacheDir
	env[domain.EnvWorkspaceDir] = inv.WorkspaceDir
	env[domain.EnvRequest] = inv.Request.Path
	env[domain.EnvRequestDD] = filepath.Dir(inv.Request.Path)
	env[domain.EnvTarget] = inv.Request.Target
	env[domain.EnvTargetDD] = filepath.Dir(inv.Request.Target)
	if inv.Final != nil {
		env[domain.EnvFinal] = *inv.Final
	}
	return env
}

// HelpEnv is the only variable a tool gets when asked for help.
func HelpEnv() map[string]string {
	return map[string]string{domain.EnvHelp: "1"}
}

// Invoke runs the tool of inv and parses its directives.
func (iv *Invoker) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	start := time.Now()
	stdout, stderr, code, err := iv.exec(ctx, inv.Tool, Env(inv), inv.WorkspaceDir)
	res := Result{Stderr: string(stderr), Duration: time.Since(start)}
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, &domain.ToolFailedError{
			Tool:     inv.Tool.Name,
			Request:  inv.Request.Path,
			ExitCode: code,
			Stderr:   string(stderr),
			Err:      err,
		}
	}

	directives, other, err := protocol.Scan(bytes.NewReader(stdout))
	if err != nil {
		return res, fmt.Errorf("%w: reading output of %s: %v", domain.ErrProtocol, inv.Tool.Name, err)
	}
	for _, line := range other {
		iv.logger.Debug("tool output", "tool", inv.Tool.Name, "request", inv.Request.Path, "line", line)
	}
	for _, d := range directives {
		switch d.Kind {
		case protocol.KindDelegate:
			res.Delegated = true
		case protocol.KindWarning:
			res.Warnings = append(res.Warnings, d.Value)
		case protocol.KindOnFinal:
			if inv.Final != nil {
				return res, fmt.Errorf("%w: %s for %s", domain.ErrFinalRedeferred, inv.Tool.Name, inv.Request.Path)
			}
			if res.OnFinal != nil {
				return res, fmt.Errorf("%w: %s sent on-final twice for %s", domain.ErrProtocol, inv.Tool.Name, inv.Request.Path)
			}
			args := d.Value
			res.OnFinal = &args
		}
	}
	if res.Delegated && res.OnFinal != nil {
		return res, fmt.Errorf("%w: %s sent both delegate and on-final for %s", domain.ErrProtocol, inv.Tool.Name, inv.Request.Path)
	}
	return res, nil
}

// Help returns the self description of a tool.
func (iv *Invoker) Help(ctx context.Context, target domain.ToolTarget) (string, error) {
	if target.Kind == domain.KindBuiltin {
		t, ok := iv.registry.Lookup(target.Name)
		if !ok {
			return "", fmt.Errorf("%w: builtin %s", domain.ErrToolNotFound, target.Name)
		}
		return t.Help, nil
	}
	stdout, stderr, code, err := iv.exec(ctx, target, HelpEnv(), "")
	if err != nil {
		return "", &domain.ToolFailedError{Tool: target.Name, ExitCode: code, Stderr: string(stderr), Err: err}
	}
	return strings.TrimSpace(string(stdout)), nil
}

func (iv *Invoker) exec(ctx context.Context, target domain.ToolTarget, env map[string]string, dir string) (stdout, stderr []byte, code int, err error) {
	if target.Kind != domain.KindBuiltin {
		out, err := iv.runner.Run(ctx, target, env, dir)
		return out.Stdout, out.Stderr, out.ExitCode, err
	}
	var o, e bytes.Buffer
	err = iv.registry.Execute(ctx, target.Name, registry.Call{
		Env:    env,
		Dir:    dir,
		Stdout: &o,
		Stderr: &e,
	})
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return o.Bytes(), e.Bytes(), code, err
}
