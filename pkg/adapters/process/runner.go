package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/aretw0/zres/pkg/domain"
)

// Runner executes process tools: Go packages through "go run" and
// executables directly.
type Runner struct {
	goCommand string
	baseDir   string
	environ   func() []string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithGoCommand sets the go binary used for Go package tools.
func WithGoCommand(cmd string) RunnerOption {
	return func(r *Runner) {
		r.goCommand = cmd
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithEnviron replaces the inherited environment, mainly for tests.
func WithEnviron(fn func() []string) RunnerOption {
	return func(r *Runner) {
		r.environ = fn
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		goCommand: "go",
		environ:   os.Environ,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Output is the captured output of a process.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Command returns the program and arguments that run target.
func (r *Runner) Command(target domain.ToolTarget) (string, []string, error) {
	switch target.Kind {
	case domain.KindGoPackage:
		return r.goCommand, []string{"run", target.Path}, nil
	case domain.KindExecutable:
		return target.Path, nil, nil
	default:
		return "", nil, fmt.Errorf("%s tool %q is not a process", target.Kind, target.Name)
	}
}

// Run executes target in dir with env added to the inherited environment.
// An empty dir selects the base dir. ZR_* variables inherited from a parent
// run are dropped so only env reaches the tool. A nonzero exit is returned as
// an *exec.ExitError together with the captured output.
func (r *Runner) Run(ctx context.Context, target domain.ToolTarget, env map[string]string, dir string) (Output, error) {
	name, args, err := r.Command(target)
	if err != nil {
		return Output{}, err
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.baseDir
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(inherited(r.environ()), EnvList(env)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
	}
	return out, err
}

// EnvList renders env as sorted KEY=VALUE pairs.
func EnvList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Environ returns the environment of the current process without its ZR_*
// variables, followed by env.
func Environ(env map[string]string) []string {
	return append(inherited(os.Environ()), EnvList(env)...)
}

func inherited(environ []string) []string {
	out := make([]string, 0, len(environ))
	for _, kv := range environ {
		if strings.HasPrefix(kv, "ZR_") {
			continue
		}
		out = append(out, kv)
	}
	return out
}
