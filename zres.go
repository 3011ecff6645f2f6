package zres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/zres/internal/logging"
	"github.com/aretw0/zres/pkg/adapters/process"
	"github.com/aretw0/zres/pkg/builtin"
	"github.com/aretw0/zres/pkg/cachekey"
	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/engine"
	"github.com/aretw0/zres/pkg/invoker"
	"github.com/aretw0/zres/pkg/locator"
	"github.com/aretw0/zres/pkg/ports"
	"github.com/aretw0/zres/pkg/registry"
	"github.com/aretw0/zres/pkg/workspace"
)

// Pipeline builds one source tree into one target tree.
// It wires the locator, the invoker and the engine the way the zres command
// does.
type Pipeline struct {
	source    string
	target    string
	toolsDir  string
	workspace *workspace.Workspace
	metadata  map[string]string
	locator   *locator.Locator
	invoker   *invoker.Invoker
	engine    *engine.Engine
	logger    *slog.Logger
}

type settings struct {
	toolsDir   string
	cacheDir   string
	goCommand  string
	passLimit  int
	workers    int
	pack       bool
	hooks      []domain.LifecycleHooks
	logger     *slog.Logger
	locker     ports.RunLocker
	lockTTL    time.Duration
	metadata   map[string]string
	builtins   []registry.Tool
	siblingDir *string
}

// Option configures a Pipeline.
type Option func(*settings)

// WithToolsDir sets the directory holding dedicated and multi-tool packages.
// Defaults to "tools" in the workspace root, which is the source directory
// when no workspace is found.
func WithToolsDir(dir string) Option {
	return func(s *settings) {
		s.toolsDir = dir
	}
}

// WithToolCache sets the root of the per-request cache directories.
func WithToolCache(dir string) Option {
	return func(s *settings) {
		s.cacheDir = dir
	}
}

// WithGoCommand sets the go binary used to run Go package tools.
func WithGoCommand(cmd string) Option {
	return func(s *settings) {
		s.goCommand = cmd
	}
}

// WithPassLimit bounds the number of passes.
func WithPassLimit(n int) Option {
	return func(s *settings) {
		s.passLimit = n
	}
}

// WithWorkers sets how many tools run at once within a pass.
func WithWorkers(n int) Option {
	return func(s *settings) {
		s.workers = n
	}
}

// WithPack copies non-request source files to the target.
func WithPack(pack bool) Option {
	return func(s *settings) {
		s.pack = pack
	}
}

// WithLifecycleHooks registers observability hooks. May be given more than once.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = append(s.hooks, hooks)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithLocker serializes runs sharing a target or a cache root with l.
func WithLocker(l ports.RunLocker, ttl time.Duration) Option {
	return func(s *settings) {
		s.locker = l
		s.lockTTL = ttl
	}
}

// WithMetadata overrides workspace metadata. Keys are the config file keys
// ("app", "version", ...).
func WithMetadata(md map[string]string) Option {
	return func(s *settings) {
		s.metadata = md
	}
}

// WithBuiltin adds in-process tools next to the standard builtins.
func WithBuiltin(tools ...registry.Tool) Option {
	return func(s *settings) {
		s.builtins = append(s.builtins, tools...)
	}
}

// WithSiblingDir sets the directory searched for "zres-<tool>" executables.
// Defaults to the directory of the running binary; "" disables the tier.
func WithSiblingDir(dir string) Option {
	return func(s *settings) {
		s.siblingDir = &dir
	}
}

// New prepares a pipeline from source to target. It detects the Go
// workspace above source and checks the tool tiers for conflicting claims.
func New(source, target string, opts ...Option) (*Pipeline, error) {
	s := &settings{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if source == "" || target == "" {
		return nil, fmt.Errorf("%w: source and target are required", domain.ErrConfig)
	}
	source, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	target, err = filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}

	p := &Pipeline{source: source, target: target, logger: s.logger}

	var notices []domain.Warning
	ws, err := workspace.Detect(source)
	switch {
	case errors.Is(err, workspace.ErrNotFound):
		notices = append(notices, domain.Warning{Message: "no go.mod or go.work found above " + source + ", tools run in the source directory"})
	case err != nil:
		return nil, fmt.Errorf("detect workspace: %w", err)
	default:
		p.workspace = ws
	}
	wsRoot := p.workspaceRoot()

	p.metadata, err = workspace.Metadata(ws, s.metadata)
	if err != nil {
		return nil, err
	}

	p.toolsDir = s.toolsDir
	if p.toolsDir == "" {
		p.toolsDir = filepath.Join(wsRoot, "tools")
	}

	reg, err := builtin.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, t := range s.builtins {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}

	sibling := locator.NewSiblingResolver()
	if s.siblingDir != nil {
		sibling = locator.SiblingResolver{Dir: *s.siblingDir}
	}
	p.locator, err = locator.New(
		locator.DedicatedResolver{Dir: p.toolsDir},
		locator.MultiToolResolver{Dir: p.toolsDir},
		locator.BuiltinResolver{Registry: reg},
		sibling,
	)
	if err != nil {
		return nil, err
	}

	runnerOpts := []process.RunnerOption{process.WithBaseDir(wsRoot)}
	if s.goCommand != "" {
		runnerOpts = append(runnerOpts, process.WithGoCommand(s.goCommand))
	}
	p.invoker = invoker.New(
		invoker.WithRunner(process.NewRunner(runnerOpts...)),
		invoker.WithRegistry(reg),
		invoker.WithLogger(s.logger),
	)

	engineOpts := []engine.Option{
		engine.WithInvoker(p.invoker),
		engine.WithKeyer(cachekey.New(s.cacheDir)),
		engine.WithLogger(s.logger),
		engine.WithPack(s.pack),
		engine.WithWorkspace(wsRoot, p.metadata),
		engine.WithNotices(notices...),
	}
	if s.passLimit != 0 {
		engineOpts = append(engineOpts, engine.WithPassLimit(s.passLimit))
	}
	if s.workers > 0 {
		engineOpts = append(engineOpts, engine.WithWorkers(s.workers))
	}
	if s.locker != nil {
		engineOpts = append(engineOpts, engine.WithLocker(s.locker, s.lockTTL))
	}
	for _, h := range s.hooks {
		engineOpts = append(engineOpts, engine.WithLifecycleHooks(h))
	}
	p.engine, err = engine.New(p.locator, engineOpts...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) workspaceRoot() string {
	if p.workspace != nil {
		return p.workspace.Root
	}
	return p.source
}

// Source returns the absolute source root.
func (p *Pipeline) Source() string { return p.source }

// Target returns the absolute target root.
func (p *Pipeline) Target() string { return p.target }

// ToolsDir returns the directory searched by the dedicated and multi-tool tiers.
func (p *Pipeline) ToolsDir() string { return p.toolsDir }

// Workspace returns the detected workspace, or nil.
func (p *Pipeline) Workspace() *workspace.Workspace { return p.workspace }

// Metadata returns the ZR_* metadata variables passed to every tool.
func (p *Pipeline) Metadata() map[string]string {
	out := make(map[string]string, len(p.metadata))
	for k, v := range p.metadata {
		out[k] = v
	}
	return out
}

// Build runs the pipeline once. The report is never nil.
func (p *Pipeline) Build(ctx context.Context) (*domain.Report, error) {
	return p.engine.Run(ctx, p.source, p.target)
}

// Tools lists every tool the tiers provide, in search order.
func (p *Pipeline) Tools() ([]domain.ToolInfo, error) {
	return p.locator.List()
}

// Help resolves name and returns its self description in markdown.
func (p *Pipeline) Help(ctx context.Context, name string) (string, error) {
	target, _, err := p.locator.Resolve(name)
	if err != nil {
		return "", err
	}
	return p.invoker.Help(ctx, target)
}
