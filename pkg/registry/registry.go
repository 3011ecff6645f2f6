package registry

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aretw0/zres/pkg/domain"
)

// Call carries everything an in-process tool gets instead of a process
// environment.
type Call struct {
	// Env holds the ZR_* variables of the invocation.
	Env map[string]string
	// Dir is the working directory (the workspace root).
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// Getenv returns the value of key in the call env.
func (c Call) Getenv(key string) string {
	return c.Env[key]
}

// ToolFunction defines the signature for a builtin tool implementation.
// Directives are written to call.Stdout, exactly like a process tool would.
type ToolFunction func(ctx context.Context, call Call) error

// Tool is a builtin tool.
type Tool struct {
	Name string
	// Help is the markdown self description shown by "zres tools NAME".
	Help string
	Run  ToolFunction
}

// Registry manages the available builtin tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
// Registering a name twice is a configuration error.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" || tool.Run == nil {
		return fmt.Errorf("%w: builtin tool needs a name and a function", domain.ErrConfig)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[tool.Name]; ok {
		return fmt.Errorf("%w: builtin tool %q registered twice", domain.ErrConfig, tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute looks up a tool by name and executes it.
// Returns an error if the tool is not found.
func (r *Registry) Execute(ctx context.Context, name string, call Call) error {
	t, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: builtin %s", domain.ErrToolNotFound, name)
	}
	return t.Run(ctx, call)
}
