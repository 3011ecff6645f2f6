// Package builtin implements the tools compiled into the zres driver.
//
// Builtins resolve after the tools directory tiers, so a project can replace
// any of them with its own "zres-<name>" package. They follow the same
// protocol as process tools: inputs come from the ZR_* variables and
// directives go to stdout.
package builtin

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/registry"
)

// All returns every builtin tool.
func All() []registry.Tool {
	return []registry.Tool{
		Copy(),
		Glob(),
		Replace(),
		Shell(),
		Warn(),
		Fail(),
	}
}

// Register adds all builtins to r.
func Register(r *registry.Registry) error {
	for _, t := range All() {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding all builtins.
func NewRegistry() (*registry.Registry, error) {
	r := registry.NewRegistry()
	if err := Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

func readRequest(call registry.Call) ([]byte, error) {
	path := call.Getenv(domain.EnvRequest)
	if path == "" {
		return nil, fmt.Errorf("%s is not set", domain.EnvRequest)
	}
	return os.ReadFile(path)
}

func targetOf(call registry.Call) (string, error) {
	target := call.Getenv(domain.EnvTarget)
	if target == "" {
		return "", fmt.Errorf("%s is not set", domain.EnvTarget)
	}
	return target, nil
}

// lines returns the trimmed lines of content that are neither blank nor
// "#" comments.
func lines(content []byte) []string {
	var out []string
	for _, l := range strings.Split(string(content), "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		out = append(out, l)
	}
	return out
}
