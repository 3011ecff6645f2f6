package locator

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/registry"
	"github.com/aretw0/zres/pkg/request"
)

// ToolPrefix starts the name of dedicated tool packages and sibling executables.
const ToolPrefix = "zres-"

// MultiToolDir is the shared tools package inside the tools directory.
const MultiToolDir = "zres"

// DedicatedResolver finds "<Dir>/zres-<tool>" Go main packages.
type DedicatedResolver struct {
	Dir string
}

func (r DedicatedResolver) Tier() domain.Tier { return domain.TierDedicated }

func (r DedicatedResolver) Candidate(name string) string {
	return filepath.Join(r.Dir, ToolPrefix+name)
}

func (r DedicatedResolver) TryResolve(name string) (domain.ToolTarget, bool) {
	if r.Dir == "" || !request.ValidTool(name) {
		return domain.ToolTarget{}, false
	}
	dir := r.Candidate(name)
	if !isMainPackage(dir) {
		return domain.ToolTarget{}, false
	}
	return domain.ToolTarget{Name: name, Tier: domain.TierDedicated, Kind: domain.KindGoPackage, Path: dir}, true
}

func (r DedicatedResolver) List() ([]domain.ToolTarget, error) {
	return listPackages(r.Dir, ToolPrefix, domain.TierDedicated)
}

// MultiToolResolver finds "<Dir>/zres/cmd/<tool>" Go main packages.
type MultiToolResolver struct {
	Dir string
}

func (r MultiToolResolver) Tier() domain.Tier { return domain.TierMultiTool }

func (r MultiToolResolver) cmdDir() string {
	return filepath.Join(r.Dir, MultiToolDir, "cmd")
}

func (r MultiToolResolver) Candidate(name string) string {
	return filepath.Join(r.cmdDir(), name)
}

func (r MultiToolResolver) TryResolve(name string) (domain.ToolTarget, bool) {
	if r.Dir == "" || !request.ValidTool(name) {
		return domain.ToolTarget{}, false
	}
	dir := r.Candidate(name)
	if !isMainPackage(dir) {
		return domain.ToolTarget{}, false
	}
	return domain.ToolTarget{Name: name, Tier: domain.TierMultiTool, Kind: domain.KindGoPackage, Path: dir}, true
}

func (r MultiToolResolver) List() ([]domain.ToolTarget, error) {
	if r.Dir == "" {
		return nil, nil
	}
	if err := checkDir(r.Dir); err != nil {
		return nil, err
	}
	return listPackages(r.cmdDir(), "", domain.TierMultiTool)
}

// BuiltinResolver serves the tools compiled into the driver.
type BuiltinResolver struct {
	Registry *registry.Registry
}

func (r BuiltinResolver) Tier() domain.Tier { return domain.TierBuiltin }

func (r BuiltinResolver) Candidate(name string) string {
	return "builtin " + name
}

func (r BuiltinResolver) TryResolve(name string) (domain.ToolTarget, bool) {
	if r.Registry == nil {
		return domain.ToolTarget{}, false
	}
	if _, ok := r.Registry.Lookup(name); !ok {
		return domain.ToolTarget{}, false
	}
	return domain.ToolTarget{Name: name, Tier: domain.TierBuiltin, Kind: domain.KindBuiltin}, true
}

func (r BuiltinResolver) List() ([]domain.ToolTarget, error) {
	if r.Registry == nil {
		return nil, nil
	}
	var out []domain.ToolTarget
	for _, t := range r.Registry.List() {
		out = append(out, domain.ToolTarget{Name: t.Name, Tier: domain.TierBuiltin, Kind: domain.KindBuiltin})
	}
	return out, nil
}

// SiblingResolver finds "zres-<tool>" executables in Dir, usually the
// directory of the driver executable.
type SiblingResolver struct {
	Dir string
}

// NewSiblingResolver returns a resolver for the directory of the running
// executable. It resolves nothing if that directory cannot be determined.
func NewSiblingResolver() SiblingResolver {
	exe, err := os.Executable()
	if err != nil {
		return SiblingResolver{}
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return SiblingResolver{Dir: filepath.Dir(exe)}
}

func (r SiblingResolver) Tier() domain.Tier { return domain.TierSibling }

func (r SiblingResolver) Candidate(name string) string {
	return filepath.Join(r.Dir, ToolPrefix+name+exeSuffix())
}

func (r SiblingResolver) TryResolve(name string) (domain.ToolTarget, bool) {
	if r.Dir == "" || !request.ValidTool(name) {
		return domain.ToolTarget{}, false
	}
	path := r.Candidate(name)
	st, err := os.Stat(path)
	if err != nil || !isExecutable(st) {
		return domain.ToolTarget{}, false
	}
	return domain.ToolTarget{Name: name, Tier: domain.TierSibling, Kind: domain.KindExecutable, Path: path}, true
}

func (r SiblingResolver) List() ([]domain.ToolTarget, error) {
	if r.Dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []domain.ToolTarget
	for _, e := range entries {
		name, ok := strings.CutPrefix(e.Name(), ToolPrefix)
		if !ok || e.IsDir() {
			continue
		}
		if s := exeSuffix(); s != "" {
			if name, ok = strings.CutSuffix(name, s); !ok {
				continue
			}
		}
		if !request.ValidTool(name) {
			continue
		}
		if t, ok := r.TryResolve(name); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Default returns the four tiers for a tools directory and a builtin registry.
func Default(toolsDir string, reg *registry.Registry) []Resolver {
	return []Resolver{
		DedicatedResolver{Dir: toolsDir},
		MultiToolResolver{Dir: toolsDir},
		BuiltinResolver{Registry: reg},
		NewSiblingResolver(),
	}
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

func isExecutable(st fs.FileInfo) bool {
	if st.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return st.Mode().Perm()&0o111 != 0
}

// checkDir accepts a missing tools directory but rejects a file in its place.
func checkDir(dir string) error {
	st, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// listPackages lists the Go main packages in dir whose names start with
// prefix. The tool name is the package dir name without the prefix.
func listPackages(dir, prefix string, tier domain.Tier) ([]domain.ToolTarget, error) {
	if dir == "" {
		return nil, nil
	}
	if err := checkDir(dir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []domain.ToolTarget
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok || !request.ValidTool(name) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !isMainPackage(path) {
			continue
		}
		out = append(out, domain.ToolTarget{Name: name, Tier: tier, Kind: domain.KindGoPackage, Path: path})
	}
	return out, nil
}

// isMainPackage reports whether dir holds a non-test Go file of package main.
func isMainPackage(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	fset := token.NewFileSet()
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasSuffix(n, ".go") || strings.HasSuffix(n, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, n), nil, parser.PackageClauseOnly)
		if err == nil && f.Name.Name == "main" {
			return true
		}
	}
	return false
}
