// Package workspace finds the Go workspace around a resource tree and derives
// the project metadata passed to tools.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/aretw0/zres/pkg/domain"
)

// ErrNotFound is returned when no go.mod or go.work is found.
var ErrNotFound = errors.New("no go.mod or go.work found")

// Workspace is a detected Go module or workspace.
type Workspace struct {
	// Root is the directory holding the manifest.
	Root string
	// Manifest is the go.work or go.mod path.
	Manifest string
	// ModulePath is the path of the root module. Empty if a go.work uses no
	// module at its root and lists none.
	ModulePath string
}

// Detect returns the nearest workspace at or above dir. At each level a
// go.work is preferred over a go.mod.
func Detect(dir string) (*Workspace, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for {
		if ws, err := load(dir); ws != nil || err != nil {
			return ws, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNotFound
		}
		dir = parent
	}
}

func load(dir string) (*Workspace, error) {
	work := filepath.Join(dir, "go.work")
	if data, err := os.ReadFile(work); err == nil {
		wf, err := modfile.ParseWork(work, data, nil)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", work, err)
		}
		ws := &Workspace{Root: dir, Manifest: work}
		ws.ModulePath, err = workRootModule(dir, wf)
		if err != nil {
			return nil, err
		}
		return ws, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	mod := filepath.Join(dir, "go.mod")
	data, err := os.ReadFile(mod)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	mp := modfile.ModulePath(data)
	if mp == "" {
		return nil, fmt.Errorf("%s has no module directive", mod)
	}
	return &Workspace{Root: dir, Manifest: mod, ModulePath: mp}, nil
}

// workRootModule returns the module used at the workspace root, or else the
// first used module.
func workRootModule(dir string, wf *modfile.WorkFile) (string, error) {
	var first string
	for _, u := range wf.Use {
		p := filepath.Join(dir, filepath.FromSlash(u.Path))
		data, err := os.ReadFile(filepath.Join(p, "go.mod"))
		if err != nil {
			continue
		}
		mp := modfile.ModulePath(data)
		if p == dir {
			return mp, nil
		}
		if first == "" {
			first = mp
		}
	}
	return first, nil
}

// Metadata returns the workspace metadata as ZR_* variables. Values from
// overrides, keyed like domain.MetadataKeys, replace the detected ones. ws
// may be nil when no workspace was found.
func Metadata(ws *Workspace, overrides map[string]string) (map[string]string, error) {
	env := make(map[string]string)
	if ws != nil && ws.ModulePath != "" {
		last := path.Base(ws.ModulePath)
		env[domain.EnvPkgName] = ws.ModulePath
		env[domain.EnvCrateName] = strings.ReplaceAll(last, "-", "_")
		env[domain.EnvApp] = last
		if org := path.Dir(ws.ModulePath); org != "." {
			env[domain.EnvOrg] = path.Base(org)
		}
	}
	var unknown []string
	for k, v := range overrides {
		name, ok := domain.MetadataKeys[k]
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		env[name] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: unknown metadata keys: %s", domain.ErrConfig, strings.Join(unknown, ", "))
	}
	return env, nil
}
