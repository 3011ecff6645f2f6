package locator

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMain(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))
}

func builtins(t *testing.T, names ...string) *registry.Registry {
	t.Helper()
	r := registry.NewRegistry()
	for _, n := range names {
		require.NoError(t, r.Register(registry.Tool{
			Name: n,
			Run:  func(context.Context, registry.Call) error { return nil },
		}))
	}
	return r
}

func TestResolve_TierOrder(t *testing.T) {
	tools := t.TempDir()
	writeMain(t, filepath.Join(tools, "zres-foo"))
	writeMain(t, filepath.Join(tools, "zres", "cmd", "foo"))
	writeMain(t, filepath.Join(tools, "zres", "cmd", "bar"))

	loc, err := New(
		DedicatedResolver{Dir: tools},
		MultiToolResolver{Dir: tools},
		BuiltinResolver{Registry: builtins(t, "foo", "copy")},
	)
	require.NoError(t, err)

	target, idx, err := loc.Resolve("foo")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, domain.TierDedicated, target.Tier)
	assert.Equal(t, filepath.Join(tools, "zres-foo"), target.Path)

	target, idx, err = loc.ResolveFrom("foo", idx+1)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, domain.TierMultiTool, target.Tier)

	target, idx, err = loc.ResolveFrom("foo", idx+1)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Equal(t, domain.KindBuiltin, target.Kind)

	target, _, err = loc.Resolve("bar")
	require.NoError(t, err)
	assert.Equal(t, domain.TierMultiTool, target.Tier)
}

func TestResolve_NotFound(t *testing.T) {
	tools := t.TempDir()
	writeMain(t, filepath.Join(tools, "zres-foo"))
	loc, err := New(
		DedicatedResolver{Dir: tools},
		MultiToolResolver{Dir: tools},
		BuiltinResolver{Registry: builtins(t)},
	)
	require.NoError(t, err)

	_, _, err = loc.Resolve("nope")
	var nf *domain.ToolNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
	assert.Equal(t, "nope", nf.Tool)
	assert.Equal(t, []string{
		filepath.Join(tools, "zres-nope"),
		filepath.Join(tools, "zres", "cmd", "nope"),
		"builtin nope",
	}, nf.Candidates)

	_, _, err = loc.ResolveFrom("foo", 1)
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []domain.Tier{domain.TierDedicated}, nf.Delegated)
	assert.Contains(t, err.Error(), "delegated by: dedicated")
}

func TestResolve_SkipsNonMainPackages(t *testing.T) {
	tools := t.TempDir()
	lib := filepath.Join(tools, "zres-lib")
	require.NoError(t, os.MkdirAll(lib, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "lib.go"), []byte("package lib\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "x_test.go"), []byte("package main\n"), 0o644))

	loc, err := New(DedicatedResolver{Dir: tools})
	require.NoError(t, err)
	_, _, err = loc.Resolve("lib")
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
}

func TestNew_DuplicateClaims(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("needs a case sensitive file system")
	}
	tools := t.TempDir()
	writeMain(t, filepath.Join(tools, "zres-Foo"))
	writeMain(t, filepath.Join(tools, "zres-foo"))

	_, err := New(DedicatedResolver{Dir: tools})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestNew_ToolsDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tools")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := New(DedicatedResolver{Dir: file})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestNew_MissingToolsDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none")
	loc, err := New(DedicatedResolver{Dir: missing}, MultiToolResolver{Dir: missing})
	require.NoError(t, err)
	list, err := loc.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSiblingResolver(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses unix permissions")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zres-svg"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zres-data"), []byte("data"), 0o644))

	r := SiblingResolver{Dir: dir}
	target, ok := r.TryResolve("svg")
	require.True(t, ok)
	assert.Equal(t, domain.KindExecutable, target.Kind)

	_, ok = r.TryResolve("data")
	assert.False(t, ok, "non executable files are ignored")

	list, err := r.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "svg", list[0].Name)
}

func TestList_Shadowed(t *testing.T) {
	tools := t.TempDir()
	writeMain(t, filepath.Join(tools, "zres-copy"))

	loc, err := New(
		DedicatedResolver{Dir: tools},
		MultiToolResolver{Dir: tools},
		BuiltinResolver{Registry: builtins(t, "copy", "rp")},
	)
	require.NoError(t, err)

	list, err := loc.List()
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "copy", list[0].Name)
	assert.Equal(t, domain.TierDedicated, list[0].Tier)
	assert.False(t, list[0].Shadowed)

	assert.Equal(t, "copy", list[1].Name)
	assert.Equal(t, domain.TierBuiltin, list[1].Tier)
	assert.True(t, list[1].Shadowed)

	assert.Equal(t, "rp", list[2].Name)
	assert.False(t, list[2].Shadowed)
}
