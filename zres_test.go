package zres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/zres/internal/fsutil"
	"github.com/aretw0/zres/pkg/adapters/memory"
	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/protocol"
	"github.com/aretw0/zres/pkg/registry"
)

func project(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		require.NoError(t, fsutil.WriteFile(filepath.Join(root, filepath.FromSlash(rel)), []byte(content)))
	}
	return root
}

func TestPipeline_Build(t *testing.T) {
	root := project(t, map[string]string{
		"go.mod":                      "module example.com/acme/demo-app\n\ngo 1.22\n",
		"res/greeting.txt.zr-rp":      "Hello from ${ZR_APP} (${ZR_ORG}) v${ZR_VERSION:-dev}\n",
		"res/assets/logo.svg":         "<svg/>",
		"res/assets/all.zr-glob":      "*.svg\n",
		"res/notes/readme.md.zr-warn": "readme is a stub\n",
	})

	p, err := New(filepath.Join(root, "res"), filepath.Join(root, "target", "res"),
		WithToolCache(filepath.Join(root, "cache")),
		WithSiblingDir(""),
		WithMetadata(map[string]string{"version": "1.2.0"}),
	)
	require.NoError(t, err)
	require.NotNil(t, p.Workspace())
	assert.Equal(t, "example.com/acme/demo-app", p.Workspace().ModulePath)
	assert.Equal(t, filepath.Join(root, "tools"), p.ToolsDir())
	assert.Equal(t, "demo_app", p.Metadata()[domain.EnvCrateName])

	rep, err := p.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, rep.Status)

	got, err := os.ReadFile(filepath.Join(root, "target", "res", "greeting.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello from demo-app (acme) v1.2.0\n", string(got))

	logo, err := os.ReadFile(filepath.Join(root, "target", "res", "assets", "all", "logo.svg"))
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(logo))

	require.Len(t, rep.Warnings, 1)
	assert.Equal(t, "readme is a stub", rep.Warnings[0].Message)
}

func TestPipeline_NoWorkspace(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	root := project(t, map[string]string{
		"res/wd.txt.zr-sh": "pwd > \"$ZR_TARGET\"\nprintf %s \"$ZR_WORKSPACE_DIR\" > \"$ZR_TARGET_DD/ws.txt\"\n",
	})
	src := filepath.Join(root, "res")
	dst := filepath.Join(root, "target")

	p, err := New(src, dst, WithToolCache(filepath.Join(root, "cache")), WithSiblingDir(""))
	require.NoError(t, err)
	assert.Nil(t, p.Workspace())
	assert.Equal(t, filepath.Join(src, "tools"), p.ToolsDir())

	rep, err := p.Build(context.Background())
	require.NoError(t, err)

	wd, err := os.ReadFile(filepath.Join(dst, "wd.txt"))
	require.NoError(t, err)
	assert.Equal(t, realPath(t, src), realPath(t, strings.TrimSpace(string(wd))))

	ws, err := os.ReadFile(filepath.Join(dst, "ws.txt"))
	require.NoError(t, err)
	assert.Equal(t, src, string(ws))

	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0].Message, "no go.mod or go.work")
}

func realPath(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}

func TestPipeline_CustomBuiltin(t *testing.T) {
	root := project(t, map[string]string{
		"go.mod":         "module example.com/app\n",
		"res/x.zr-shout": "quiet",
		"res/y.zr-shout": "",
	})
	shout := registry.Tool{
		Name: "shout",
		Help: "# shout\n\nUppercases the request.",
		Run: func(_ context.Context, call registry.Call) error {
			data, err := os.ReadFile(call.Getenv(domain.EnvRequest))
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return protocol.Warn(call.Stdout, "nothing to shout")
			}
			return os.WriteFile(call.Getenv(domain.EnvTarget), []byte(string(data)+"!"), 0o644)
		},
	}

	p, err := New(filepath.Join(root, "res"), filepath.Join(root, "out"),
		WithBuiltin(shout),
		WithSiblingDir(""),
		WithToolCache(filepath.Join(root, "cache")),
		WithLocker(memory.NewLocker(), 0),
		WithWorkers(1),
	)
	require.NoError(t, err)

	rep, err := p.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Warnings, 1)
	assert.Equal(t, "nothing to shout", rep.Warnings[0].Message)

	got, err := os.ReadFile(filepath.Join(root, "out", "x"))
	require.NoError(t, err)
	assert.Equal(t, "quiet!", string(got))

	help, err := p.Help(context.Background(), "shout")
	require.NoError(t, err)
	assert.Contains(t, help, "Uppercases")

	tools, err := p.Tools()
	require.NoError(t, err)
	var names []string
	for _, ti := range tools {
		names = append(names, ti.Name)
	}
	assert.Contains(t, names, "shout")
	assert.Contains(t, names, "rp")
}

func TestPipeline_DuplicateBuiltin(t *testing.T) {
	root := project(t, map[string]string{"go.mod": "module example.com/app\n"})
	_, err := New(filepath.Join(root, "res"), filepath.Join(root, "out"),
		WithBuiltin(registry.Tool{Name: "rp", Run: func(context.Context, registry.Call) error { return nil }}),
	)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestPipeline_UnknownMetadata(t *testing.T) {
	root := project(t, map[string]string{"go.mod": "module example.com/app\n"})
	_, err := New(filepath.Join(root, "res"), filepath.Join(root, "out"),
		WithMetadata(map[string]string{"mascot": "gopher"}),
	)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestPipeline_MissingArgs(t *testing.T) {
	_, err := New("", "out")
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestPipeline_ToolNotFound(t *testing.T) {
	root := project(t, map[string]string{
		"go.mod":        "module example.com/app\n",
		"res/a.zr-nope": "",
	})
	p, err := New(filepath.Join(root, "res"), filepath.Join(root, "out"),
		WithSiblingDir(""), WithToolCache(filepath.Join(root, "cache")))
	require.NoError(t, err)

	rep, err := p.Build(context.Background())
	var nf *domain.ToolNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nope", nf.Tool)
	assert.True(t, rep.Failed())

	_, err = p.Help(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
}
