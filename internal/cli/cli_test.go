package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/zres/internal/fsutil"
	"github.com/aretw0/zres/pkg/config"
	"github.com/aretw0/zres/pkg/domain"
)

// project creates a workspace and makes it the working directory.
func project(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	files["go.mod"] = "module example.com/acme/site\n"
	for rel, content := range files {
		require.NoError(t, fsutil.WriteFile(filepath.Join(root, filepath.FromSlash(rel)), []byte(content)))
	}
	t.Chdir(root)
	return root
}

func ptr[T any](v T) *T { return &v }

func TestLoadConfig_Defaults(t *testing.T) {
	root := project(t, map[string]string{})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	t.Chdir(filepath.Join(root, "sub"))

	cfg, err := LoadConfig(Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "res"), cfg.Source)
	assert.Equal(t, filepath.Join(root, "target", "res"), cfg.Target)
	assert.Equal(t, filepath.Join(root, "tools"), cfg.Tools)
}

func TestLoadConfig_FileThenFlagsThenArgs(t *testing.T) {
	root := project(t, map[string]string{
		config.FileName: "source: assets\ntools: build/tools\nrecursion_limit: 8\nworkers: 2\n",
	})

	cfg, err := LoadConfig(Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "assets"), cfg.Source)
	assert.Equal(t, filepath.Join(root, "build", "tools"), cfg.Tools)
	assert.Equal(t, 8, cfg.RecursionLimit)

	cfg, err = LoadConfig(Options{
		Source: "other",
		Overrides: Overrides{
			RecursionLimit: ptr(4),
			Tools:          ptr("mytools"),
			Pack:           ptr(true),
			LockRedis:      ptr("localhost:6379"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "other"), cfg.Source)
	assert.Equal(t, filepath.Join(root, "mytools"), cfg.Tools)
	assert.Equal(t, 4, cfg.RecursionLimit)
	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.Pack)
	assert.Equal(t, "localhost:6379", cfg.Lock.Redis)
}

func TestLoadConfig_Errors(t *testing.T) {
	project(t, map[string]string{})

	_, err := LoadConfig(Options{ConfigPath: "missing.yaml"})
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = LoadConfig(Options{Overrides: Overrides{RecursionLimit: ptr(0)}})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestRunBuild(t *testing.T) {
	root := project(t, map[string]string{
		"res/hello.txt.zr-rp": "hello ${ZR_APP}\n",
		"res/plain.txt":       "plain",
	})
	metricsFile := filepath.Join(root, "metrics.prom")

	var stderr bytes.Buffer
	err := RunBuild(context.Background(), BuildOptions{Options: Options{
		Stderr: &stderr,
		Overrides: Overrides{
			Pack:        ptr(true),
			ToolCache:   ptr(filepath.Join(root, "cache")),
			MetricsFile: ptr(metricsFile),
		},
	}})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(root, "target", "res", "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello site\n", string(got))
	assert.FileExists(t, filepath.Join(root, "target", "res", "plain.txt"))
	assert.Contains(t, stderr.String(), "build done:")

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `zres_runs_total{status="done"} 1`)
}

func TestRunBuild_FailureIsReported(t *testing.T) {
	root := project(t, map[string]string{
		"res/broken.zr-fail": "out of coffee\n",
	})

	var stderr bytes.Buffer
	err := RunBuild(context.Background(), BuildOptions{Options: Options{
		Stderr:    &stderr,
		Overrides: Overrides{ToolCache: ptr(filepath.Join(root, "cache"))},
	}})
	var reported *ReportedError
	require.ErrorAs(t, err, &reported)
	assert.ErrorIs(t, err, domain.ErrToolFailed)
	assert.Contains(t, stderr.String(), "build failed:")
	assert.Contains(t, stderr.String(), "out of coffee")
}

func TestRunBuild_ListAndTool(t *testing.T) {
	project(t, map[string]string{})

	var stdout bytes.Buffer
	require.NoError(t, RunBuild(context.Background(), BuildOptions{Options: Options{Stdout: &stdout}, List: true}))
	assert.Contains(t, stdout.String(), "NAME")
	assert.Contains(t, stdout.String(), "rp")
	assert.Contains(t, stdout.String(), "builtin")

	stdout.Reset()
	require.NoError(t, RunBuild(context.Background(), BuildOptions{Options: Options{Stdout: &stdout}, Tool: "copy"}))
	assert.Contains(t, stdout.String(), "Copies a file or directory")

	err := RunTools(context.Background(), Options{Stdout: &stdout}, "nope")
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
}

func TestChangeWatcher_Batches(t *testing.T) {
	root := t.TempDir()
	var batches atomic.Int32
	var last atomic.Value

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewChangeWatcher(50*time.Millisecond, nil, root, filepath.Join(root, "missing"))
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, paths []string) {
			last.Store(paths)
			batches.Add(1)
		})
	}()

	// Give the watcher time to register the root.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))

	require.Eventually(t, func() bool { return batches.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	paths := last.Load().([]string)
	assert.Contains(t, paths, filepath.Join(root, "a.txt"))
	assert.Contains(t, paths, filepath.Join(root, "b.txt"))

	cancel()
	assert.NoError(t, <-done)
}

func TestChangeWatcher_NewDirectories(t *testing.T) {
	root := t.TempDir()
	var seen atomic.Value
	seen.Store("")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewChangeWatcher(20*time.Millisecond, nil, root)
	go func() {
		_ = w.Run(ctx, func(_ context.Context, paths []string) {
			seen.Store(strings.Join(paths, "\n"))
		})
	}()
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "deep.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		return strings.Contains(seen.Load().(string), filepath.Join(sub, "deep.txt"))
	}, 3*time.Second, 10*time.Millisecond)
}

func TestRunWatch_Rebuilds(t *testing.T) {
	root := project(t, map[string]string{
		"res/page.txt.zr-rp": "v1\n",
		config.FileName:      "watch:\n  debounce: 20ms\n",
	})
	target := filepath.Join(root, "target", "res", "page.txt")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunWatch(ctx, WatchOptions{Options: Options{
			Stderr:    io.Discard,
			Overrides: Overrides{ToolCache: ptr(filepath.Join(root, "cache"))},
		}})
	}()

	readTarget := func() string {
		data, _ := os.ReadFile(target)
		return string(data)
	}
	require.Eventually(t, func() bool { return readTarget() == "v1\n" }, 5*time.Second, 20*time.Millisecond)

	// Let the watcher register the trees before editing.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "res", "page.txt.zr-rp"), []byte("v2\n"), 0o644))
	require.Eventually(t, func() bool { return readTarget() == "v2\n" }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
