package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/zres/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetect_GoMod(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "go.mod"), "module github.com/acme/my-app\n\ngo 1.22\n")
	res := filepath.Join(root, "res", "deep")
	require.NoError(t, os.MkdirAll(res, 0o755))

	ws, err := Detect(res)
	require.NoError(t, err)
	assert.Equal(t, root, ws.Root)
	assert.Equal(t, "github.com/acme/my-app", ws.ModulePath)
}

func TestDetect_GoWork(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "go.work"), "go 1.22\n\nuse (\n\t./lib\n\t.\n)\n")
	write(t, filepath.Join(root, "go.mod"), "module example.com/root\n")
	write(t, filepath.Join(root, "lib", "go.mod"), "module example.com/lib\n")

	ws, err := Detect(filepath.Join(root, "lib"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "lib"), ws.Root, "nearest manifest wins")

	ws, err = Detect(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "go.work"), ws.Manifest)
	assert.Equal(t, "example.com/root", ws.ModulePath)
}

func TestDetect_GoWorkWithoutRootModule(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "go.work"), "go 1.22\n\nuse ./a\n")
	write(t, filepath.Join(root, "a", "go.mod"), "module example.com/a\n")

	ws, err := Detect(root)
	require.NoError(t, err)
	assert.Equal(t, "example.com/a", ws.ModulePath)
}

func TestMetadata(t *testing.T) {
	ws := &Workspace{ModulePath: "github.com/acme/my-app"}
	env, err := Metadata(ws, map[string]string{"version": "1.2.0", "app": "My App"})
	require.NoError(t, err)
	assert.Equal(t, "github.com/acme/my-app", env[domain.EnvPkgName])
	assert.Equal(t, "my_app", env[domain.EnvCrateName])
	assert.Equal(t, "acme", env[domain.EnvOrg])
	assert.Equal(t, "My App", env[domain.EnvApp])
	assert.Equal(t, "1.2.0", env[domain.EnvVersion])
}

func TestMetadata_NoWorkspace(t *testing.T) {
	env, err := Metadata(nil, map[string]string{"org": "acme"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{domain.EnvOrg: "acme"}, env)
}

func TestMetadata_UnknownKey(t *testing.T) {
	_, err := Metadata(nil, map[string]string{"colour": "red"})
	assert.ErrorIs(t, err, domain.ErrConfig)
}
