package registry

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/zres/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) Tool {
	return Tool{
		Name: name,
		Help: "echoes ZR_TARGET",
		Run: func(_ context.Context, call Call) error {
			_, err := call.Stdout.Write([]byte(call.Getenv(domain.EnvTarget)))
			return err
		},
	}
}

func TestRegistry_RegisterAndExecute(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool("echo")))

	var out bytes.Buffer
	err := r.Execute(context.Background(), "echo", Call{
		Env:    map[string]string{domain.EnvTarget: "/t/x"},
		Stdout: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "/t/x", out.String())
}

func TestRegistry_Duplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool("echo")))
	err := r.Register(echoTool("echo"))
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestRegistry_Invalid(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Register(Tool{Name: "x"}), domain.ErrConfig)
	assert.ErrorIs(t, r.Register(Tool{Run: echoTool("y").Run}), domain.ErrConfig)
}

func TestRegistry_Missing(t *testing.T) {
	r := NewRegistry()
	err := r.Execute(context.Background(), "nope", Call{})
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool("b")))
	require.NoError(t, r.Register(echoTool("a")))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "b", list[1].Name)
}
