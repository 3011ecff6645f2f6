package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/zres/pkg/adapters/memory"
	"github.com/aretw0/zres/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_Contract(t *testing.T) {
	ports.RunLockerContract(t, memory.NewLocker())
}

func TestMemoryLocker_DoubleUnlock(t *testing.T) {
	l := memory.NewLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx), "second unlock is a no-op")

	unlock, err = l.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.NoError(t, unlock(ctx))
}
