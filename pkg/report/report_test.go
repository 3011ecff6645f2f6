package report

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/zres/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Concurrent(t *testing.T) {
	c := New("run-1")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Warn(domain.Warning{Tool: "t", Message: fmt.Sprint(i)})
			c.Invoked(i%10 == 0)
		}(i)
	}
	wg.Wait()

	r := c.Snapshot()
	assert.Len(t, r.Warnings, 50)
	assert.Equal(t, 45, r.Invocations)
	assert.Equal(t, 5, r.FinalRuns)
	assert.Equal(t, domain.StatusDone, r.Status)
	assert.False(t, r.Failed())
	assert.Equal(t, "run-1", r.RunID)
}

func TestCollector_FirstFailureWins(t *testing.T) {
	c := New("run-2")
	first := errors.New("first")
	assert.False(t, c.Fail(nil))
	assert.True(t, c.Fail(first))
	assert.False(t, c.Fail(errors.New("second")))
	assert.Same(t, first, c.Err())

	r := c.Snapshot()
	require.True(t, r.Failed())
	assert.Equal(t, "first", r.Error)
	assert.ErrorIs(t, r.Err, first)
}

func TestCollector_Passes(t *testing.T) {
	c := New("run-3")
	c.Pass(1)
	c.Pass(3)
	c.Pass(2)
	assert.Equal(t, 3, c.Snapshot().Passes)
}

func TestCollector_SnapshotIsCopy(t *testing.T) {
	c := New("run-4")
	c.Warn(domain.Warning{Message: "a"})
	r := c.Snapshot()
	c.Warn(domain.Warning{Message: "b"})
	assert.Len(t, r.Warnings, 1)
	assert.Len(t, c.Warnings(), 2)
}
