// Package report gathers the outcome of a build run.
package report

import (
	"sync"
	"time"

	"github.com/aretw0/zres/pkg/domain"
)

// Collector accumulates warnings, counters and the first fatal error of a
// run. It is safe for concurrent use. Nothing recorded is ever removed.
type Collector struct {
	mu          sync.Mutex
	runID       string
	start       time.Time
	passes      int
	invocations int
	finalRuns   int
	warnings    []domain.Warning
	err         error
}

// New creates a Collector for the run runID.
func New(runID string) *Collector {
	return &Collector{runID: runID, start: time.Now()}
}

// Warn records a warning.
func (c *Collector) Warn(w domain.Warning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, w)
}

// Fail records err if it is the first failure. It reports whether err was
// recorded.
func (c *Collector) Fail(err error) bool {
	if err == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false
	}
	c.err = err
	return true
}

// Err returns the first recorded failure.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Invoked counts a tool invocation that did not delegate.
func (c *Collector) Invoked(final bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if final {
		c.finalRuns++
		return
	}
	c.invocations++
}

// Pass records that pass n started.
func (c *Collector) Pass(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > c.passes {
		c.passes = n
	}
}

// Warnings returns a copy of the warnings recorded so far.
func (c *Collector) Warnings() []domain.Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Warning(nil), c.warnings...)
}

// Snapshot builds the report of everything recorded so far.
func (c *Collector) Snapshot() *domain.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := &domain.Report{
		RunID:       c.runID,
		Status:      domain.StatusDone,
		Passes:      c.passes,
		Invocations: c.invocations,
		FinalRuns:   c.finalRuns,
		Warnings:    append([]domain.Warning(nil), c.warnings...),
		Duration:    time.Since(c.start),
	}
	if c.err != nil {
		r.Status = domain.StatusFailed
		r.Err = c.err
		r.Error = c.err.Error()
	}
	return r
}
