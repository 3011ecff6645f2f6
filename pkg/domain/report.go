package domain

import "time"

// FinalTask is an invocation deferred to the final pass.
type FinalTask struct {
	Request Request    `json:"request"`
	Tool    ToolTarget `json:"tool"`
	// Args is the string the tool passed with "on-final".
	Args string `json:"args"`
	// Seq is the enqueue position; final tasks run in Seq order.
	Seq int `json:"seq"`
}

// Warning is a non-fatal message gathered during a run.
type Warning struct {
	Tool    string `json:"tool,omitempty"`
	Request string `json:"request,omitempty"`
	Message string `json:"message"`
}

// Status is the terminal state of a build run.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Report summarizes a build run.
type Report struct {
	RunID       string        `json:"run_id"`
	Status      Status        `json:"status"`
	Passes      int           `json:"passes"`
	Invocations int           `json:"invocations"`
	FinalRuns   int           `json:"final_runs"`
	Warnings    []Warning     `json:"warnings,omitempty"`
	Err         error         `json:"-"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Failed reports whether the run ended in a fatal error.
func (r *Report) Failed() bool {
	return r != nil && r.Status == StatusFailed
}
