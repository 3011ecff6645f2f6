package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfig is returned for configuration problems detected before any pass runs.
var ErrConfig = errors.New("configuration error")

// ErrToolNotFound is returned when no tier provides a tool.
var ErrToolNotFound = errors.New("tool not found")

// ErrToolFailed is returned when a tool exits with a nonzero status.
var ErrToolFailed = errors.New("tool failed")

// ErrTargetConflict is returned when two requests imply the same target path.
var ErrTargetConflict = errors.New("target claimed by more than one request")

// ErrProtocol is returned when a tool misuses the stdout protocol.
var ErrProtocol = errors.New("protocol error")

// ErrFinalRedeferred is returned when a tool asks for "on-final" during the final pass.
var ErrFinalRedeferred = errors.New("on-final requested during the final pass")

// ErrRecursionLimit is returned when the pass loop does not converge in time.
var ErrRecursionLimit = errors.New("recursion limit exceeded")

// ToolNotFoundError names the tool and every search path tried.
type ToolNotFoundError struct {
	Tool    string
	Request string
	// Candidates lists the search locations tried, in tier order.
	Candidates []string
	// Delegated lists the tiers whose tools delegated the request.
	Delegated []Tier
}

func (e *ToolNotFoundError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "tool %q not found", e.Tool)
	if e.Request != "" {
		fmt.Fprintf(&sb, " for %s", e.Request)
	}
	if len(e.Delegated) > 0 {
		tiers := make([]string, len(e.Delegated))
		for i, t := range e.Delegated {
			tiers[i] = t.String()
		}
		fmt.Fprintf(&sb, " (delegated by: %s)", strings.Join(tiers, ", "))
	}
	if len(e.Candidates) > 0 {
		sb.WriteString("; searched:")
		for _, c := range e.Candidates {
			sb.WriteString("\n  ")
			sb.WriteString(c)
		}
	}
	return sb.String()
}

func (e *ToolNotFoundError) Unwrap() error { return ErrToolNotFound }

// ToolFailedError carries the verbatim stderr of a failed tool.
type ToolFailedError struct {
	Tool     string
	Request  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolFailedError) Error() string {
	msg := fmt.Sprintf("tool %q failed for %s", e.Tool, e.Request)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit status %d)", e.ExitCode)
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *ToolFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrToolFailed}
	}
	return []error{ErrToolFailed, e.Err}
}

// LimitError lists the requests still pending when the pass limit was hit.
type LimitError struct {
	Limit   int
	Pending []string
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("recursion limit of %d passes exceeded, pending requests:\n  %s",
		e.Limit, strings.Join(e.Pending, "\n  "))
}

func (e *LimitError) Unwrap() error { return ErrRecursionLimit }
