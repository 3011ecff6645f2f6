package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPassStart  EventType = "pass_start"
	EventPassDone   EventType = "pass_done"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
	EventWarning    EventType = "warning"
	EventRunDone    EventType = "run_done"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// PassEvent marks the start or end of a pass.
type PassEvent struct {
	EventBase
	Pass int `json:"pass"`
	// Pending is the number of requests the pass resolves. Zero on the
	// converging pass.
	Pending int  `json:"pending"`
	Final   bool `json:"final,omitempty"`
}

// ToolEvent represents one tool invocation.
type ToolEvent struct {
	EventBase
	Pass      int           `json:"pass"`
	Request   string        `json:"request"`
	Tool      ToolTarget    `json:"tool"`
	Final     bool          `json:"final,omitempty"`
	Delegated bool          `json:"delegated,omitempty"`
	IsError   bool          `json:"is_error,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// WarningEvent carries a warning as soon as it is recorded.
type WarningEvent struct {
	EventBase
	Warning Warning `json:"warning"`
}

// RunEvent is emitted once when a run ends.
type RunEvent struct {
	EventBase
	Report *Report `json:"report"`
}

// LifecycleHooks defines callbacks for engine observability. Hooks may be
// called from several goroutines of the same pass.
type LifecycleHooks struct {
	OnPassStart  func(context.Context, *PassEvent)
	OnPassDone   func(context.Context, *PassEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
	OnWarning    func(context.Context, *WarningEvent)
	OnRunDone    func(context.Context, *RunEvent)
}

// ChainHooks returns hooks that call every non-nil hook of hs in order.
func ChainHooks(hs ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnPassStart: func(ctx context.Context, e *PassEvent) {
			for _, h := range hs {
				if h.OnPassStart != nil {
					h.OnPassStart(ctx, e)
				}
			}
		},
		OnPassDone: func(ctx context.Context, e *PassEvent) {
			for _, h := range hs {
				if h.OnPassDone != nil {
					h.OnPassDone(ctx, e)
				}
			}
		},
		OnToolCall: func(ctx context.Context, e *ToolEvent) {
			for _, h := range hs {
				if h.OnToolCall != nil {
					h.OnToolCall(ctx, e)
				}
			}
		},
		OnToolReturn: func(ctx context.Context, e *ToolEvent) {
			for _, h := range hs {
				if h.OnToolReturn != nil {
					h.OnToolReturn(ctx, e)
				}
			}
		},
		OnWarning: func(ctx context.Context, e *WarningEvent) {
			for _, h := range hs {
				if h.OnWarning != nil {
					h.OnWarning(ctx, e)
				}
			}
		},
		OnRunDone: func(ctx context.Context, e *RunEvent) {
			for _, h := range hs {
				if h.OnRunDone != nil {
					h.OnRunDone(ctx, e)
				}
			}
		},
	}
}
