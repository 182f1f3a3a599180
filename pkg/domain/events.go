package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter   EventType = "node_enter"
	EventNodeLeave   EventType = "node_leave"
	EventModelCall   EventType = "model_call"
	EventModelReturn EventType = "model_return"
	EventIteration   EventType = "iteration"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ThreadID  string    `json:"thread_id"`
	RequestID string    `json:"request_id,omitempty"`
}

// NodeEvent represents entry or exit from a graph node.
type NodeEvent struct {
	EventBase
	Node     Action        `json:"node"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// ModelEvent represents one model invocation.
type ModelEvent struct {
	EventBase
	Step     string        `json:"step"`
	Model    string        `json:"model"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// IterationEvent is emitted after each refinement round.
type IterationEvent struct {
	EventBase
	Iteration int     `json:"iteration"`
	Score     float64 `json:"score"`
	BestScore float64 `json:"best_score"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter   func(context.Context, *NodeEvent)
	OnNodeLeave   func(context.Context, *NodeEvent)
	OnModelCall   func(context.Context, *ModelEvent)
	OnModelReturn func(context.Context, *ModelEvent)
	OnIteration   func(context.Context, *IterationEvent)
}

// CombineHooks fans every callback out to all non-nil hooks in order.
func CombineHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnNodeLeave: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnNodeLeave != nil {
					h.OnNodeLeave(ctx, e)
				}
			}
		},
		OnModelCall: func(ctx context.Context, e *ModelEvent) {
			for _, h := range hooks {
				if h.OnModelCall != nil {
					h.OnModelCall(ctx, e)
				}
			}
		},
		OnModelReturn: func(ctx context.Context, e *ModelEvent) {
			for _, h := range hooks {
				if h.OnModelReturn != nil {
					h.OnModelReturn(ctx, e)
				}
			}
		},
		OnIteration: func(ctx context.Context, e *IterationEvent) {
			for _, h := range hooks {
				if h.OnIteration != nil {
					h.OnIteration(ctx, e)
				}
			}
		},
	}
}
