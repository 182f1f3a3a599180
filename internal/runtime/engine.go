package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/canvas/internal/logging"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/dsl"
)

// DefaultMaxSteps bounds a single run against accidental cycles.
const DefaultMaxSteps = 50

// Executor runs a conversation graph over a state until it reaches End.
// It holds no per-request data and is safe for concurrent use.
type Executor struct {
	graph    *dsl.Graph
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	maxSteps int
}

// Option configures the Executor.
type Option func(*Executor)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.hooks = h
	}
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// NewExecutor creates an executor for a validated graph.
func NewExecutor(g *dsl.Graph, opts ...Option) *Executor {
	e := &Executor{
		graph:    g,
		logger:   logging.NewNop(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the graph the executor runs.
func (e *Executor) Graph() *dsl.Graph { return e.graph }

// Result is the outcome of a run.
type Result struct {
	State *domain.ConversationState
	// Path lists the visited nodes in order.
	Path []domain.Action
}

// Run executes the graph from its entry node. On error the input state is
// returned unchanged in Result.State, so nothing partial is ever committed.
func (e *Executor) Run(ctx context.Context, initial *domain.ConversationState) (*Result, error) {
	state := initial.Clone()
	res := &Result{State: initial}
	current := e.graph.Entry

	for step := 0; current != dsl.End; step++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if step >= e.maxSteps {
			return res, &StepLimitError{Limit: e.maxSteps, Path: res.Path}
		}

		node, ok := e.graph.Node(current)
		if !ok {
			return res, &NodeError{Node: current, Err: domain.ErrUnknownAction}
		}
		res.Path = append(res.Path, current)

		update, err := e.execute(ctx, node, state)
		if err != nil {
			return res, err
		}
		state = state.Apply(update)

		next, err := resolveNext(node, state)
		if err != nil {
			return res, &NodeError{Node: current, Err: err}
		}
		e.logger.Debug("transition", "thread_id", state.ThreadID, "from", current, "to", next)
		current = next
	}

	res.State = state
	return res, nil
}

func (e *Executor) execute(ctx context.Context, node dsl.Node, state *domain.ConversationState) (domain.Update, error) {
	base := e.eventBase(ctx, state)
	e.emitNodeEnter(ctx, base, node.ID)

	start := time.Now()
	update, err := node.Fn(ctx, state)
	elapsed := time.Since(start)

	e.emitNodeLeave(ctx, base, node.ID, elapsed, err != nil)
	if err != nil {
		e.logger.Error("node failed", "thread_id", state.ThreadID, "node", node.ID, "err", err)
		return domain.Update{}, &NodeError{Node: node.ID, Err: err}
	}
	e.logger.Debug("node done", "thread_id", state.ThreadID, "node", node.ID, "duration", elapsed)
	return update, nil
}

func (e *Executor) eventBase(ctx context.Context, state *domain.ConversationState) domain.EventBase {
	base := domain.EventBase{ThreadID: state.ThreadID}
	if info, ok := domain.RequestFromContext(ctx); ok {
		base.RequestID = info.RequestID
	}
	return base
}

func (e *Executor) emitNodeEnter(ctx context.Context, base domain.EventBase, id domain.Action) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	base.Timestamp = time.Now()
	base.Type = domain.EventNodeEnter
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: base, Node: id})
}

func (e *Executor) emitNodeLeave(ctx context.Context, base domain.EventBase, id domain.Action, d time.Duration, failed bool) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	base.Timestamp = time.Now()
	base.Type = domain.EventNodeLeave
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: base, Node: id, Duration: d, IsError: failed})
}

// NodeError wraps a failure with the node that produced it.
type NodeError struct {
	Node domain.Action
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node '%s': %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// StepLimitError is returned when a run exceeds the step budget.
type StepLimitError struct {
	Limit int
	Path  []domain.Action
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("step limit %d exceeded, path: %v", e.Limit, e.Path)
}
