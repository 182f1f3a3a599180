package llm

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

// Middleware decorates a ModelInvoker to inject cross-cutting concerns.
type Middleware func(ports.ModelInvoker) ports.ModelInvoker

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner ports.ModelInvoker, mws ...Middleware) ports.ModelInvoker {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// observer is called once per call, after the response or the stream is done.
type observer struct {
	before func(ctx context.Context, req ports.ModelRequest)
	after  func(ctx context.Context, req ports.ModelRequest, content string, args map[string]any, elapsed time.Duration, err error)
}

type observed struct {
	next ports.ModelInvoker
	obs  observer
}

func (o *observed) Name() string { return o.next.Name() }

func (o *observed) Invoke(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	if o.obs.before != nil {
		o.obs.before(ctx, req)
	}
	start := time.Now()
	resp, err := o.next.Invoke(ctx, req)
	var content string
	var args map[string]any
	if resp != nil {
		content, args = resp.Content, resp.Args
	}
	o.obs.after(ctx, req, content, args, time.Since(start), err)
	return resp, err
}

func (o *observed) Stream(ctx context.Context, req ports.ModelRequest) iter.Seq2[ports.ModelChunk, error] {
	return func(yield func(ports.ModelChunk, error) bool) {
		if o.obs.before != nil {
			o.obs.before(ctx, req)
		}
		start := time.Now()
		var sb strings.Builder
		var args map[string]any
		var streamErr error
		defer func() {
			o.obs.after(ctx, req, sb.String(), args, time.Since(start), streamErr)
		}()
		for chunk, err := range o.next.Stream(ctx, req) {
			if err != nil {
				streamErr = err
				yield(chunk, err)
				return
			}
			sb.WriteString(chunk.Delta)
			if chunk.Args != nil {
				args = chunk.Args
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// WithLogging logs every call at debug level and failures at warn level.
func WithLogging(l *slog.Logger) Middleware {
	return func(next ports.ModelInvoker) ports.ModelInvoker {
		return &observed{next: next, obs: observer{
			after: func(ctx context.Context, req ports.ModelRequest, content string, _ map[string]any, elapsed time.Duration, err error) {
				if err != nil {
					l.WarnContext(ctx, "model call failed", "model", next.Name(), "step", req.Step, "duration", elapsed, "err", err)
					return
				}
				l.DebugContext(ctx, "model call", "model", next.Name(), "step", req.Step, "duration", elapsed, "output_chars", len(content))
			},
		}}
	}
}

// WithHooks emits OnModelCall and OnModelReturn.
func WithHooks(h domain.LifecycleHooks) Middleware {
	return func(next ports.ModelInvoker) ports.ModelInvoker {
		base := func(ctx context.Context, t domain.EventType) domain.EventBase {
			b := domain.EventBase{Timestamp: time.Now(), Type: t}
			if info, ok := domain.RequestFromContext(ctx); ok {
				b.ThreadID, b.RequestID = info.ThreadID, info.RequestID
			}
			return b
		}
		return &observed{next: next, obs: observer{
			before: func(ctx context.Context, req ports.ModelRequest) {
				if h.OnModelCall != nil {
					h.OnModelCall(ctx, &domain.ModelEvent{EventBase: base(ctx, domain.EventModelCall), Step: req.Step, Model: next.Name()})
				}
			},
			after: func(ctx context.Context, req ports.ModelRequest, _ string, _ map[string]any, elapsed time.Duration, err error) {
				if h.OnModelReturn != nil {
					h.OnModelReturn(ctx, &domain.ModelEvent{
						EventBase: base(ctx, domain.EventModelReturn),
						Step:      req.Step,
						Model:     next.Name(),
						Duration:  elapsed,
						IsError:   err != nil,
					})
				}
			},
		}}
	}
}

// WithCallLog forwards every call to a CallLogger.
func WithCallLog(cl ports.CallLogger) Middleware {
	return func(next ports.ModelInvoker) ports.ModelInvoker {
		return &observed{next: next, obs: observer{
			after: func(ctx context.Context, req ports.ModelRequest, content string, args map[string]any, elapsed time.Duration, err error) {
				system, turns := splitPrompt(req.Messages)
				info, _ := domain.RequestFromContext(ctx)
				cl.LogCall(ctx, ports.CallRecord{
					Step:         req.Step,
					Model:        next.Name(),
					SystemPrompt: system,
					UserPrompt:   domain.FormatMessages(turns),
					Output:       outputText(content, args),
					Request:      info,
					Duration:     elapsed,
					Err:          err,
				})
			},
		}}
	}
}

type timed struct {
	next    ports.ModelInvoker
	timeout time.Duration
}

// WithTimeout bounds every call, streamed ones included, to d. A zero d
// disables the bound.
func WithTimeout(d time.Duration) Middleware {
	return func(next ports.ModelInvoker) ports.ModelInvoker {
		if d <= 0 {
			return next
		}
		return &timed{next: next, timeout: d}
	}
}

func (t *timed) Name() string { return t.next.Name() }

func (t *timed) Invoke(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Invoke(ctx, req)
}

func (t *timed) Stream(ctx context.Context, req ports.ModelRequest) iter.Seq2[ports.ModelChunk, error] {
	return func(yield func(ports.ModelChunk, error) bool) {
		ctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()
		for chunk, err := range t.next.Stream(ctx, req) {
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}
