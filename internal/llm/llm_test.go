package llm

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]any
	}{
		{"plain", `{"a":1}`, map[string]any{"a": float64(1)}},
		{"fenced", "```json\n{\"a\":\"b\"}\n```", map[string]any{"a": "b"}},
		{"partial", `{"a":`, nil},
		{"array", `[1,2]`, nil},
		{"prose", `sure! {"a":1}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseObject(tt.in))
		})
	}
}

func TestDecodeArgs(t *testing.T) {
	var r domain.Requirements
	err := DecodeArgs(map[string]any{
		"mainGoal":    "pricing",
		"keyFeatures": []any{"tiers"},
	}, &r)
	require.NoError(t, err)
	assert.Equal(t, "pricing", r.MainGoal)
	assert.Equal(t, []string{"tiers"}, r.KeyFeatures)
	assert.Nil(t, r.Interactions)

	var m domain.MetricSet
	require.NoError(t, DecodeArgs(map[string]any{"metrics": []any{map[string]any{"name": "x", "weight": "0.5"}}}, &m))
	assert.Equal(t, 0.5, m.Metrics[0].Weight)

	assert.Error(t, DecodeArgs(nil, &m))
}

func TestThinking(t *testing.T) {
	assert.True(t, IsThinkingModel("ollama:deepseek-r1:14b"))
	assert.True(t, IsThinkingModel("openai:o3-mini"))
	assert.False(t, IsThinkingModel("gemini:gemini-2.5-flash"))

	assert.True(t, IsThinkingModel("openai:o1"))
	assert.True(t, IsThinkingModel("gemini:gemini-2.0-flash-thinking-exp"))
	assert.True(t, IsThinkingModel("ollama:qwq:32b"))
	assert.True(t, IsThinkingModel("openai:deepseek-ai/DeepSeek-R1"))
	assert.False(t, IsThinkingModel("openai:gpt-4o1-preview"))
	assert.False(t, IsThinkingModel("ollama:phi3-o1-tuned"))
	assert.False(t, IsThinkingModel("o3:gpt-4o"))
	assert.False(t, IsThinkingModel("openai:pro3-large"))

	thought, rest := SplitThinking("<think>\nplan it\n</think>\n<html></html>")
	assert.Equal(t, "plan it", thought)
	assert.Equal(t, "<html></html>", rest)

	thought, rest = SplitThinking("no tags")
	assert.Empty(t, thought)
	assert.Equal(t, "no tags", rest)
}

func TestPolicy_Do(t *testing.T) {
	var slept []time.Duration
	p := Policy{Attempts: 4, Delay: time.Second, Sleep: func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}}

	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return errors.New("nope")
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, slept, "fixed delay between attempts only")

	calls = 0
	err = p.Do(context.Background(), func(attempt int) error {
		calls++
		if attempt < 2 {
			return errors.New("retry")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicy_DoCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Policy{Attempts: 3, Delay: time.Hour}.Do(ctx, func(int) error { return errors.New("x") })
	assert.ErrorIs(t, err, context.Canceled)
}

type recorder struct {
	mu   sync.Mutex
	recs []ports.CallRecord
}

func (r *recorder) LogCall(_ context.Context, rec ports.CallRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
}

func TestMiddleware_CallLogAndHooks(t *testing.T) {
	fake := NewFake("fake").On("step", Text("hello world"))
	rec := &recorder{}
	var events []domain.EventType
	hooks := domain.LifecycleHooks{
		OnModelCall:   func(_ context.Context, e *domain.ModelEvent) { events = append(events, e.Type) },
		OnModelReturn: func(_ context.Context, e *domain.ModelEvent) { events = append(events, e.Type) },
	}
	m := Wrap(fake, WithHooks(hooks), WithCallLog(rec))

	ctx := domain.WithRequest(context.Background(), domain.RequestInfo{ThreadID: "t1", RequestID: "r1"})
	req := ports.ModelRequest{Step: "step", Messages: []domain.Message{
		{Role: domain.RoleSystem, Content: "be nice"},
		{Role: domain.RoleHuman, Content: "hi"},
	}}

	resp, err := m.Invoke(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Content)

	var streamed string
	for c, err := range m.Stream(ctx, req) {
		require.NoError(t, err)
		streamed += c.Delta
	}
	assert.Equal(t, "hello world", streamed)

	require.Len(t, rec.recs, 2)
	assert.Equal(t, "be nice", rec.recs[0].SystemPrompt)
	assert.Equal(t, "<human>\nhi\n</human>", rec.recs[0].UserPrompt)
	assert.Equal(t, "hello world", rec.recs[1].Output, "stream output is accumulated")
	assert.Equal(t, "r1", rec.recs[1].Request.RequestID)
	assert.Equal(t, []domain.EventType{
		domain.EventModelCall, domain.EventModelReturn,
		domain.EventModelCall, domain.EventModelReturn,
	}, events)
}

func TestWrap_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next ports.ModelInvoker) ports.ModelInvoker {
			return &observed{next: next, obs: observer{
				before: func(context.Context, ports.ModelRequest) { order = append(order, name) },
				after:  func(context.Context, ports.ModelRequest, string, map[string]any, time.Duration, error) {},
			}}
		}
	}
	m := Wrap(NewFake("f").On("", Text("x")), tag("A"), tag("B"))
	_, err := m.Invoke(context.Background(), ports.ModelRequest{Step: "any"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, order)
}

func TestFake_Scripts(t *testing.T) {
	boom := errors.New("boom")
	f := NewFake("f").
		On("evaluate", Fail(boom)).
		On("evaluateArtifact", func(_ ports.ModelRequest, call int) (*ports.ModelResponse, error) {
			return &ports.ModelResponse{Content: "call " + string(rune('0'+call))}, nil
		}).
		OnStream("dsl", func(ports.ModelRequest, int) ([]ports.ModelChunk, error) {
			return []ports.ModelChunk{{Args: map[string]any{"a": 1}}, {Args: map[string]any{"a": 2}}}, nil
		})
	ctx := context.Background()

	_, err := f.Invoke(ctx, ports.ModelRequest{Step: "evaluateMetrics"})
	assert.ErrorIs(t, err, boom)

	r, err := f.Invoke(ctx, ports.ModelRequest{Step: "evaluateArtifact_iteration_0"})
	require.NoError(t, err)
	assert.Equal(t, "call 0", r.Content, "longest prefix wins")
	r, _ = f.Invoke(ctx, ports.ModelRequest{Step: "evaluateArtifact_iteration_1"})
	assert.Equal(t, "call 1", r.Content)

	var last map[string]any
	for c, err := range f.Stream(ctx, ports.ModelRequest{Step: "dsl"}) {
		require.NoError(t, err)
		last = c.Args
	}
	assert.Equal(t, map[string]any{"a": 2}, last)

	_, err = f.Invoke(ctx, ports.ModelRequest{Step: "unknown"})
	assert.ErrorContains(t, err, "no script")
	assert.Equal(t, 3, f.Calls("evaluate"))
}

type blocking struct{}

func (blocking) Name() string { return "blocking" }

func (blocking) Invoke(ctx context.Context, _ ports.ModelRequest) (*ports.ModelResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blocking) Stream(ctx context.Context, _ ports.ModelRequest) iter.Seq2[ports.ModelChunk, error] {
	return func(yield func(ports.ModelChunk, error) bool) {
		<-ctx.Done()
		yield(ports.ModelChunk{}, ctx.Err())
	}
}

func TestWithTimeout(t *testing.T) {
	m := Wrap(blocking{}, WithTimeout(20*time.Millisecond))
	assert.Equal(t, "blocking", m.Name())

	_, err := m.Invoke(context.Background(), ports.ModelRequest{Step: "slow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	for _, err := range m.Stream(context.Background(), ports.ModelRequest{Step: "slow"}) {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}

	same := NewFake("f")
	assert.Same(t, same, Wrap(same, WithTimeout(0)))
}
