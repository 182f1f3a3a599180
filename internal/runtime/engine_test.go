package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/canvas/internal/runtime"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func say(text string) dsl.NodeFunc {
	return func(context.Context, *domain.ConversationState) (domain.Update, error) {
		return domain.Update{Messages: []domain.Message{domain.NewMessage(domain.RoleAI, text)}}, nil
	}
}

func mustBuild(t *testing.T, b *dsl.Builder) *dsl.Graph {
	t.Helper()
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestExecutor_LinearAndBranch(t *testing.T) {
	b := dsl.New()
	b.Add("start", say("a")).Go("decide")
	b.Add("decide", say("b")).Branch(func(s *domain.ConversationState) (domain.Action, error) {
		if len(s.Messages) > 1 {
			return "long", nil
		}
		return "short", nil
	}, "long", "short")
	b.Add("long", say("long")).Terminal()
	b.Add("short", say("short")).Terminal()

	exec := runtime.NewExecutor(mustBuild(t, b.Start("start")))
	res, err := exec.Run(context.Background(), domain.NewState("t1"))
	require.NoError(t, err)

	assert.Equal(t, []domain.Action{"start", "decide", "long"}, res.Path)
	require.Len(t, res.State.Messages, 3)
	assert.Equal(t, "long", res.State.Messages[2].Content)
}

func TestExecutor_ErrorKeepsOriginalState(t *testing.T) {
	boom := errors.New("boom")
	b := dsl.New()
	b.Add("start", func(context.Context, *domain.ConversationState) (domain.Update, error) {
		return domain.Update{Artifact: (*domain.Artifact)(nil).Append(domain.MarkdownContent{FullMarkdown: "x"})}, nil
	}).Go("fail")
	b.Add("fail", func(context.Context, *domain.ConversationState) (domain.Update, error) {
		return domain.Update{}, boom
	}).Terminal()

	initial := domain.NewState("t1")
	res, err := runtime.NewExecutor(mustBuild(t, b.Start("start"))).Run(context.Background(), initial)

	require.ErrorIs(t, err, boom)
	var nodeErr *runtime.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, domain.Action("fail"), nodeErr.Node)
	assert.Same(t, initial, res.State)
	assert.Nil(t, res.State.Artifact, "no partial artifact is committed")
}

func TestExecutor_UndeclaredRoute(t *testing.T) {
	b := dsl.New()
	b.Add("start", say("a")).Branch(func(*domain.ConversationState) (domain.Action, error) {
		return "elsewhere", nil
	}, dsl.End)

	_, err := runtime.NewExecutor(mustBuild(t, b.Start("start"))).Run(context.Background(), domain.NewState("t"))
	assert.ErrorContains(t, err, "undeclared target")
}

func TestExecutor_StepLimit(t *testing.T) {
	b := dsl.New()
	b.Add("ping", say("ping")).Go("pong")
	b.Add("pong", say("pong")).Go("ping")

	exec := runtime.NewExecutor(mustBuild(t, b.Start("ping")), runtime.WithMaxSteps(7))
	res, err := exec.Run(context.Background(), domain.NewState("t"))

	var limitErr *runtime.StepLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 7, limitErr.Limit)
	assert.Len(t, res.Path, 7)
}

func TestExecutor_ContextCanceled(t *testing.T) {
	b := dsl.New()
	b.Add("start", say("a")).Terminal()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runtime.NewExecutor(mustBuild(t, b.Start("start"))).Run(ctx, domain.NewState("t"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutor_LifecycleHooks(t *testing.T) {
	b := dsl.New()
	b.Add("start", say("a")).Go("step_2")
	b.Add("step_2", func(context.Context, *domain.ConversationState) (domain.Update, error) {
		return domain.Update{}, errors.New("nope")
	}).Terminal()

	var entered, left []domain.Action
	var failed []bool
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			entered = append(entered, e.Node)
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			left = append(left, e.Node)
			failed = append(failed, e.IsError)
			assert.Equal(t, "req-1", e.RequestID)
		},
	}

	ctx := domain.WithRequest(context.Background(), domain.RequestInfo{ThreadID: "t", RequestID: "req-1"})
	exec := runtime.NewExecutor(mustBuild(t, b.Start("start")), runtime.WithLifecycleHooks(hooks))
	_, err := exec.Run(ctx, domain.NewState("t"))
	require.Error(t, err)

	assert.Equal(t, []domain.Action{"start", "step_2"}, entered)
	assert.Equal(t, []domain.Action{"start", "step_2"}, left)
	assert.Equal(t, []bool{false, true}, failed)
}
