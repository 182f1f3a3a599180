package canvas_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/canvas"
	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/pkg/adapters/memory"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func replyModel() *llm.Fake {
	return llm.NewFake("fake").
		On("generatePath", llm.Args(map[string]any{"route": prompts.RouteReply})).
		On("replyToGeneralInput", llm.Text("Hi! What should we build?")).
		On("generateTitle", llm.Args(map[string]any{"title": "Greetings"}))
}

func newEngine(t *testing.T, model *llm.Fake, opts ...canvas.Option) (*canvas.Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	opts = append([]canvas.Option{canvas.WithThreadStore(store), canvas.WithMemoryCache(0, 0)}, opts...)
	e, err := canvas.New(model, nil, opts...)
	require.NoError(t, err)
	return e, store
}

func TestEngine_GeneralReplyPersists(t *testing.T) {
	e, _ := newEngine(t, replyModel())
	ctx := context.Background()

	turn, err := e.Run(ctx, "thread-1", domain.Input{Message: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, turn.RequestID)
	assert.Equal(t, []domain.Action{
		domain.ActionGeneratePath,
		domain.ActionReplyToGeneralInput,
		domain.ActionCleanState,
		domain.ActionGenerateTitle,
	}, turn.Path)

	stored, err := e.Thread(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "Greetings", stored.Title)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, domain.RoleHuman, stored.Messages[0].Role)
	assert.Equal(t, "Hi! What should we build?", stored.Messages[1].Content)

	ids, err := e.Threads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"thread-1"}, ids)
}

func TestEngine_EmptyThreadIDStartsNewThread(t *testing.T) {
	e, _ := newEngine(t, replyModel())

	state, err := e.Invoke(context.Background(), "", domain.Input{Message: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, state.ThreadID)
}

func TestEngine_FailedTurnPersistsNothing(t *testing.T) {
	model := llm.NewFake("fake").On("generatePath", llm.Fail(errors.New("model down")))
	e, _ := newEngine(t, model)
	ctx := context.Background()

	_, err := e.Invoke(ctx, "thread-1", domain.Input{Message: "hello"})
	require.Error(t, err)

	_, err = e.Thread(ctx, "thread-1")
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)
}

func TestEngine_TurnsOnAThreadAreSerialised(t *testing.T) {
	e, _ := newEngine(t, replyModel())
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Invoke(ctx, "busy", domain.Input{Message: "hello"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := e.Thread(ctx, "busy")
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 10)
}

func TestEngine_SelectRevision(t *testing.T) {
	e, store := newEngine(t, replyModel())
	ctx := context.Background()

	var a *domain.Artifact
	a = a.Append(domain.MarkdownContent{FullMarkdown: "one"})
	a = a.Append(domain.MarkdownContent{FullMarkdown: "two"})
	seed := domain.NewState("t")
	seed.Artifact = a
	require.NoError(t, store.Save(ctx, "t", seed))

	state, err := e.SelectRevision(ctx, "t", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Artifact.CurrentIndex)
	assert.Equal(t, 2, state.Artifact.Len())
	assert.Equal(t, "one", state.Artifact.Current().Body())

	_, err = e.SelectRevision(ctx, "t", 3)
	assert.Error(t, err)

	_, err = e.SelectRevision(ctx, "empty", 1)
	assert.ErrorIs(t, err, domain.ErrNoArtifact)
}

func TestEngine_MemoryDefaultsToConfiguredAssistant(t *testing.T) {
	e, _ := newEngine(t, replyModel(), canvas.WithAssistantID("helper"))
	ctx := context.Background()

	require.NoError(t, e.SaveCustomReflections(ctx, "", &domain.Reflections{StyleRules: []string{"short"}}))
	require.NoError(t, e.SaveQuickActions(ctx, "user-1", []domain.QuickAction{{ID: "tldr", Title: "TL;DR", Prompt: "Summarise"}}))

	_, err := e.Reflections(ctx, "")
	require.NoError(t, err)
}

func TestEngine_Describe(t *testing.T) {
	e, _ := newEngine(t, replyModel())

	out := e.Describe()
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, `generatePath(("generatePath"))`)
	assert.Contains(t, out, "cleanState")

	turn, err := e.Run(context.Background(), "t", domain.Input{Message: "hello"})
	require.NoError(t, err)
	assert.Contains(t, e.DescribeTurn(turn), "class generateTitle current;")
}

func TestNew_RequiresModel(t *testing.T) {
	_, err := canvas.New(nil, nil)
	assert.Error(t, err)
}
