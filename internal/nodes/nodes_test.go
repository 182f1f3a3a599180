package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/memory"
	"github.com/aretw0/canvas/internal/prompts"
	memstore "github.com/aretw0/canvas/pkg/adapters/memory"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

const (
	testAssistant = "assistant-1"
	testUser      = "user-1"
)

func testContext() context.Context {
	info := domain.NewRequestInfo("thread-1")
	info.AssistantID = testAssistant
	info.UserID = testUser
	return domain.WithRequest(context.Background(), info)
}

type fixture struct {
	model *llm.Fake
	store *memstore.Memory
	mem   *memory.Service
	nodes *Nodes
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{model: llm.NewFake("fake"), store: memstore.NewMemory()}
	f.mem = memory.NewService(f.store, memory.WithCache(0, 0))
	f.nodes = New(f.model, f.mem, opts...)
	return f
}

func stateWith(msg string) *domain.ConversationState {
	return domain.Input{Message: msg}.Seed(domain.NewState("thread-1"))
}

func withMarkdown(s *domain.ConversationState, body string) *domain.ConversationState {
	return s.Apply(domain.Update{Artifact: s.Artifact.Append(domain.MarkdownContent{
		ContentHeader: domain.ContentHeader{Title: "Notes"}, FullMarkdown: body,
	})})
}

func withCode(s *domain.ConversationState, lang domain.ProgrammingLanguage, code string) *domain.ConversationState {
	return s.Apply(domain.Update{Artifact: s.Artifact.Append(domain.CodeContent{
		ContentHeader: domain.ContentHeader{Title: "Snippet"}, Language: lang, Code: code,
	})})
}

func route(r string) llm.FakeHandler {
	return llm.Args(map[string]any{"route": r})
}

func TestGeneratePath_Flags(t *testing.T) {
	tests := []struct {
		name string
		in   domain.Input
		want domain.Action
	}{
		{"explicit next", domain.Input{Next: domain.ActionWebSearch, HighlightedText: &domain.HighlightedText{}}, domain.ActionWebSearch},
		{"highlighted text", domain.Input{HighlightedText: &domain.HighlightedText{MarkdownBlock: "b"}, HighlightedCode: &domain.HighlightedCode{}}, domain.ActionUpdateHighlightedText},
		{"highlighted code", domain.Input{HighlightedCode: &domain.HighlightedCode{EndCharIndex: 3}, Theme: &domain.ThemeSelector{Language: "fr"}}, domain.ActionUpdateArtifact},
		{"theme", domain.Input{Theme: &domain.ThemeSelector{ArtifactLength: domain.LengthShort}, CodeAction: &domain.CodeActionSelector{FixBugs: true}}, domain.ActionRewriteArtifactTheme},
		{"code action", domain.Input{CodeAction: &domain.CodeActionSelector{AddLogs: true}, CustomQuickActionID: "qa"}, domain.ActionRewriteCodeArtifactTheme},
		{"quick action", domain.Input{CustomQuickActionID: "qa", WebSearchEnabled: true}, domain.ActionCustomAction},
		{"web search", domain.Input{WebSearchEnabled: true}, domain.ActionWebSearch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.in.Message = "do it"
			s := tt.in.Seed(domain.NewState("t"))

			u, err := f.nodes.GeneratePath(testContext(), s)
			require.NoError(t, err)

			got, err := Route(s.Apply(u))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Zero(t, f.model.Calls(""), "flags never reach the model")
		})
	}
}

func TestGeneratePath_EmptyThemeSelectorIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.model.On("generatePath", route(prompts.RouteReply))
	s := domain.Input{Message: "hi", Theme: &domain.ThemeSelector{}}.Seed(domain.NewState("t"))

	u, err := f.nodes.GeneratePath(testContext(), s)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionReplyToGeneralInput, *u.Next)
}

func TestGeneratePath_RequirementsContinueToRewrite(t *testing.T) {
	f := newFixture(t)
	s := stateWith("build a page").Apply(domain.Update{AnalyzedRequirements: &domain.Requirements{MainGoal: "page"}})

	u, err := f.nodes.GeneratePath(testContext(), s)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionRewriteArtifact, *u.Next)
	assert.Zero(t, f.model.Calls("generatePath"))
}

func TestGeneratePath_DynamicRoute(t *testing.T) {
	tests := []struct {
		name     string
		artifact bool
		reply    string
		want     domain.Action
	}{
		{"reply", false, prompts.RouteReply, domain.ActionReplyToGeneralInput},
		{"generate", false, prompts.RouteGenerate, domain.ActionAnalyzeRequirements},
		{"rewrite", true, prompts.RouteRewrite, domain.ActionAnalyzeRequirements},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.model.On("generatePath", route(tt.reply))
			s := stateWith("make it blue")
			if tt.artifact {
				s = withMarkdown(s, "# Title")
			}

			u, err := f.nodes.GeneratePath(testContext(), s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *u.Next)

			req := f.model.Requests()[0]
			require.NotNil(t, req.Schema)
			assert.Equal(t, 0.0, *req.Temperature)
			assert.Equal(t, "make it blue", req.Messages[len(req.Messages)-1].Content)
		})
	}
}

func TestGeneratePath_RouteOutsideChoicesIsRejected(t *testing.T) {
	f := newFixture(t)
	// rewriting is not offered without an artifact
	f.model.On("generatePath", route(prompts.RouteRewrite))

	_, err := f.nodes.GeneratePath(testContext(), stateWith("hello"))
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
}

func TestGeneratePath_ModelFailure(t *testing.T) {
	boom := errors.New("boom")
	f := newFixture(t)
	f.model.On("generatePath", llm.Fail(boom))

	_, err := f.nodes.GeneratePath(testContext(), stateWith("hello"))
	assert.ErrorIs(t, err, boom)
}

func TestGeneratePath_NoHumanMessage(t *testing.T) {
	f := newFixture(t)
	_, err := f.nodes.GeneratePath(testContext(), domain.NewState("t"))
	assert.ErrorIs(t, err, domain.ErrNoHumanMessage)
}

func TestRoute(t *testing.T) {
	_, err := Route(domain.NewState("t"))
	assert.ErrorIs(t, err, domain.ErrNextNotSet)

	s := domain.NewState("t")
	s.Next = domain.ActionReflect
	_, err = Route(s)
	assert.ErrorIs(t, err, domain.ErrUnknownAction)

	for _, a := range domain.RoutableActions() {
		s.Next = a
		got, err := Route(s)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestSplitThinking(t *testing.T) {
	f := newFixture(t)
	body, msgs := f.nodes.splitThinking("<think>hmm</think>answer")
	assert.Equal(t, "<think>hmm</think>answer", body, "plain models keep their output")
	assert.Empty(t, msgs)

	thinking := New(llm.NewFake("deepseek-r1"), f.mem)
	body, msgs = thinking.splitThinking("<think>hmm</think>answer")
	assert.Equal(t, "answer", body)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hmm", msgs[0].Content)
	assert.True(t, msgs[0].HasAnnotation(domain.AnnotationThinking))
}

func TestContextMessages(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.nodes.contextMessages(testContext()))

	require.NoError(t, f.mem.SaveContextDocuments(context.Background(), testAssistant, []domain.ContextDocument{
		{Name: "brand.txt", Type: "text/plain", Data: "Use teal."},
	}))
	msgs := f.nodes.contextMessages(testContext())
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleHuman, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Use teal.")
	assert.True(t, msgs[0].HasAnnotation(domain.AnnotationContextDocuments))
}

func TestWithSystemPrefix(t *testing.T) {
	assert.Equal(t, "base", withSystemPrefix(context.Background(), "base"))

	info := domain.RequestInfo{SystemPrompt: "Be formal."}
	assert.Equal(t, "Be formal.\nbase", withSystemPrefix(domain.WithRequest(context.Background(), info), "base"))
}
