package nodes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/internal/websearch"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/dsl"
	"github.com/aretw0/canvas/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflect_MergesCustomFirstAndSaves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mem.SaveCustomReflections(ctx, testAssistant, &domain.Reflections{StyleRules: []string{"always use teal"}}))
	f.model.On("reflect", llm.Args(map[string]any{
		"styleRules": []any{"prefers short copy", "always use teal"},
		"content":    []any{"sells SaaS"},
	}))

	u, err := f.nodes.Reflect(testContext(), withMarkdown(stateWith("pricing page"), "<html></html>"))
	require.NoError(t, err)
	assert.True(t, u.IsEmpty())

	got, err := f.mem.Reflections(ctx, testAssistant)
	require.NoError(t, err)
	assert.Equal(t, []string{"always use teal", "prefers short copy"}, got.StyleRules)
	assert.Equal(t, []string{"sells SaaS"}, got.Content)

	req := f.model.Requests()[0]
	assert.Contains(t, req.Messages[0].Content, "<html></html>")
	assert.Contains(t, req.Messages[1].Content, "pricing page")
}

func TestReflect_FailuresNeverFailTheTurn(t *testing.T) {
	tests := []struct {
		name    string
		handler llm.FakeHandler
		ctx     context.Context
	}{
		{"model error", llm.Fail(errors.New("boom")), testContext()},
		{"no payload", llm.Text("no tool call"), testContext()},
		{"no assistant", llm.Args(map[string]any{"content": []any{"x"}}), context.Background()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.model.On("reflect", tt.handler)

			u, err := f.nodes.Reflect(tt.ctx, stateWith("hi"))
			require.NoError(t, err)
			assert.True(t, u.IsEmpty())

			got, err := f.mem.Reflections(context.Background(), testAssistant)
			require.NoError(t, err)
			assert.True(t, got.IsEmpty())
		})
	}
}

func TestRouteAfterClean(t *testing.T) {
	first := stateWith("hi").Apply(domain.Update{Messages: []domain.Message{domain.NewMessage(domain.RoleAI, "hello")}})
	got, err := RouteAfterClean(first)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionGenerateTitle, got)

	later := first.Apply(domain.Update{Messages: []domain.Message{domain.NewMessage(domain.RoleHuman, "more")}})
	got, err = RouteAfterClean(later)
	require.NoError(t, err)
	assert.Equal(t, dsl.End, got)

	big := later.Apply(domain.Update{InternalMessages: []domain.Message{
		domain.NewMessage(domain.RoleAI, strings.Repeat("x", domain.SummarizeCharLimit)),
	}})
	got, err = RouteAfterClean(big)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionSummarizer, got)
}

func TestCleanState_ResetsFlags(t *testing.T) {
	f := newFixture(t)
	s := domain.Input{
		Message:          "hi",
		Next:             domain.ActionWebSearch,
		Theme:            &domain.ThemeSelector{Language: "fr"},
		WebSearchEnabled: true,
	}.Seed(domain.NewState("t"))
	s = analyzed(s)

	u, err := f.nodes.CleanState(testContext(), s)
	require.NoError(t, err)
	out := s.Apply(u)
	assert.Empty(t, out.Next)
	assert.Nil(t, out.Theme)
	assert.False(t, out.WebSearchEnabled)
	assert.Nil(t, out.AnalyzedRequirements)
	assert.Len(t, out.Messages, 1)
}

func TestGenerateTitle(t *testing.T) {
	f := newFixture(t)
	f.model.On("generateTitle", llm.Args(map[string]any{"title": "  SaaS pricing page "}))

	u, err := f.nodes.GenerateTitle(testContext(), stateWith("pricing page"))
	require.NoError(t, err)
	require.NotNil(t, u.Title)
	assert.Equal(t, "SaaS pricing page", *u.Title)
}

func TestGenerateTitle_FailureLeavesThreadUntitled(t *testing.T) {
	for _, h := range []llm.FakeHandler{llm.Fail(errors.New("boom")), llm.Args(map[string]any{"title": ""})} {
		f := newFixture(t)
		f.model.On("generateTitle", h)
		u, err := f.nodes.GenerateTitle(testContext(), stateWith("pricing page"))
		require.NoError(t, err)
		assert.Nil(t, u.Title)
	}
}

func TestSummarizer_ReplacesInternalHistoryOnly(t *testing.T) {
	f := newFixture(t)
	f.model.On("summarizer", llm.Text("User wants a pricing page."))
	s := stateWith("pricing page").Apply(domain.Update{Messages: []domain.Message{domain.NewMessage(domain.RoleAI, "done")}})

	u, err := f.nodes.Summarizer(testContext(), s)
	require.NoError(t, err)
	out := s.Apply(u)

	assert.Len(t, out.Messages, 2)
	require.Len(t, out.InternalMessages, 1)
	assert.Equal(t, prompts.SummaryPrefix+"User wants a pricing page.", out.InternalMessages[0].Content)
	assert.True(t, out.InternalMessages[0].HasAnnotation(domain.AnnotationSummary))
	assert.Equal(t, prompts.Summarizer, f.model.Requests()[0].Messages[0].Content)
}

func TestSummarizer_FailureKeepsHistory(t *testing.T) {
	f := newFixture(t)
	f.model.On("summarizer", llm.Fail(errors.New("boom")))

	u, err := f.nodes.Summarizer(testContext(), stateWith("hi"))
	require.NoError(t, err)
	assert.True(t, u.IsEmpty())
}

type stubSearcher struct {
	results []domain.SearchResult
	err     error
}

func (s stubSearcher) Search(context.Context, string, int) ([]domain.SearchResult, error) {
	return s.results, s.err
}

var _ ports.Searcher = stubSearcher{}

func TestWebSearch_AddsEvidenceAndDisablesSearch(t *testing.T) {
	model := llm.NewFake("fake").
		On("classifyMessage", llm.Args(map[string]any{"shouldSearch": true})).
		On("webSearchQueryGenerator", llm.Text("saas pricing examples"))
	results := []domain.SearchResult{{Title: "Pricing 101", URL: "https://example.com", Content: "Use three tiers."}}
	f := newFixture(t, WithSearch(websearch.New(model, stubSearcher{results: results})))

	s := domain.Input{Message: "pricing page like the best SaaS", WebSearchEnabled: true}.Seed(domain.NewState("t"))
	u, err := f.nodes.WebSearch(testContext(), s)
	require.NoError(t, err)
	s = s.Apply(u)
	assert.Equal(t, results, s.WebSearchResults)

	u, err = f.nodes.RoutePostWebSearch(testContext(), s)
	require.NoError(t, err)
	s = s.Apply(u)
	assert.False(t, s.WebSearchEnabled)

	evidence, ok := s.FindAnnotated(domain.AnnotationWebSearchResults)
	require.True(t, ok)
	assert.Contains(t, evidence.Content, "Use three tiers.")
}

func TestRoutePostWebSearch_NoResults(t *testing.T) {
	f := newFixture(t)
	s := domain.Input{Message: "hi", WebSearchEnabled: true}.Seed(domain.NewState("t"))

	u, err := f.nodes.WebSearch(testContext(), s)
	require.NoError(t, err)
	s = s.Apply(u)
	u, err = f.nodes.RoutePostWebSearch(testContext(), s)
	require.NoError(t, err)
	s = s.Apply(u)

	assert.False(t, s.WebSearchEnabled)
	assert.Len(t, s.Messages, 1)
	_, ok := s.FindAnnotated(domain.AnnotationWebSearchResults)
	assert.False(t, ok)
}
