package nodes

import (
	"errors"
	"testing"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeRequirements_FillsMissingFields(t *testing.T) {
	f := newFixture(t)
	f.model.On("analyzeRequirements", llm.Args(map[string]any{
		"mainGoal":    "Sell three subscription tiers",
		"keyFeatures": []any{"tier cards", "monthly/yearly toggle"},
	}))

	u, err := f.nodes.AnalyzeRequirements(testContext(), stateWith("Build me a pricing page with three tiers"))
	require.NoError(t, err)
	require.NotNil(t, u.AnalyzedRequirements)

	r := u.AnalyzedRequirements
	assert.Equal(t, "Sell three subscription tiers", r.MainGoal)
	assert.Equal(t, []string{"tier cards", "monthly/yearly toggle"}, r.KeyFeatures)
	assert.NotNil(t, r.Preferences)
	assert.Empty(t, r.Preferences)
	assert.NotNil(t, r.AccessibilityFeatures)

	req := f.model.Requests()[0]
	assert.Equal(t, 0.6, *req.Temperature)
	assert.Contains(t, req.Messages[0].Content, "No artifact found")
	assert.Contains(t, req.Messages[0].Content, domain.NoReflections)
}

func TestAnalyzeRequirements_MalformedPayloadUsesDefaults(t *testing.T) {
	f := newFixture(t)
	f.model.On("analyzeRequirements", llm.Args(map[string]any{"mainGoal": "x", "keyFeatures": []any{map[string]any{"not": "a string"}}}))

	u, err := f.nodes.AnalyzeRequirements(testContext(), stateWith("page"))
	require.NoError(t, err)
	require.NotNil(t, u.AnalyzedRequirements)
	assert.Equal(t, domain.Requirements{}.Normalize(), *u.AnalyzedRequirements)
}

func TestAnalyzeRequirements_SeesCurrentArtifact(t *testing.T) {
	f := newFixture(t)
	f.model.On("analyzeRequirements", llm.Args(map[string]any{"mainGoal": "x"}))

	_, err := f.nodes.AnalyzeRequirements(testContext(), withMarkdown(stateWith("shorter"), "# Existing page"))
	require.NoError(t, err)
	assert.Contains(t, f.model.Requests()[0].Messages[0].Content, "# Existing page")
}

func TestAnalyzeRequirements_Errors(t *testing.T) {
	boom := errors.New("boom")
	f := newFixture(t)
	f.model.On("analyzeRequirements", llm.Fail(boom))

	_, err := f.nodes.AnalyzeRequirements(testContext(), stateWith("page"))
	assert.ErrorIs(t, err, boom)

	_, err = f.nodes.AnalyzeRequirements(testContext(), domain.NewState("t"))
	assert.ErrorIs(t, err, domain.ErrNoHumanMessage)

	noAssistant := domain.WithRequest(t.Context(), domain.RequestInfo{UserID: testUser})
	_, err = f.nodes.AnalyzeRequirements(noAssistant, stateWith("page"))
	assert.ErrorIs(t, err, domain.ErrMissingAssistantID)
}

func TestDSLAccumulator_LastPayloadWins(t *testing.T) {
	var acc dslAccumulator
	acc.add(ports.ModelChunk{Delta: "{"})
	acc.add(ports.ModelChunk{Args: map[string]any{"title": "Pri"}})
	acc.add(ports.ModelChunk{Args: map[string]any{"title": "Pricing", "elements": []any{}}})
	acc.add(ports.ModelChunk{Delta: "}"})

	assert.Equal(t, map[string]any{"title": "Pricing", "elements": []any{}}, acc.last)
}

func analyzed(s *domain.ConversationState) *domain.ConversationState {
	return s.Apply(domain.Update{AnalyzedRequirements: &domain.Requirements{MainGoal: "Sell tiers", KeyFeatures: []string{"cards"}}})
}

func TestGenerateWebDSL_UsesFinalChunk(t *testing.T) {
	f := newFixture(t)
	f.model.OnStream("generateWebDSL", func(ports.ModelRequest, int) ([]ports.ModelChunk, error) {
		return []ports.ModelChunk{
			{Args: map[string]any{"title": "Pri"}},
			{Args: map[string]any{
				"title": "Pricing",
				"elements": []any{
					map[string]any{"id": "root", "elementType": "main"},
					map[string]any{"id": "card-1", "parentId": "root", "elementType": "pricing-card"},
				},
				"states": []any{map[string]any{"name": "billing", "initialValue": "monthly"}},
			}},
		}, nil
	})

	u, err := f.nodes.GenerateWebDSL(testContext(), analyzed(stateWith("pricing page")))
	require.NoError(t, err)
	require.NotNil(t, u.WebDSL)
	assert.Equal(t, "Pricing", u.WebDSL.Title)
	require.Len(t, u.WebDSL.Elements, 2)
	assert.Equal(t, "card-1", u.WebDSL.Children("root")[0].ID)

	req := f.model.Requests()[0]
	assert.Equal(t, 0.5, *req.Temperature)
	assert.Contains(t, req.Messages[0].Content, "Sell tiers")
}

func TestGenerateWebDSL_DegradesToNoBlueprint(t *testing.T) {
	tests := []struct {
		name   string
		chunks []ports.ModelChunk
		err    error
	}{
		{"stream error", []ports.ModelChunk{{Args: map[string]any{"title": "x"}}}, errors.New("reset")},
		{"text only", []ports.ModelChunk{{Delta: "sorry"}}, nil},
		{"malformed", []ports.ModelChunk{{Args: map[string]any{"elements": "nope"}}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.model.OnStream("generateWebDSL", func(ports.ModelRequest, int) ([]ports.ModelChunk, error) {
				return tt.chunks, tt.err
			})

			u, err := f.nodes.GenerateWebDSL(testContext(), analyzed(stateWith("page")))
			require.NoError(t, err)
			assert.True(t, u.IsEmpty())
		})
	}
}
