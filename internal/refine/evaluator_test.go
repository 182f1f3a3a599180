package refine

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalInput() EvalInput {
	return EvalInput{
		Iteration:    2,
		Request:      request(),
		Requirements: "Main Goal: pricing",
		Candidates: []domain.Candidate{
			{ID: "article_1", Content: "<p>one</p>"},
			{ID: "article_2", Content: "<p>two</p>"},
			{ID: "article_3", Content: "<p>three</p>"},
		},
	}
}

func TestEvaluator_ContentComesFromCandidates(t *testing.T) {
	f := llm.NewFake("fake").
		On("generateMetrics", llm.Args(map[string]any{"metrics": []any{}})).
		On("evaluateArtifact", func(ports.ModelRequest, int) (*ports.ModelResponse, error) {
			args := scoreArgs("article_2", 77)
			args["bestArticle"].(map[string]any)["content"] = "<p>paraphrased by the model</p>"
			return &ports.ModelResponse{Args: args}, nil
		})
	s := &sleeps{}
	ev, err := NewEvaluator(f, f, testPolicies(s)).Evaluate(context.Background(), evalInput())
	require.NoError(t, err)
	require.NotNil(t, ev)

	assert.Equal(t, "article_2", ev.Best.ID)
	assert.Equal(t, "<p>two</p>", ev.Best.Content)
	assert.Equal(t, 77.0, ev.Score())
	assert.Equal(t, 1, f.Calls("generateMetrics_iteration_2"))
	assert.Equal(t, 1, f.Calls("evaluateArtifact_iteration_2"))
	assert.Zero(t, s.n)
}

func TestEvaluator_UnknownBestIDIsRetried(t *testing.T) {
	f := llm.NewFake("fake").
		On("generateMetrics", llm.Args(map[string]any{"metrics": []any{}})).
		On("evaluateArtifact", scores(pick{"article_9", 95}, pick{"article_3", 60}))
	s := &sleeps{}
	ev, err := NewEvaluator(f, f, testPolicies(s)).Evaluate(context.Background(), evalInput())
	require.NoError(t, err)
	require.NotNil(t, ev)

	assert.Equal(t, 2, f.Calls("evaluateArtifact"))
	assert.Equal(t, 1, s.n)
	assert.Equal(t, "article_3", ev.Best.ID)
	assert.Equal(t, "<p>three</p>", ev.Best.Content)
	assert.Equal(t, 60.0, ev.Score())
}

func TestEvaluator_UnknownBestIDExhaustsScoring(t *testing.T) {
	f := llm.NewFake("fake").
		On("generateMetrics", llm.Args(map[string]any{"metrics": []any{}})).
		On("evaluateArtifact", llm.Args(scoreArgs("article_9", 95)))
	ev, err := NewEvaluator(f, f, testPolicies(&sleeps{})).Evaluate(context.Background(), evalInput())
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, ScoringAttempts, f.Calls("evaluateArtifact"))
}

func TestEvaluator_MetricsFallback(t *testing.T) {
	f := llm.NewFake("fake").
		On("generateMetrics", llm.Args(nil)).
		On("evaluateArtifact", llm.Args(scoreArgs("article_1", 64)))
	s := &sleeps{}
	ev, err := NewEvaluator(f, f, testPolicies(s)).Evaluate(context.Background(), evalInput())
	require.NoError(t, err)
	require.NotNil(t, ev)

	assert.Equal(t, MetricsAttempts, f.Calls("generateMetrics"))
	assert.Equal(t, MetricsAttempts-1, s.n)
	assert.Empty(t, ev.Metrics.Metrics)
	assert.NotNil(t, ev.Metrics.Metrics)
	assert.Equal(t, 64.0, ev.Score())
}

func TestEvaluator_RejectsOutOfRangePayloads(t *testing.T) {
	f := llm.NewFake("fake").
		On("generateMetrics", func(_ ports.ModelRequest, call int) (*ports.ModelResponse, error) {
			weight := 1.5
			if call > 0 {
				weight = 0.4
			}
			return &ports.ModelResponse{Args: map[string]any{"metrics": []any{
				map[string]any{"name": "Clarity", "description": "Readable", "weight": weight, "criteria": []any{"short"}},
			}}}, nil
		}).
		On("evaluateArtifact", func(_ ports.ModelRequest, call int) (*ports.ModelResponse, error) {
			switch call {
			case 0:
				return &ports.ModelResponse{Args: scoreArgs("article_1", 150)}, nil
			case 1:
				return &ports.ModelResponse{Args: scoreArgs("", 80)}, nil
			case 2:
				return &ports.ModelResponse{Content: "I think article 1 is best"}, nil
			}
			return &ports.ModelResponse{Args: scoreArgs("article_3", 88)}, nil
		})
	s := &sleeps{}
	ev, err := NewEvaluator(f, f, testPolicies(s)).Evaluate(context.Background(), evalInput())
	require.NoError(t, err)
	require.NotNil(t, ev)

	assert.Equal(t, 2, f.Calls("generateMetrics"))
	assert.Equal(t, 4, f.Calls("evaluateArtifact"))
	assert.Equal(t, 1+3, s.n)
	assert.Equal(t, 0.4, ev.Metrics.Metrics[0].Weight)
	assert.Equal(t, "<p>three</p>", ev.Best.Content)
}

func TestEvaluator_ScoringPromptCarriesMetricsAndArticles(t *testing.T) {
	f := llm.NewFake("fake").
		On("generateMetrics", llm.Args(map[string]any{"metrics": []any{
			map[string]any{"name": "Clarity", "description": "Readable", "weight": 0.5, "criteria": []any{"short", "plain"}},
		}})).
		On("evaluateArtifact", llm.Args(scoreArgs("article_1", 70)))
	_, err := NewEvaluator(f, f, testPolicies(&sleeps{})).Evaluate(context.Background(), evalInput())
	require.NoError(t, err)

	var scoring ports.ModelRequest
	for _, r := range f.Requests() {
		if r.Step == "evaluateArtifact_iteration_2" {
			scoring = r
		}
	}
	require.Len(t, scoring.Messages, 2)
	system := scoring.Messages[0].Content
	assert.Contains(t, system, "- Clarity (weight: 0.5): Readable\n  Criteria:\n  * short\n  * plain")
	assert.Contains(t, system, "ARTICLE ID: article_2\n\n<p>two</p>\n\n---\n\nARTICLE ID: article_3")
	assert.Contains(t, system, "Main Goal: pricing")
	require.NotNil(t, scoring.Schema)
	assert.Equal(t, "evaluate_artifact", scoring.Schema.Name)
}

func TestEvaluator_CanceledContextIsAnError(t *testing.T) {
	f := llm.NewFake("fake").
		On("generateMetrics", llm.Args(map[string]any{"metrics": []any{}})).
		On("evaluateArtifact", llm.Args(scoreArgs("article_1", 70)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEvaluator(f, f).Evaluate(ctx, evalInput())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerator_Temperatures(t *testing.T) {
	f := llm.NewFake("fake").OnStream("generateArticleContents", func(req ports.ModelRequest, _ int) ([]ports.ModelChunk, error) {
		return []ports.ModelChunk{{Delta: "a"}, {Delta: "b"}}, nil
	})
	out, err := NewGenerator(f, 3).Generate(context.Background(), 1, []domain.Message{request()})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, domain.Candidate{ID: "article_3", Content: "ab"}, out[2])

	temps := map[string]float64{}
	for _, r := range f.Requests() {
		temps[r.Step] = *r.Temperature
	}
	assert.Equal(t, map[string]float64{
		"generateArticleContents_iteration_1_article_1": 0.5,
		"generateArticleContents_iteration_1_article_2": 0.7,
		"generateArticleContents_iteration_1_article_3": 0.9,
	}, temps)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "<p>x</p>\n", StripFences("```html\n<p>x</p>\n```"))
}

func TestEvaluator_CanceledDuringLastAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := llm.NewFake("fake").
		On("generateMetrics", llm.Args(map[string]any{"metrics": []any{}})).
		On("evaluateArtifact", func(_ ports.ModelRequest, call int) (*ports.ModelResponse, error) {
			if call == ScoringAttempts-1 {
				cancel()
			}
			return nil, errors.New("rate limited")
		})
	ev, err := NewEvaluator(f, f, testPolicies(&sleeps{})).Evaluate(ctx, evalInput())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, ev)
	assert.Equal(t, ScoringAttempts, f.Calls("evaluateArtifact"))
}
