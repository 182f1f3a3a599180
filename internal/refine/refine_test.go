package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type sleeps struct {
	mu sync.Mutex
	n  int
}

func (s *sleeps) sleep(context.Context, time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return nil
}

func testPolicies(s *sleeps) EvaluatorOption {
	return WithPolicies(
		llm.Policy{Attempts: MetricsAttempts, Delay: RetryDelay, Sleep: s.sleep},
		llm.Policy{Attempts: ScoringAttempts, Delay: RetryDelay, Sleep: s.sleep},
	)
}

func candidateContent(iteration, article int) string {
	return fmt.Sprintf("<html>generateArticleContents_iteration_%d_article_%d</html>", iteration, article)
}

// scripted builds a fake whose candidates embed their step name and whose
// validator echoes its input.
func scripted() *llm.Fake {
	return llm.NewFake("fake").
		OnStream("generateArticleContents", func(req ports.ModelRequest, _ int) ([]ports.ModelChunk, error) {
			return []ports.ModelChunk{{Delta: "<html>"}, {Delta: req.Step}, {Delta: "</html>"}}, nil
		}).
		On("generateMetrics", llm.Args(map[string]any{
			"metrics": []any{map[string]any{
				"name": "Functionality", "description": "Works", "weight": 1.0,
				"criteria": []any{"buttons work", "no errors", "responsive"},
			}},
		})).
		On("validateAndFixHtml", func(req ports.ModelRequest, _ int) (*ports.ModelResponse, error) {
			return &ports.ModelResponse{Content: req.Messages[len(req.Messages)-1].Content}, nil
		})
}

func scoreArgs(best string, score float64) map[string]any {
	var comparison []any
	for i := 1; i <= domain.MaxPageCount; i++ {
		id := domain.CandidateID(i)
		total := score - 10
		if id == best {
			total = score
		}
		comparison = append(comparison, map[string]any{
			"articleId":          id,
			"scores":             []any{map[string]any{"score": total, "comment": "ok"}},
			"contentPreferences": map[string]any{"score": 70.0, "comment": "fits"},
			"stylePreferences":   map[string]any{"score": 75.0, "comment": "clean"},
			"overall": map[string]any{
				"totalScore": total,
				"strengths":  []any{"clear tiers"},
				"weaknesses": []any{"no toggle"},
			},
		})
	}
	return map[string]any{
		"articleComparison": comparison,
		"bestArticle":       map[string]any{"articleId": best, "totalScore": score, "justification": "best"},
	}
}

type pick struct {
	id    string
	score float64
}

// scores replies to the n-th scoring call with scores[n].
func scores(picks ...pick) llm.FakeHandler {
	return func(_ ports.ModelRequest, call int) (*ports.ModelResponse, error) {
		p := picks[min(call, len(picks)-1)]
		return &ports.ModelResponse{Args: scoreArgs(p.id, p.score)}, nil
	}
}

func newLoop(f *llm.Fake, s *sleeps, opts ...LoopOption) *Loop {
	return NewLoop(NewGenerator(f, domain.MaxPageCount), NewEvaluator(f, f, testPolicies(s)), f, opts...)
}

func request() domain.Message {
	return domain.NewMessage(domain.RoleHuman, "Build me a pricing page with three tiers")
}

func TestLoop_TieGoesToNewerRound(t *testing.T) {
	f := scripted().On("evaluateArtifact", scores(pick{"article_1", 80}, pick{"article_2", 80}))
	loop := newLoop(f, &sleeps{}, WithLimits(2, domain.MinAcceptableScore))

	res, err := loop.Run(context.Background(), Input{Request: request()})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, "article_2", res.Best.Best.ID)
	assert.Equal(t, candidateContent(2, 2), res.Best.Best.Content)
	assert.Equal(t, candidateContent(2, 2), res.Content)
}

func TestLoop_LowerScoreKeepsPreviousBest(t *testing.T) {
	f := scripted().On("evaluateArtifact", scores(pick{"article_3", 85}, pick{"article_1", 60}))
	loop := newLoop(f, &sleeps{}, WithLimits(2, domain.MinAcceptableScore))

	res, err := loop.Run(context.Background(), Input{Request: request()})
	require.NoError(t, err)
	assert.Equal(t, candidateContent(1, 3), res.Content)
	assert.Equal(t, 85.0, res.Best.Score())
}

func TestLoop_StopsAtAcceptableScore(t *testing.T) {
	f := scripted().On("evaluateArtifact", scores(pick{"article_1", 70}, pick{"article_2", 95}))
	loop := newLoop(f, &sleeps{})

	res, err := loop.Run(context.Background(), Input{Request: request()})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, 2*domain.MaxPageCount, f.Calls("generateArticleContents"))
	assert.Equal(t, 2, f.Calls("evaluateArtifact"))
	assert.Equal(t, 0, f.Calls("generateArticleContents_iteration_3"))
	assert.Equal(t, 95.0, res.Best.Score())
}

func TestLoop_RunsExactlyMaxIterations(t *testing.T) {
	f := scripted().On("evaluateArtifact", scores(pick{"article_1", 89}))
	loop := newLoop(f, &sleeps{})

	res, err := loop.Run(context.Background(), Input{Request: request()})
	require.NoError(t, err)

	assert.Equal(t, domain.MaxIterations, res.Rounds)
	assert.Equal(t, domain.MaxIterations*domain.MaxPageCount, f.Calls("generateArticleContents"))
	assert.Equal(t, domain.MaxIterations, f.Calls("evaluateArtifact"))
	assert.Equal(t, domain.MaxIterations, f.Calls("generateMetrics"))
}

func TestLoop_DegenerateRun(t *testing.T) {
	boom := errors.New("model unavailable")
	f := scripted().
		On("generateMetrics", llm.Fail(boom)).
		On("evaluateArtifact", llm.Fail(boom))
	s := &sleeps{}
	loop := newLoop(f, s)

	res, err := loop.Run(context.Background(), Input{Request: request(), Artifact: "old"})
	require.NoError(t, err)

	assert.Equal(t, domain.MaxIterations, res.Rounds)
	assert.Nil(t, res.Best)
	assert.Empty(t, res.Content)
	assert.Equal(t, 0, f.Calls("validateAndFixHtml"))
	assert.Equal(t, domain.MaxIterations*MetricsAttempts, f.Calls("generateMetrics"))
	assert.Equal(t, domain.MaxIterations*ScoringAttempts, f.Calls("evaluateArtifact"))
	assert.Equal(t, domain.MaxIterations*(MetricsAttempts-1+ScoringAttempts-1), s.n, "fixed delay between attempts")
}

func TestLoop_UnknownBestIDCountsAsFailedRound(t *testing.T) {
	f := scripted().On("evaluateArtifact", llm.Args(scoreArgs("article_7", 95)))
	loop := newLoop(f, &sleeps{}, WithLimits(1, domain.MinAcceptableScore))

	res, err := loop.Run(context.Background(), Input{Request: request(), Artifact: "old page"})
	require.NoError(t, err)
	assert.Nil(t, res.Best)
	assert.Empty(t, res.Content)
	assert.Equal(t, ScoringAttempts, f.Calls("evaluateArtifact"))
}

func TestLoop_UnknownBestIDThenValidPick(t *testing.T) {
	f := scripted().On("evaluateArtifact", scores(pick{"article_7", 95}, pick{"article_2", 92}))
	res, err := newLoop(f, &sleeps{}).Run(context.Background(), Input{Request: request(), Artifact: "old page"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, candidateContent(1, 2), res.Content)
	assert.Equal(t, 92.0, res.Best.Score())
}

func TestLoop_FailedEvaluationKeepsPreviousBest(t *testing.T) {
	f := scripted().On("evaluateArtifact", func(_ ports.ModelRequest, call int) (*ports.ModelResponse, error) {
		if call == 0 {
			return &ports.ModelResponse{Args: scoreArgs("article_2", 40)}, nil
		}
		return nil, errors.New("rate limited")
	})
	loop := newLoop(f, &sleeps{}, WithLimits(2, domain.MinAcceptableScore))

	res, err := loop.Run(context.Background(), Input{Request: request()})
	require.NoError(t, err)
	assert.Equal(t, candidateContent(1, 2), res.Content)
}

func TestLoop_CandidateFailureAbortsRun(t *testing.T) {
	f := scripted().
		OnStream("generateArticleContents_iteration_1_article_2", func(ports.ModelRequest, int) ([]ports.ModelChunk, error) {
			return []ports.ModelChunk{{Delta: "<html"}}, errors.New("stream reset")
		}).
		On("evaluateArtifact", scores(pick{"article_1", 95}))
	loop := newLoop(f, &sleeps{})

	_, err := loop.Run(context.Background(), Input{Request: request()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "article_2")
	assert.Equal(t, 0, f.Calls("evaluateArtifact"))
}

func TestLoop_PromptPerRound(t *testing.T) {
	f := scripted().On("evaluateArtifact", scores(pick{"article_1", 50}, pick{"article_1", 95}))
	loop := newLoop(f, &sleeps{})
	dsl := &domain.WebDSL{Title: "Pricing", Elements: []domain.DSLElement{{ID: "tier-basic", ElementType: "pricing-card"}}}

	_, err := loop.Run(context.Background(), Input{
		Request:      request(),
		Artifact:     "ORIGINAL",
		Requirements: "Main Goal: pricing",
		WebDSL:       dsl,
		SystemPrefix: "Be concise.",
	})
	require.NoError(t, err)

	system := map[int]string{}
	for _, r := range f.Requests() {
		if strings.HasPrefix(r.Step, "generateArticleContents_iteration_") && strings.HasSuffix(r.Step, "_article_1") {
			var it int
			_, _ = fmt.Sscanf(r.Step, "generateArticleContents_iteration_%d_article_1", &it)
			system[it] = r.Messages[0].Content
			assert.Equal(t, "Build me a pricing page with three tiers", r.Messages[len(r.Messages)-1].Content)
		}
	}
	require.Len(t, system, 2)

	assert.True(t, strings.HasPrefix(system[1], "Be concise.\n"))
	assert.Contains(t, system[1], "tier-basic")
	assert.Contains(t, system[1], "ORIGINAL")
	assert.Contains(t, system[1], domain.NoPreviousEvaluation)

	assert.NotContains(t, system[2], "tier-basic", "the blueprint steers the first round only")
	assert.Contains(t, system[2], prompts.NoWebDSL)
	assert.Contains(t, system[2], candidateContent(1, 1))
	assert.NotContains(t, system[2], "ORIGINAL")
	assert.Contains(t, system[2], "Strengths:\n- clear tiers")
}

func TestLoop_EmitsIterationEvents(t *testing.T) {
	f := scripted().On("evaluateArtifact", scores(pick{"article_1", 60}, pick{"article_1", 92}))
	var events []domain.IterationEvent
	loop := newLoop(f, &sleeps{}, WithLoopHooks(domain.LifecycleHooks{
		OnIteration: func(_ context.Context, e *domain.IterationEvent) { events = append(events, *e) },
	}))

	ctx := domain.WithRequest(context.Background(), domain.RequestInfo{ThreadID: "t1", RequestID: "r1"})
	_, err := loop.Run(ctx, Input{Request: request()})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Iteration)
	assert.Equal(t, 60.0, events[0].BestScore)
	assert.Equal(t, 92.0, events[1].Score)
	assert.Equal(t, "t1", events[1].ThreadID)
}

func TestLoop_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newLoop(scripted(), &sleeps{}).Run(ctx, Input{Request: request()})
	assert.ErrorIs(t, err, context.Canceled)
}

type memAudit struct {
	mu    sync.Mutex
	files map[string]string
	fail  bool
}

func (m *memAudit) Put(_ context.Context, runID, p string, data []byte) error {
	if m.fail {
		return errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = map[string]string{}
	}
	m.files[runID+"/"+p] = string(data)
	return nil
}

func TestLoop_Audit(t *testing.T) {
	f := scripted().
		OnStream("generateArticleContents", func(req ports.ModelRequest, _ int) ([]ports.ModelChunk, error) {
			return []ports.ModelChunk{{Delta: "```html\n<p>" + req.Step + "</p>```"}}, nil
		}).
		On("evaluateArtifact", scores(pick{"article_2", 91}))
	audit := &memAudit{}
	loop := newLoop(f, &sleeps{}, WithAuditStore(audit))

	res, err := loop.Run(context.Background(), Input{Request: request(), Artifact: "ORIGINAL", WebDSL: &domain.WebDSL{Title: "x"}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.RunID, "rewrite_artifact_set_"))

	root := res.RunID + "/"
	assert.Equal(t, "<p>generateArticleContents_iteration_1_article_1</p>", audit.files[root+"iteration_1/artifact_0_score_81/artifact_0_score_81.html"])
	assert.Contains(t, audit.files, root+"iteration_1/artifact_1_score_91/rating.json")
	assert.Equal(t, "ORIGINAL", audit.files[root+"iteration_1/original_artifact.txt"])
	assert.Equal(t, `"Build me a pricing page with three tiers"`, audit.files[root+"iteration_1/user_prompt.json"])
	assert.Contains(t, audit.files, root+"iteration_1/system_prompt.txt")
	assert.Contains(t, audit.files, root+"iteration_1/evaluation_results.json")
	assert.Contains(t, audit.files, root+"iteration_1/web_dsl.json")
	assert.Equal(t, "<p>generateArticleContents_iteration_1_article_2</p>", audit.files[root+"iterations_0_article_2_score_91.html"])
	assert.Contains(t, audit.files, root+"rating.json")
}

func TestLoop_AuditBestAfterLastRound(t *testing.T) {
	f := scripted().On("evaluateArtifact", scores(pick{"article_1", 89}))
	audit := &memAudit{}
	res, err := newLoop(f, &sleeps{}, WithLimits(2, domain.MinAcceptableScore), WithAuditStore(audit)).
		Run(context.Background(), Input{Request: request()})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rounds)
	assert.Contains(t, audit.files, res.RunID+"/iterations_2_article_1_score_89.html")
}

func TestLoop_AuditFailureIsIgnored(t *testing.T) {
	f := scripted().On("evaluateArtifact", scores(pick{"article_1", 99}))
	res, err := newLoop(f, &sleeps{}, WithAuditStore(&memAudit{fail: true})).Run(context.Background(), Input{Request: request()})
	require.NoError(t, err)
	assert.Equal(t, candidateContent(1, 1), res.Content)
}

func TestLoop_ValidationFailureKeepsContent(t *testing.T) {
	f := scripted().
		On("evaluateArtifact", scores(pick{"article_3", 99})).
		On("validateAndFixHtml", llm.Fail(errors.New("quota")))
	res, err := newLoop(f, &sleeps{}).Run(context.Background(), Input{Request: request()})
	require.NoError(t, err)
	assert.Equal(t, candidateContent(1, 3), res.Content)
}
