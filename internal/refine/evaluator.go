package refine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/logging"
	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

// Attempt budgets of the two evaluation phases.
const (
	MetricsAttempts = 4
	ScoringAttempts = 6
	RetryDelay      = time.Second
)

// Evaluator scores a round of candidates in two phases: metrics synthesis
// from the requirements, then a comparative scoring against those metrics.
type Evaluator struct {
	metricsModel ports.ModelInvoker
	scoringModel ports.ModelInvoker
	metrics      llm.Policy
	scoring      llm.Policy
	logger       *slog.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithPolicies replaces the retry policies of both phases.
func WithPolicies(metrics, scoring llm.Policy) EvaluatorOption {
	return func(e *Evaluator) {
		e.metrics = metrics
		e.scoring = scoring
	}
}

// WithEvaluatorLogger sets the logger.
func WithEvaluatorLogger(l *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) { e.logger = l }
}

// NewEvaluator creates an evaluator. metricsModel synthesises the metrics and
// scoringModel compares the candidates.
func NewEvaluator(metricsModel, scoringModel ports.ModelInvoker, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		metricsModel: metricsModel,
		scoringModel: scoringModel,
		metrics:      llm.Policy{Attempts: MetricsAttempts, Delay: RetryDelay},
		scoring:      llm.Policy{Attempts: ScoringAttempts, Delay: RetryDelay},
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvalInput is the context of one evaluation.
type EvalInput struct {
	// Iteration is the 1-based round number, used in step names.
	Iteration int
	// Request is the most recent human turn.
	Request      domain.Message
	Requirements string
	Reflections  string
	Candidates   []domain.Candidate
}

var (
	scoringTemperature = 0.2
	errNoPayload       = errors.New("no structured payload")
)

// Evaluate returns the evaluation of the candidates, or nil when the scoring
// phase exhausted its attempts. Only context cancellation is an error.
func (e *Evaluator) Evaluate(ctx context.Context, in EvalInput) (*domain.Evaluation, error) {
	metrics, err := e.synthesizeMetrics(ctx, in)
	if err != nil {
		return nil, err
	}
	return e.score(ctx, in, metrics)
}

func (e *Evaluator) synthesizeMetrics(ctx context.Context, in EvalInput) (domain.MetricSet, error) {
	req := ports.ModelRequest{
		Step: fmt.Sprintf("generateMetrics_iteration_%d", in.Iteration),
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: prompts.EvaluationMetrics(in.Requirements)},
			in.Request,
		},
		Schema: &prompts.MetricsSchema,
	}
	var out domain.MetricSet
	err := e.metrics.Do(ctx, func(attempt int) error {
		resp, err := e.metricsModel.Invoke(ctx, req)
		if err != nil {
			e.logger.DebugContext(ctx, "metrics attempt failed", "attempt", attempt+1, "err", err)
			return err
		}
		var set domain.MetricSet
		if err := decodeMetrics(resp, &set); err != nil {
			e.logger.DebugContext(ctx, "metrics attempt rejected", "attempt", attempt+1, "err", err)
			return err
		}
		out = set
		return nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.MetricSet{}, ctxErr
	}
	if errors.Is(err, llm.ErrExhausted) {
		e.logger.WarnContext(ctx, "metrics synthesis exhausted, scoring without metrics",
			"iteration", in.Iteration, "err", err)
		return domain.MetricSet{Metrics: []domain.Metric{}}, nil
	}
	if err != nil {
		return domain.MetricSet{}, err
	}
	if out.Metrics == nil {
		out.Metrics = []domain.Metric{}
	}
	return out, nil
}

func decodeMetrics(resp *ports.ModelResponse, out *domain.MetricSet) error {
	if resp == nil || resp.Args == nil {
		return errNoPayload
	}
	if err := llm.DecodeArgs(resp.Args, out); err != nil {
		return err
	}
	for _, m := range out.Metrics {
		if m.Weight < 0 || m.Weight > 1 {
			return fmt.Errorf("metric %q: weight %v out of [0,1]", m.Name, m.Weight)
		}
	}
	return nil
}

func (e *Evaluator) score(ctx context.Context, in EvalInput, metrics domain.MetricSet) (*domain.Evaluation, error) {
	system := prompts.Evaluation(prompts.EvaluationInput{
		Requirements: in.Requirements,
		Reflections:  in.Reflections,
		Metrics:      MetricsContext(metrics),
		Articles:     ArticlesContext(in.Candidates),
	})
	req := ports.ModelRequest{
		Step: fmt.Sprintf("evaluateArtifact_iteration_%d", in.Iteration),
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: system},
			{Role: domain.RoleHuman, Content: prompts.EvaluationRequest},
		},
		Schema:      &prompts.EvaluationSchema,
		Temperature: &scoringTemperature,
	}
	var out *domain.Evaluation
	err := e.scoring.Do(ctx, func(attempt int) error {
		resp, err := e.scoringModel.Invoke(ctx, req)
		if err != nil {
			e.logger.DebugContext(ctx, "scoring attempt failed", "attempt", attempt+1, "err", err)
			return err
		}
		var report domain.ScoreReport
		if err := decodeReport(resp, in.Candidates, &report); err != nil {
			e.logger.DebugContext(ctx, "scoring attempt rejected", "attempt", attempt+1, "err", err)
			return err
		}
		out = &domain.Evaluation{
			Best: domain.BestArticle{
				ID:      report.BestArticle.ArticleID,
				Content: contentByID(in.Candidates, report.BestArticle.ArticleID),
				Score:   report.BestArticle.TotalScore,
			},
			Details: report,
			Metrics: metrics,
		}
		return nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, llm.ErrExhausted) {
		e.logger.WarnContext(ctx, "scoring exhausted, round counts as score 0",
			"iteration", in.Iteration, "err", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeReport(resp *ports.ModelResponse, candidates []domain.Candidate, out *domain.ScoreReport) error {
	if resp == nil || resp.Args == nil {
		return errNoPayload
	}
	if err := llm.DecodeArgs(resp.Args, out); err != nil {
		return err
	}
	if out.BestArticle.ArticleID == "" {
		return errors.New("best article id missing")
	}
	if !hasCandidate(candidates, out.BestArticle.ArticleID) {
		return fmt.Errorf("best article %q is not a candidate", out.BestArticle.ArticleID)
	}
	if err := inRange("bestArticle.totalScore", out.BestArticle.TotalScore); err != nil {
		return err
	}
	for _, c := range out.ArticleComparison {
		if err := inRange(c.ArticleID+".overall.totalScore", c.Overall.TotalScore); err != nil {
			return err
		}
		if err := inRange(c.ArticleID+".contentPreferences", c.ContentPreferences.Score); err != nil {
			return err
		}
		if err := inRange(c.ArticleID+".stylePreferences", c.StylePreferences.Score); err != nil {
			return err
		}
		for _, s := range c.Scores {
			if err := inRange(c.ArticleID+".scores", s.Score); err != nil {
				return err
			}
		}
	}
	return nil
}

func inRange(field string, v float64) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%s: %v out of [0,100]", field, v)
	}
	return nil
}

func hasCandidate(candidates []domain.Candidate, id string) bool {
	for _, c := range candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}

// contentByID returns the generated content of id, never the model's echo.
func contentByID(candidates []domain.Candidate, id string) string {
	for _, c := range candidates {
		if c.ID == id {
			return c.Content
		}
	}
	return ""
}

// MetricsContext renders metrics for the scoring prompt.
func MetricsContext(set domain.MetricSet) string {
	lines := make([]string, 0, len(set.Metrics))
	for _, m := range set.Metrics {
		criteria := make([]string, len(m.Criteria))
		for i, c := range m.Criteria {
			criteria[i] = "  * " + c
		}
		lines = append(lines, fmt.Sprintf("- %s (weight: %v): %s\n  Criteria:\n%s", m.Name, m.Weight, m.Description, strings.Join(criteria, "\n")))
	}
	return strings.Join(lines, "\n")
}

// ArticlesContext renders candidates for the scoring prompt.
func ArticlesContext(candidates []domain.Candidate) string {
	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = "ARTICLE ID: " + c.ID + "\n\n" + c.Content
	}
	return strings.Join(parts, "\n\n---\n\n")
}
