package refine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/canvas/internal/logging"
	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

// Loop runs generate then evaluate rounds until a candidate reaches the
// acceptance score or the round budget is spent.
type Loop struct {
	gen       *Generator
	eval      *Evaluator
	validator ports.ModelInvoker

	maxIterations int
	minScore      float64

	audit  ports.AuditStore
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithAuditStore persists every round for offline review.
func WithAuditStore(s ports.AuditStore) LoopOption {
	return func(l *Loop) { l.audit = s }
}

// WithLoopHooks emits OnIteration after every round.
func WithLoopHooks(h domain.LifecycleHooks) LoopOption {
	return func(l *Loop) { l.hooks = h }
}

// WithLoopLogger sets the logger.
func WithLoopLogger(log *slog.Logger) LoopOption {
	return func(l *Loop) { l.logger = log }
}

// WithLimits overrides the round budget and the acceptance score.
func WithLimits(maxIterations int, minScore float64) LoopOption {
	return func(l *Loop) {
		l.maxIterations = maxIterations
		l.minScore = minScore
	}
}

// NewLoop assembles a loop. validator runs the final formatting pass.
func NewLoop(gen *Generator, eval *Evaluator, validator ports.ModelInvoker, opts ...LoopOption) *Loop {
	l := &Loop{
		gen:           gen,
		eval:          eval,
		validator:     validator,
		maxIterations: domain.MaxIterations,
		minScore:      domain.MinAcceptableScore,
		logger:        logging.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Input is the context shared by every round.
type Input struct {
	// Request is the most recent human turn.
	Request domain.Message
	// Context messages are sent between the system prompt and the request.
	Context []domain.Message
	// Artifact is the content being refined, possibly empty.
	Artifact     string
	Reflections  string
	Requirements string
	WebSearch    string
	// UpdateMeta is set when the artifact type changes.
	UpdateMeta string
	// WebDSL steers the first round only.
	WebDSL *domain.WebDSL
	// SystemPrefix is prepended to the generation prompt.
	SystemPrefix string
}

// Result is the outcome of a run.
type Result struct {
	// Content is the validated best candidate, "" when no round was evaluated.
	Content string
	// Best is the retained evaluation, nil when every round failed to evaluate.
	Best   *domain.Evaluation
	Rounds int
	RunID  string
}

// Run executes the loop. Candidate generation failures abort the run;
// evaluation failures count as a score of 0.
func (l *Loop) Run(ctx context.Context, in Input) (*Result, error) {
	runID := RunID(l.now())
	aud := &auditor{store: l.audit, runID: runID, logger: l.logger}
	dsl := encodeDSL(in.WebDSL)

	var best *domain.Evaluation
	rounds := 0
	// completed counts the rounds that did not reach the threshold.
	completed := 0
	for rounds < l.maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		iteration := rounds + 1

		artifact := in.Artifact
		if best != nil {
			artifact = best.Best.Content
		}
		rewrite := prompts.RewriteInput{
			Artifact:     artifact,
			Reflections:  in.Reflections,
			UpdateMeta:   in.UpdateMeta,
			WebSearch:    in.WebSearch,
			Requirements: in.Requirements,
			Evaluation:   best.Summary(),
		}
		if rounds == 0 {
			rewrite.WebDSL = dsl
		}
		system := prompts.UpdateEntireArtifact(rewrite)
		if in.SystemPrefix != "" {
			system = in.SystemPrefix + "\n" + system
		}

		messages := make([]domain.Message, 0, len(in.Context)+2)
		messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: system})
		messages = append(messages, in.Context...)
		messages = append(messages, in.Request)

		candidates, err := l.gen.Generate(ctx, iteration, messages)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", iteration, err)
		}

		result, err := l.eval.Evaluate(ctx, EvalInput{
			Iteration:    iteration,
			Request:      in.Request,
			Requirements: in.Requirements,
			Reflections:  in.Reflections,
			Candidates:   candidates,
		})
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", iteration, err)
		}

		aud.round(ctx, roundRecord{
			Iteration:    iteration,
			Candidates:   candidates,
			Evaluation:   result,
			UserPrompt:   in.Request.Content,
			SystemPrompt: system,
			Original:     in.Artifact,
			WebDSL:       in.WebDSL,
		})

		// Ties go to the newer round.
		if result != nil && result.Score() >= best.Score() {
			best = result
		}
		rounds++

		l.logger.InfoContext(ctx, "refinement round",
			"iteration", iteration, "score", result.Score(), "best_score", best.Score(), "run_id", runID)
		l.emit(ctx, iteration, result.Score(), best.Score())

		if best.Score() >= l.minScore {
			break
		}
		completed++
	}

	aud.best(ctx, completed, best, in.Request.Content)
	if best == nil {
		l.logger.WarnContext(ctx, "no round was evaluated, keeping an empty revision", "rounds", rounds, "run_id", runID)
	}

	content := ""
	if best != nil {
		content = best.Best.Content
	}
	validated, err := l.validate(ctx, content)
	if err != nil {
		return nil, err
	}
	return &Result{Content: validated, Best: best, Rounds: rounds, RunID: runID}, nil
}

func (l *Loop) emit(ctx context.Context, iteration int, score, bestScore float64) {
	if l.hooks.OnIteration == nil {
		return
	}
	base := domain.EventBase{Timestamp: time.Now(), Type: domain.EventIteration}
	if info, ok := domain.RequestFromContext(ctx); ok {
		base.ThreadID, base.RequestID = info.ThreadID, info.RequestID
	}
	l.hooks.OnIteration(ctx, &domain.IterationEvent{EventBase: base, Iteration: iteration, Score: score, BestScore: bestScore})
}

// validate runs the formatting only pass. An empty best yields "" without a
// model call; a failing pass falls back to the unformatted content.
func (l *Loop) validate(ctx context.Context, content string) (string, error) {
	if content == "" || l.validator == nil {
		return content, nil
	}
	resp, err := l.validator.Invoke(ctx, ports.ModelRequest{
		Step: "validateAndFixHtml",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: prompts.ValidationHTML},
			{Role: domain.RoleHuman, Content: content},
		},
		Temperature: &validationTemperature,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		l.logger.WarnContext(ctx, "validation pass failed, keeping unformatted content", "err", err)
		return content, nil
	}
	if resp == nil || resp.Content == "" {
		return content, nil
	}
	return resp.Content, nil
}

var validationTemperature = 0.2

func encodeDSL(d *domain.WebDSL) string {
	if d == nil {
		return ""
	}
	data, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	return string(data)
}
