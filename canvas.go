package canvas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/logging"
	"github.com/aretw0/canvas/internal/memory"
	"github.com/aretw0/canvas/internal/nodes"
	"github.com/aretw0/canvas/internal/presentation/graph"
	"github.com/aretw0/canvas/internal/refine"
	"github.com/aretw0/canvas/internal/runtime"
	"github.com/aretw0/canvas/internal/websearch"
	memadapter "github.com/aretw0/canvas/pkg/adapters/memory"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
	"github.com/aretw0/canvas/pkg/session"
	"github.com/google/uuid"
)

// Version is set at build time.
var Version = "dev"

// DefaultAssistantID is used when neither the engine nor the input names one.
const DefaultAssistantID = "default"

var _ ports.Engine = (*Engine)(nil)

// Engine is the high-level entry point of the library. It runs one user turn
// at a time per thread through the conversation graph and persists the result.
type Engine struct {
	executor    *runtime.Executor
	sessions    *session.Manager
	memory      *memory.Service
	logger      *slog.Logger
	assistantID string
	userID      string
}

type settings struct {
	small, scoring ports.ModelInvoker
	searcher       ports.Searcher
	audit          ports.AuditStore
	callLog        ports.CallLogger
	threads        ports.ThreadStore
	locker         ports.DistributedLocker
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
	assistantID    string
	userID         string
	maxSteps       int
	maxIterations  int
	minScore       float64
	cacheSize      int
	cacheTTL       time.Duration
	cacheSet       bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*settings)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithLifecycleHooks registers observability hooks. Node, model and
// refinement events all flow through them.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) { s.hooks = hooks }
}

// WithSmallModel sets the model used for formatting passes.
func WithSmallModel(m ports.ModelInvoker) Option {
	return func(s *settings) { s.small = m }
}

// WithScoringModel sets the model comparing candidates.
func WithScoringModel(m ports.ModelInvoker) Option {
	return func(s *settings) { s.scoring = m }
}

// WithSearcher enables web search.
func WithSearcher(searcher ports.Searcher) Option {
	return func(s *settings) { s.searcher = searcher }
}

// WithAuditStore persists every refinement run.
func WithAuditStore(a ports.AuditStore) Option {
	return func(s *settings) { s.audit = a }
}

// WithCallLogger records every model call.
func WithCallLogger(cl ports.CallLogger) Option {
	return func(s *settings) { s.callLog = cl }
}

// WithThreadStore sets where threads are persisted. Defaults to memory.
func WithThreadStore(store ports.ThreadStore) Option {
	return func(s *settings) { s.threads = store }
}

// WithLocker serialises turns of a thread across processes.
func WithLocker(l ports.DistributedLocker) Option {
	return func(s *settings) { s.locker = l }
}

// WithAssistantID sets the assistant used when the input has none.
func WithAssistantID(id string) Option {
	return func(s *settings) { s.assistantID = id }
}

// WithUserID sets the user used when the input has none.
func WithUserID(id string) Option {
	return func(s *settings) { s.userID = id }
}

// WithMaxSteps bounds the nodes visited by one turn.
func WithMaxSteps(n int) Option {
	return func(s *settings) { s.maxSteps = n }
}

// WithRefineLimits overrides the iteration cap and the acceptance score of
// the refinement loop.
func WithRefineLimits(maxIterations int, minScore float64) Option {
	return func(s *settings) { s.maxIterations, s.minScore = maxIterations, minScore }
}

// WithMemoryCache sizes the reflection cache. A zero size disables it.
func WithMemoryCache(size int, ttl time.Duration) Option {
	return func(s *settings) { s.cacheSize, s.cacheTTL, s.cacheSet = size, ttl, true }
}

// New builds an engine around model. store holds reflections, quick actions
// and context documents; nil keeps them in memory.
func New(model ports.ModelInvoker, store ports.MemoryStore, opts ...Option) (*Engine, error) {
	if model == nil {
		return nil, errors.New("canvas: a model is required")
	}
	s := &settings{assistantID: DefaultAssistantID}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if store == nil {
		store = memadapter.NewMemory()
	}
	if s.threads == nil {
		s.threads = memadapter.NewStore()
	}

	mws := []llm.Middleware{llm.WithLogging(s.logger), llm.WithHooks(s.hooks)}
	if s.callLog != nil {
		mws = append(mws, llm.WithCallLog(s.callLog))
	}
	wrap := func(m ports.ModelInvoker) ports.ModelInvoker {
		if m == nil {
			m = model
		}
		return llm.Wrap(m, mws...)
	}
	primary := wrap(model)

	memOpts := []memory.Option{memory.WithLogger(s.logger)}
	if s.cacheSet {
		memOpts = append(memOpts, memory.WithCache(s.cacheSize, s.cacheTTL))
	}
	mem := memory.NewService(store, memOpts...)

	nodeOpts := []nodes.Option{
		nodes.WithLogger(s.logger),
		nodes.WithSmallModel(wrap(s.small)),
		nodes.WithScoringModel(wrap(s.scoring)),
		nodes.WithSearch(websearch.New(primary, s.searcher, websearch.WithLogger(s.logger))),
		nodes.WithHooks(s.hooks),
		nodes.WithLoopOptions(refine.WithLoopLogger(s.logger)),
		nodes.WithEvaluatorOptions(refine.WithEvaluatorLogger(s.logger)),
	}
	if s.audit != nil {
		nodeOpts = append(nodeOpts, nodes.WithAuditStore(s.audit))
	}
	if s.maxIterations > 0 {
		nodeOpts = append(nodeOpts, nodes.WithLoopOptions(refine.WithLimits(s.maxIterations, s.minScore)))
	}

	g, err := nodes.BuildGraph(nodes.New(primary, mem, nodeOpts...))
	if err != nil {
		return nil, fmt.Errorf("canvas: invalid graph: %w", err)
	}

	execOpts := []runtime.Option{runtime.WithLogger(s.logger), runtime.WithLifecycleHooks(s.hooks)}
	if s.maxSteps > 0 {
		execOpts = append(execOpts, runtime.WithMaxSteps(s.maxSteps))
	}

	sessOpts := []session.Option{session.WithLogger(s.logger)}
	if s.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(s.locker))
	}

	return &Engine{
		executor:    runtime.NewExecutor(g, execOpts...),
		sessions:    session.NewManager(s.threads, sessOpts...),
		memory:      mem,
		logger:      s.logger,
		assistantID: s.assistantID,
		userID:      s.userID,
	}, nil
}

// Turn is the outcome of one Run.
type Turn struct {
	State     *domain.ConversationState
	Path      []domain.Action
	RequestID string
}

// Run executes one user turn on threadID and persists the new state. An empty
// threadID starts a new thread. On failure nothing is persisted.
func (e *Engine) Run(ctx context.Context, threadID string, in domain.Input) (*Turn, error) {
	if threadID == "" {
		threadID = uuid.NewString()
	}

	info := domain.NewRequestInfo(threadID)
	info.AssistantID = firstNonEmpty(in.AssistantID, e.assistantID)
	info.UserID = firstNonEmpty(in.UserID, e.userID)
	info.SystemPrompt = in.SystemPrompt
	ctx = domain.WithRequest(ctx, info)

	turn := &Turn{RequestID: info.RequestID}
	state, err := e.sessions.Update(ctx, threadID, func(ctx context.Context, current *domain.ConversationState) (*domain.ConversationState, error) {
		res, err := e.executor.Run(ctx, in.Seed(current))
		if res != nil {
			turn.Path = res.Path
		}
		if err != nil {
			return nil, err
		}
		return res.State, nil
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "turn failed", "thread_id", threadID, "request_id", info.RequestID, "path", turn.Path, "err", err)
		return turn, err
	}
	turn.State = state
	e.logger.InfoContext(ctx, "turn done", "thread_id", threadID, "request_id", info.RequestID, "steps", len(turn.Path))
	return turn, nil
}

// Invoke runs one user turn and returns the new state.
func (e *Engine) Invoke(ctx context.Context, threadID string, in domain.Input) (*domain.ConversationState, error) {
	turn, err := e.Run(ctx, threadID, in)
	if err != nil {
		return nil, err
	}
	return turn.State, nil
}

// Thread returns the stored state of a thread, or domain.ErrThreadNotFound.
func (e *Engine) Thread(ctx context.Context, threadID string) (*domain.ConversationState, error) {
	return e.sessions.Load(ctx, threadID)
}

// Threads lists stored thread ids.
func (e *Engine) Threads(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// DeleteThread removes a thread.
func (e *Engine) DeleteThread(ctx context.Context, threadID string) error {
	return e.sessions.Delete(ctx, threadID)
}

// SelectRevision points the thread's artifact at an existing revision. The
// revision list itself is untouched.
func (e *Engine) SelectRevision(ctx context.Context, threadID string, index int) (*domain.ConversationState, error) {
	return e.sessions.Update(ctx, threadID, func(_ context.Context, s *domain.ConversationState) (*domain.ConversationState, error) {
		if s.Artifact.Len() == 0 {
			return nil, domain.ErrNoArtifact
		}
		a, err := s.Artifact.Select(index)
		if err != nil {
			return nil, err
		}
		out := s.Clone()
		out.Artifact = a
		return out, nil
	})
}

// Reflections returns what the engine has learnt for an assistant.
func (e *Engine) Reflections(ctx context.Context, assistantID string) (*domain.Reflections, error) {
	return e.memory.Reflections(ctx, firstNonEmpty(assistantID, e.assistantID))
}

// SaveCustomReflections stores user authored rules for an assistant.
func (e *Engine) SaveCustomReflections(ctx context.Context, assistantID string, r *domain.Reflections) error {
	return e.memory.SaveCustomReflections(ctx, firstNonEmpty(assistantID, e.assistantID), r)
}

// SaveQuickActions replaces the quick actions of a user.
func (e *Engine) SaveQuickActions(ctx context.Context, userID string, actions []domain.QuickAction) error {
	return e.memory.SaveQuickActions(ctx, firstNonEmpty(userID, e.userID), actions)
}

// SaveContextDocuments replaces the context documents of an assistant.
func (e *Engine) SaveContextDocuments(ctx context.Context, assistantID string, docs []domain.ContextDocument) error {
	return e.memory.SaveContextDocuments(ctx, firstNonEmpty(assistantID, e.assistantID), docs)
}

// Describe returns the conversation graph as a Mermaid flowchart.
func (e *Engine) Describe() string {
	return graph.GenerateMermaid(e.executor.Graph(), nil)
}

// DescribeTurn highlights the path of a turn on the graph.
func (e *Engine) DescribeTurn(t *Turn) string {
	overlay := &graph.GraphOverlay{VisitedNodes: t.Path}
	if len(t.Path) > 0 {
		overlay.CurrentNode = t.Path[len(t.Path)-1]
	}
	return graph.GenerateMermaid(e.executor.Graph(), overlay)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
