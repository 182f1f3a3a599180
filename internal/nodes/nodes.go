// Package nodes implements the steps of the conversation graph and wires
// them into a dsl.Graph.
//
// Every node is a dsl.NodeFunc: it reads the state, calls the model through
// ports.ModelInvoker and returns a partial domain.Update. Request scoped
// settings (assistant, user, system prompt prefix) come from the
// domain.RequestInfo carried by the context.
package nodes

import (
	"context"
	"log/slog"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/logging"
	"github.com/aretw0/canvas/internal/memory"
	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/internal/refine"
	"github.com/aretw0/canvas/internal/websearch"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

// Nodes holds the collaborators shared by every step. It keeps no per
// request data and is safe for concurrent use.
type Nodes struct {
	model   ports.ModelInvoker
	small   ports.ModelInvoker
	scoring ports.ModelInvoker
	memory  *memory.Service
	search  *websearch.Subgraph

	audit    ports.AuditStore
	hooks    domain.LifecycleHooks
	evalOpts []refine.EvaluatorOption
	loopOpts []refine.LoopOption
	logger   *slog.Logger
}

// Option configures Nodes.
type Option func(*Nodes)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Nodes) { n.logger = l }
}

// WithSmallModel sets the model of the formatting pass. Defaults to the main model.
func WithSmallModel(m ports.ModelInvoker) Option {
	return func(n *Nodes) { n.small = m }
}

// WithScoringModel sets the model comparing candidates. Defaults to the main model.
func WithScoringModel(m ports.ModelInvoker) Option {
	return func(n *Nodes) { n.scoring = m }
}

// WithSearch enables the web search step.
func WithSearch(s *websearch.Subgraph) Option {
	return func(n *Nodes) { n.search = s }
}

// WithAuditStore persists every refinement run.
func WithAuditStore(s ports.AuditStore) Option {
	return func(n *Nodes) { n.audit = s }
}

// WithHooks forwards refinement iterations to the lifecycle hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(n *Nodes) { n.hooks = h }
}

// WithEvaluatorOptions tunes the evaluator of the refinement loop.
func WithEvaluatorOptions(opts ...refine.EvaluatorOption) Option {
	return func(n *Nodes) { n.evalOpts = append(n.evalOpts, opts...) }
}

// WithLoopOptions tunes the refinement loop.
func WithLoopOptions(opts ...refine.LoopOption) Option {
	return func(n *Nodes) { n.loopOpts = append(n.loopOpts, opts...) }
}

// New creates the node set. model serves every step unless overridden.
func New(model ports.ModelInvoker, mem *memory.Service, opts ...Option) *Nodes {
	n := &Nodes{model: model, memory: mem, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	if n.small == nil {
		n.small = model
	}
	if n.scoring == nil {
		n.scoring = model
	}
	if n.search == nil {
		n.search = websearch.New(model, nil, websearch.WithLogger(n.logger))
	}
	return n
}

func requestInfo(ctx context.Context) domain.RequestInfo {
	info, _ := domain.RequestFromContext(ctx)
	return info
}

// reflections renders the assistant's reflections for a prompt.
func (n *Nodes) reflections(ctx context.Context, onlyContent bool) (string, error) {
	return n.memory.Formatted(ctx, requestInfo(ctx).AssistantID, onlyContent)
}

// contextMessages turns the assistant's documents into model context.
func (n *Nodes) contextMessages(ctx context.Context) []domain.Message {
	docs := n.memory.ContextDocuments(ctx, requestInfo(ctx).AssistantID)
	if len(docs) == 0 {
		return nil
	}
	msg := domain.NewMessage(domain.RoleHuman, prompts.ContextDocuments(docs))
	return []domain.Message{msg.Annotated(domain.AnnotationContextDocuments, len(docs))}
}

// withSystemPrefix prepends the request's system prompt, if any.
func withSystemPrefix(ctx context.Context, prompt string) string {
	if p := requestInfo(ctx).SystemPrompt; p != "" {
		return p + "\n" + prompt
	}
	return prompt
}

// splitThinking separates inline reasoning from the answer of thinking
// models. The reasoning, when present, becomes its own annotated message.
func (n *Nodes) splitThinking(content string) (string, []domain.Message) {
	if !llm.IsThinkingModel(n.model.Name()) {
		return content, nil
	}
	thinking, rest := llm.SplitThinking(content)
	if thinking == "" {
		return rest, nil
	}
	msg := domain.NewMessage(domain.RoleAI, thinking).Annotated(domain.AnnotationThinking, true)
	return rest, []domain.Message{msg}
}

func lastHuman(s *domain.ConversationState) (domain.Message, error) {
	m, ok := s.LastHumanMessage()
	if !ok {
		return domain.Message{}, domain.ErrNoHumanMessage
	}
	return m, nil
}

func (n *Nodes) invokeText(ctx context.Context, req ports.ModelRequest) (string, error) {
	resp, err := n.model.Invoke(ctx, req)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return resp.Content, nil
}
