// Package websearch gathers web evidence for the latest user turn.
//
// The flow is classify, then (only when the turn needs fresh facts) query
// rewriting, then retrieval. Every failure degrades to "no results": the
// caller proceeds without evidence.
package websearch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/logging"
	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

// ResultLimit is the number of snippets requested from the searcher.
const ResultLimit = 5

// Subgraph runs the classify, query and search steps.
type Subgraph struct {
	model    ports.ModelInvoker
	searcher ports.Searcher
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Subgraph.
type Option func(*Subgraph)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Subgraph) { s.logger = l }
}

// WithClock overrides the time source of the query prompt.
func WithClock(now func() time.Time) Option {
	return func(s *Subgraph) { s.now = now }
}

// New creates the subgraph. A nil searcher disables retrieval.
func New(model ports.ModelInvoker, searcher ports.Searcher, opts ...Option) *Subgraph {
	s := &Subgraph{model: model, searcher: searcher, logger: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var zero = 0.0

// Run returns the evidence for the conversation, nil when none applies.
func (s *Subgraph) Run(ctx context.Context, messages []domain.Message) []domain.SearchResult {
	if s.searcher == nil {
		s.logger.DebugContext(ctx, "web search disabled, no searcher configured")
		return nil
	}
	latest := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleHuman {
			latest = messages[i].Content
			break
		}
	}
	if latest == "" || !s.classify(ctx, latest) {
		return nil
	}
	query := s.query(ctx, messages)
	if query == "" {
		return nil
	}
	return s.search(ctx, query)
}

type classification struct {
	ShouldSearch bool `json:"shouldSearch"`
}

func (s *Subgraph) classify(ctx context.Context, message string) bool {
	resp, err := s.model.Invoke(ctx, ports.ModelRequest{
		Step:        "classifyMessage",
		Messages:    []domain.Message{{Role: domain.RoleHuman, Content: prompts.ClassifySearch(message)}},
		Schema:      &prompts.ClassifySchema,
		Temperature: &zero,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "search classification failed, skipping search", "err", err)
		return false
	}
	var c classification
	if resp == nil || llm.DecodeArgs(resp.Args, &c) != nil {
		s.logger.WarnContext(ctx, "search classification returned no decision, skipping search")
		return false
	}
	return c.ShouldSearch
}

// dateLayout renders dates the way the query prompt expects them.
const dateLayout = "Jan 2, 2006, 3:04:05 PM"

func (s *Subgraph) query(ctx context.Context, messages []domain.Message) string {
	resp, err := s.model.Invoke(ctx, ports.ModelRequest{
		Step: "webSearchQueryGenerator",
		Messages: []domain.Message{{
			Role:    domain.RoleHuman,
			Content: prompts.SearchQuery(domain.FormatMessages(messages), s.now().Format(dateLayout)),
		}},
		Temperature: &zero,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "search query generation failed", "err", err)
		return ""
	}
	if resp == nil {
		return ""
	}
	return strings.Trim(strings.TrimSpace(resp.Content), `"`)
}

func (s *Subgraph) search(ctx context.Context, query string) []domain.SearchResult {
	results, err := s.searcher.Search(ctx, query, ResultLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "web search failed", "query", query, "err", err)
		return nil
	}
	if len(results) > ResultLimit {
		results = results[:ResultLimit]
	}
	s.logger.InfoContext(ctx, "web search", "query", query, "results", len(results))
	return results
}
