package nodes

import (
	"context"
	"strings"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/dsl"
	"github.com/aretw0/canvas/pkg/ports"
)

// titleAfterMessages is the display history length of a thread's first turn.
const titleAfterMessages = 2

var titleTemperature = 0.0

// CleanState resets the per request flags.
func (n *Nodes) CleanState(context.Context, *domain.ConversationState) (domain.Update, error) {
	return domain.Update{ClearTransient: true}, nil
}

// RouteAfterClean names the housekeeping step due after a turn, if any.
func RouteAfterClean(s *domain.ConversationState) (domain.Action, error) {
	switch {
	case len(s.Messages) == titleAfterMessages:
		return domain.ActionGenerateTitle, nil
	case s.InternalChars() > domain.SummarizeCharLimit:
		return domain.ActionSummarizer, nil
	default:
		return dsl.End, nil
	}
}

// GenerateTitle names the thread after its first exchange. A failure leaves
// the thread untitled.
func (n *Nodes) GenerateTitle(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	resp, err := n.small.Invoke(ctx, ports.ModelRequest{
		Step: "generateTitle",
		Messages: []domain.Message{
			{Role: domain.RoleHuman, Content: prompts.Title(domain.FormatMessages(s.Messages), s.ArtifactBody())},
		},
		Schema:      &prompts.TitleSchema,
		Temperature: &titleTemperature,
	})
	if err != nil {
		n.logger.WarnContext(ctx, "title generation failed", "err", err)
		return domain.Update{}, nil
	}
	var out struct {
		Title string `json:"title"`
	}
	if resp == nil || llm.DecodeArgs(resp.Args, &out) != nil || strings.TrimSpace(out.Title) == "" {
		n.logger.WarnContext(ctx, "title generation returned no title")
		return domain.Update{}, nil
	}
	return domain.Update{Title: domain.Ptr(strings.TrimSpace(out.Title))}, nil
}

// Summarizer replaces the model context with a summary once it grows past
// domain.SummarizeCharLimit. The display history is untouched.
func (n *Nodes) Summarizer(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	text, err := n.invokeText(ctx, ports.ModelRequest{
		Step: "summarizer",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: prompts.Summarizer},
			{Role: domain.RoleHuman, Content: domain.FormatMessages(s.InternalMessages)},
		},
	})
	if err != nil || strings.TrimSpace(text) == "" {
		n.logger.WarnContext(ctx, "summarization skipped", "err", err, "chars", s.InternalChars())
		return domain.Update{}, nil
	}
	summary := domain.NewMessage(domain.RoleHuman, prompts.SummaryPrefix+text).Annotated(domain.AnnotationSummary, true)
	n.logger.InfoContext(ctx, "history summarized", "from_messages", len(s.InternalMessages), "from_chars", s.InternalChars())
	return domain.Update{
		ReplaceInternalMessages: []domain.Message{summary},
	}, nil
}
