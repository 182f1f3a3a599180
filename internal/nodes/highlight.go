package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

var errNoHighlight = errors.New("no highlighted selection")

// UpdateHighlightedText rewrites the markdown block holding the user's
// selection and splices it back into the document.
func (n *Nodes) UpdateHighlightedText(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	current := s.Artifact.Current()
	if current == nil {
		return domain.Update{}, domain.ErrNoArtifact
	}
	if current.Kind() != domain.KindText {
		return domain.Update{}, fmt.Errorf("%w: highlighted text needs text, got %s", domain.ErrWrongContentKind, current.Kind())
	}
	hl := s.HighlightedText
	if hl == nil || hl.MarkdownBlock == "" {
		return domain.Update{}, errNoHighlight
	}
	human, err := lastHuman(s)
	if err != nil {
		return domain.Update{}, err
	}

	text, err := n.invokeText(ctx, ports.ModelRequest{
		Step: "updateHighlightedText",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: prompts.UpdateHighlightedText(hl.MarkdownBlock, hl.SelectedText)},
			human,
		},
	})
	if err != nil {
		return domain.Update{}, fmt.Errorf("highlighted text: %w", err)
	}

	doc := hl.FullMarkdown
	if doc == "" {
		doc = current.Body()
	}
	if !strings.Contains(doc, hl.MarkdownBlock) {
		n.logger.WarnContext(ctx, "highlighted block not found in document, appending the rewrite")
		doc = strings.TrimRight(doc, "\n") + "\n\n" + text
	} else {
		doc = strings.Replace(doc, hl.MarkdownBlock, text, 1)
	}
	return domain.Update{Artifact: s.Artifact.Append(current.WithBody(doc))}, nil
}

// UpdateArtifact rewrites the highlighted range of a code artifact.
func (n *Nodes) UpdateArtifact(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	current := s.Artifact.Current()
	if current == nil {
		return domain.Update{}, domain.ErrNoArtifact
	}
	if current.Kind() != domain.KindCode {
		return domain.Update{}, fmt.Errorf("%w: highlighted code needs code, got %s", domain.ErrWrongContentKind, current.Kind())
	}
	if s.HighlightedCode == nil {
		return domain.Update{}, errNoHighlight
	}
	human, err := lastHuman(s)
	if err != nil {
		return domain.Update{}, err
	}
	reflections, err := n.reflections(ctx, false)
	if err != nil {
		return domain.Update{}, err
	}

	before, selected, after := s.HighlightedCode.Split(current.Body())
	text, err := n.invokeText(ctx, ports.ModelRequest{
		Step: "updateArtifact",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: prompts.UpdateHighlightedCode(before, selected, after, reflections)},
			human,
		},
	})
	if err != nil {
		return domain.Update{}, fmt.Errorf("highlighted code: %w", err)
	}
	text, thinking := n.splitThinking(text)
	return domain.Update{
		Artifact: s.Artifact.Append(current.WithBody(before + text + after)),
		Messages: thinking,
	}, nil
}
