package nodes

import (
	"context"
	"fmt"

	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

// recentForCustomAction is how much history a quick action may include.
const recentForCustomAction = 5

// CustomAction runs a user defined quick action against the artifact.
func (n *Nodes) CustomAction(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	current := s.Artifact.Current()
	if current == nil {
		return domain.Update{}, domain.ErrNoArtifact
	}
	action, err := n.memory.QuickAction(ctx, requestInfo(ctx).UserID, s.CustomQuickActionID)
	if err != nil {
		return domain.Update{}, err
	}

	in := prompts.CustomActionInput{
		IncludePrefix: action.IncludePrefix,
		Instructions:  action.Prompt,
		Artifact:      current.Body(),
	}
	if action.IncludeReflections {
		if in.Reflections, err = n.reflections(ctx, false); err != nil {
			return domain.Update{}, err
		}
	}
	if action.IncludeRecentHistory {
		msgs := s.InternalMessages
		in.Conversation = domain.FormatMessages(msgs[max(len(msgs)-recentForCustomAction, 0):])
	}

	text, err := n.invokeText(ctx, ports.ModelRequest{
		Step:     "customAction",
		Messages: []domain.Message{{Role: domain.RoleHuman, Content: prompts.CustomAction(in)}},
	})
	if err != nil {
		return domain.Update{}, fmt.Errorf("quick action %q: %w", action.Title, err)
	}
	return domain.Update{Artifact: s.Artifact.Append(current.WithBody(text))}, nil
}
