package nodes

import (
	"context"
	"fmt"

	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

// followupMaxTokens keeps the followup to a couple of sentences.
const followupMaxTokens = 250

// ReplyToGeneralInput answers the turn in chat without touching the artifact.
func (n *Nodes) ReplyToGeneralInput(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	reflections, err := n.reflections(ctx, false)
	if err != nil {
		return domain.Update{}, err
	}
	msgs := []domain.Message{{Role: domain.RoleSystem, Content: prompts.ReplyGeneral(reflections, prompts.CurrentArtifact(s.ArtifactBody()))}}
	msgs = append(msgs, n.contextMessages(ctx)...)
	msgs = append(msgs, s.InternalMessages...)

	text, err := n.invokeText(ctx, ports.ModelRequest{Step: "replyToGeneralInput", Messages: msgs})
	if err != nil {
		return domain.Update{}, fmt.Errorf("reply: %w", err)
	}
	return domain.Update{Messages: []domain.Message{domain.NewMessage(domain.RoleAI, text)}}, nil
}

// GenerateFollowup posts a short message after an artifact change.
func (n *Nodes) GenerateFollowup(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	reflections, err := n.reflections(ctx, true)
	if err != nil {
		return domain.Update{}, err
	}
	prompt := prompts.Followup(s.ArtifactBody(), reflections, domain.FormatMessages(s.InternalMessages))

	text, err := n.invokeText(ctx, ports.ModelRequest{
		Step:      "generateFollowup",
		Messages:  []domain.Message{{Role: domain.RoleHuman, Content: prompt}},
		MaxTokens: followupMaxTokens,
	})
	if err != nil {
		return domain.Update{}, fmt.Errorf("followup: %w", err)
	}
	return domain.Update{Messages: []domain.Message{domain.NewMessage(domain.RoleAI, text)}}, nil
}
