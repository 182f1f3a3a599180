package nodes

import (
	"context"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

var reflectTemperature = 0.0

// Reflect learns style rules and user facts from the conversation and
// stores them for the assistant. User curated reflections come first and
// duplicates are dropped. Nothing here fails the turn: errors are logged.
func (n *Nodes) Reflect(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	assistantID := requestInfo(ctx).AssistantID
	log := n.logger.With("assistant_id", assistantID)

	reflections, err := n.memory.Formatted(ctx, assistantID, false)
	if err != nil {
		log.WarnContext(ctx, "reflection skipped", "err", err)
		return domain.Update{}, nil
	}
	resp, err := n.model.Invoke(ctx, ports.ModelRequest{
		Step: "reflect",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: prompts.ReflectSystem(s.ArtifactBody(), reflections)},
			{Role: domain.RoleHuman, Content: prompts.ReflectUser(domain.FormatMessages(s.Messages))},
		},
		Schema:      &prompts.ReflectionsSchema,
		Temperature: &reflectTemperature,
	})
	if err != nil {
		log.WarnContext(ctx, "reflection failed", "err", err)
		return domain.Update{}, nil
	}
	var learnt domain.Reflections
	if resp == nil || llm.DecodeArgs(resp.Args, &learnt) != nil {
		log.WarnContext(ctx, "reflection returned no payload")
		return domain.Update{}, nil
	}

	custom, err := n.memory.CustomReflections(ctx, assistantID)
	if err != nil {
		log.WarnContext(ctx, "custom reflections unavailable", "err", err)
	}
	merged := custom.Merge(&learnt)
	if err := n.memory.SaveReflections(ctx, assistantID, merged); err != nil {
		log.WarnContext(ctx, "saving reflections failed", "err", err)
		return domain.Update{}, nil
	}
	log.DebugContext(ctx, "reflections saved", "style_rules", len(merged.StyleRules), "facts", len(merged.Content))
	return domain.Update{}, nil
}
