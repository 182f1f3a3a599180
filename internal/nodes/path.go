package nodes

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/prompts"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

// recentForRouting is how many trailing messages the path selection sees.
const recentForRouting = 3

var routeTemperature = 0.0

// GeneratePath decides which action handles the turn and stores it in Next.
//
// Precedence: an analysis already made this cycle continues to the rewrite,
// then an explicit Next from the caller, then the request flags, then a
// structured model decision.
func (n *Nodes) GeneratePath(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	if s.AnalyzedRequirements != nil {
		return next(domain.ActionRewriteArtifact), nil
	}
	if s.Next != "" {
		return domain.Update{}, nil
	}
	switch {
	case s.HighlightedText != nil:
		return next(domain.ActionUpdateHighlightedText), nil
	case s.HighlightedCode != nil:
		return next(domain.ActionUpdateArtifact), nil
	case s.Theme.IsSet():
		return next(domain.ActionRewriteArtifactTheme), nil
	case s.CodeAction.IsSet():
		return next(domain.ActionRewriteCodeArtifactTheme), nil
	case s.CustomQuickActionID != "":
		return next(domain.ActionCustomAction), nil
	case s.WebSearchEnabled:
		return next(domain.ActionWebSearch), nil
	}
	action, err := n.dynamicRoute(ctx, s)
	if err != nil {
		return domain.Update{}, err
	}
	return next(action), nil
}

func next(a domain.Action) domain.Update {
	return domain.Update{Next: &a}
}

type routeChoice struct {
	Route string `json:"route"`
}

func (n *Nodes) dynamicRoute(ctx context.Context, s *domain.ConversationState) (domain.Action, error) {
	human, err := lastHuman(s)
	if err != nil {
		return "", err
	}
	hasArtifact := s.Artifact.Len() > 0
	recent := s.InternalMessages[max(len(s.InternalMessages)-recentForRouting, 0):]
	schema := prompts.RouteSchema(hasArtifact)

	resp, err := n.model.Invoke(ctx, ports.ModelRequest{
		Step: "generatePath",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: prompts.RouteQuery(hasArtifact, domain.FormatMessages(recent), s.AnalyzedRequirements.Context(), prompts.CurrentArtifact(s.ArtifactBody()))},
			human,
		},
		Schema:      &schema,
		Temperature: &routeTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("route query: %w", err)
	}
	var choice routeChoice
	if resp == nil || llm.DecodeArgs(resp.Args, &choice) != nil {
		return "", fmt.Errorf("route query: %w: no route returned", domain.ErrUnknownAction)
	}
	if !slices.Contains(prompts.RouteChoices(hasArtifact), choice.Route) {
		return "", fmt.Errorf("route query: %w: %q", domain.ErrUnknownAction, choice.Route)
	}
	switch choice.Route {
	case prompts.RouteReply:
		return domain.ActionReplyToGeneralInput, nil
	default:
		// Generating and rewriting both start with the requirements analysis.
		return domain.ActionAnalyzeRequirements, nil
	}
}

// Route dispatches on Next. It has no side effects.
func Route(s *domain.ConversationState) (domain.Action, error) {
	if s.Next == "" {
		return "", domain.ErrNextNotSet
	}
	if !s.Next.IsRoutable() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownAction, s.Next)
	}
	return s.Next, nil
}
