package nodes

import (
	"context"

	"github.com/aretw0/canvas/pkg/domain"
)

// WebSearch gathers evidence for the latest request. No results is not an
// error: the artifact is rewritten without them.
func (n *Nodes) WebSearch(ctx context.Context, s *domain.ConversationState) (domain.Update, error) {
	results := n.search.Run(ctx, s.InternalMessages)
	return domain.Update{WebSearchResults: results}, nil
}

// RoutePostWebSearch turns the search off for the rest of the turn and, when
// there is evidence, adds it to the history for the rewrite to cite.
func (n *Nodes) RoutePostWebSearch(_ context.Context, s *domain.ConversationState) (domain.Update, error) {
	u := domain.Update{WebSearchEnabled: domain.Ptr(false)}
	if len(s.WebSearchResults) > 0 {
		u.Messages = []domain.Message{domain.EvidenceMessage(s.WebSearchResults)}
	}
	return u, nil
}
