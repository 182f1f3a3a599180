package runtime

import (
	"fmt"
	"slices"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/dsl"
)

// resolveNext determines the next node. A conditional exit takes precedence
// over the unconditional one; its choice must be among the declared branches.
func resolveNext(node dsl.Node, state *domain.ConversationState) (domain.Action, error) {
	if node.Route != nil {
		next, err := node.Route(state)
		if err != nil {
			return "", err
		}
		if !slices.Contains(node.Branches, next) {
			return "", fmt.Errorf("route chose undeclared target %q", next)
		}
		return next, nil
	}
	if node.Next == "" {
		return "", fmt.Errorf("node has no exit")
	}
	return node.Next, nil
}
