package dsl

import (
	"context"

	"github.com/aretw0/canvas/pkg/domain"
)

// NodeFunc does the work of a node and returns the partial state to merge.
type NodeFunc func(ctx context.Context, s *domain.ConversationState) (domain.Update, error)

// RouteFunc picks the next node of a conditional edge from the merged state.
type RouteFunc func(s *domain.ConversationState) (domain.Action, error)

// Node is a frozen graph node.
type Node struct {
	ID   domain.Action
	Fn   NodeFunc
	Next domain.Action
	// Route and Branches describe a conditional exit; Next is empty then.
	Route    RouteFunc
	Branches []domain.Action
}

// Targets returns every node this node may lead to.
func (n Node) Targets() []domain.Action {
	if n.Route != nil {
		return n.Branches
	}
	if n.Next != "" {
		return []domain.Action{n.Next}
	}
	return nil
}

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node Node
}

// Go sets an unconditional exit to the target node.
func (n *NodeBuilder) Go(target domain.Action) *NodeBuilder {
	n.node.Next = target
	n.node.Route = nil
	n.node.Branches = nil
	return n
}

// Branch sets a conditional exit. The route must return one of targets.
func (n *NodeBuilder) Branch(route RouteFunc, targets ...domain.Action) *NodeBuilder {
	n.node.Next = ""
	n.node.Route = route
	n.node.Branches = targets
	return n
}

// Terminal marks the node as the end of the flow.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	return n.Go(End)
}

// Build returns the underlying Node.
func (n *NodeBuilder) Build() Node {
	return n.node
}
