package dsl

import "github.com/aretw0/canvas/pkg/domain"

// Graph is a validated, immutable conversation graph.
type Graph struct {
	Entry domain.Action
	nodes map[domain.Action]Node
	order []domain.Action
}

// Node returns the node with the given id.
func (g *Graph) Node(id domain.Action) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in declaration order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}
