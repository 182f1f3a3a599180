package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/canvas/pkg/domain"
)

// End is the sink every terminal exit points at.
const End domain.Action = "__end__"

// Builder manages the graph construction.
type Builder struct {
	nodes map[domain.Action]*NodeBuilder
	order []domain.Action
	entry domain.Action
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[domain.Action]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder with fn replaced.
func (b *Builder) Add(id domain.Action, fn NodeFunc) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		nb.node.Fn = fn
		return nb
	}
	nb := &NodeBuilder{node: Node{ID: id, Fn: fn}}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Start sets the entry node.
func (b *Builder) Start(id domain.Action) *Builder {
	b.entry = id
	return b
}

// Build validates and freezes the graph.
func (b *Builder) Build() (*Graph, error) {
	if b.entry == "" {
		return nil, errors.New("graph has no entry node")
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, fmt.Errorf("entry node %q not defined", b.entry)
	}

	g := &Graph{Entry: b.entry, nodes: make(map[domain.Action]Node, len(b.nodes))}
	for _, id := range b.order {
		n := b.nodes[id].node
		if n.Fn == nil {
			return nil, fmt.Errorf("node %q has no function", id)
		}
		targets := n.Targets()
		if len(targets) == 0 {
			return nil, fmt.Errorf("node %q has no exit", id)
		}
		for _, t := range targets {
			if t == End {
				continue
			}
			if _, ok := b.nodes[t]; !ok {
				return nil, fmt.Errorf("node %q targets undefined node %q", id, t)
			}
		}
		g.nodes[id] = n
		g.order = append(g.order, id)
	}
	return g, nil
}
