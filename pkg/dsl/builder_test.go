package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/canvas/pkg/domain"
)

func noop(context.Context, *domain.ConversationState) (domain.Update, error) {
	return domain.Update{}, nil
}

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New()

	b.Add("start", noop).Go("decide")
	b.Add("decide", noop).Branch(func(*domain.ConversationState) (domain.Action, error) {
		return "left", nil
	}, "left", "right")
	b.Add("left", noop).Terminal()
	b.Add("right", noop).Go(End)

	g, err := b.Start("start").Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if g.Entry != "start" {
		t.Errorf("Expected entry 'start', got '%s'", g.Entry)
	}
	nodes := g.Nodes()
	if len(nodes) != 4 {
		t.Fatalf("Expected 4 nodes, got %d", len(nodes))
	}
	if nodes[0].ID != "start" || nodes[3].ID != "right" {
		t.Errorf("Nodes not in declaration order: %v", nodes)
	}

	decide, ok := g.Node("decide")
	if !ok {
		t.Fatal("node 'decide' missing")
	}
	if got := decide.Targets(); len(got) != 2 || got[0] != "left" || got[1] != "right" {
		t.Errorf("Unexpected targets %v", got)
	}
	left, _ := g.Node("left")
	if left.Next != End {
		t.Errorf("Terminal() should point at End, got %q", left.Next)
	}
}

func TestBuilder_Validation(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Builder
	}{
		{"no entry", func() *Builder {
			b := New()
			b.Add("a", noop).Terminal()
			return b
		}},
		{"unknown entry", func() *Builder {
			b := New()
			b.Add("a", noop).Terminal()
			return b.Start("b")
		}},
		{"no exit", func() *Builder {
			b := New()
			b.Add("a", noop)
			return b.Start("a")
		}},
		{"dangling target", func() *Builder {
			b := New()
			b.Add("a", noop).Go("ghost")
			return b.Start("a")
		}},
		{"nil func", func() *Builder {
			b := New()
			b.Add("a", nil).Terminal()
			return b.Start("a")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.build().Build(); err == nil {
				t.Error("expected build error")
			}
		})
	}
}

func TestBuilder_AddTwiceReplacesFunc(t *testing.T) {
	b := New()
	b.Add("a", nil).Terminal()
	b.Add("a", noop)

	g, err := b.Start("a").Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if len(g.Nodes()) != 1 {
		t.Errorf("expected a single node, got %d", len(g.Nodes()))
	}
}
