package ports

import (
	"context"

	"github.com/aretw0/canvas/pkg/domain"
)

// Engine is the interface used by driving adapters (HTTP, MCP, CLI).
type Engine interface {
	// Invoke runs one user turn against a thread and returns the new state.
	Invoke(ctx context.Context, threadID string, in domain.Input) (*domain.ConversationState, error)

	// Thread returns the stored state of a thread.
	Thread(ctx context.Context, threadID string) (*domain.ConversationState, error)

	// Describe returns a textual rendering of the conversation graph.
	Describe() string
}
