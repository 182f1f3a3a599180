package ports

import (
	"context"
	"time"

	"github.com/aretw0/canvas/pkg/domain"
)

// ThreadStore defines the interface for persisting conversation state.
type ThreadStore interface {
	// Save persists the state for a given thread ID.
	Save(ctx context.Context, threadID string, state *domain.ConversationState) error

	// Load retrieves the state for a given thread ID.
	// Returns domain.ErrThreadNotFound if the thread does not exist.
	Load(ctx context.Context, threadID string) (*domain.ConversationState, error)

	// Delete removes the state for a given thread ID.
	Delete(ctx context.Context, threadID string) error

	// List returns the IDs of all stored threads.
	List(ctx context.Context) ([]string, error)
}

// Item is one value of the memory store.
type Item struct {
	Namespace []string       `json:"namespace"`
	Key       string         `json:"key"`
	Value     map[string]any `json:"value"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// MemoryStore is the namespaced long-term memory shared by threads of an assistant.
type MemoryStore interface {
	// Get returns domain.ErrNotFound when the key is absent.
	Get(ctx context.Context, namespace []string, key string) (*Item, error)
	Put(ctx context.Context, namespace []string, key string, value map[string]any) error
	Delete(ctx context.Context, namespace []string, key string) error
}
