package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Memory implements ports.MemoryStore using Redis. Each item is one JSON
// string under prefix + namespace + key.
type Memory struct {
	client *backend.Client
	prefix string
}

// NewMemory creates a memory store sharing client with the thread store.
func NewMemory(client *backend.Client, prefix string) *Memory {
	if prefix == "" {
		prefix = DefaultPrefix + "memory:"
	}
	return &Memory{client: client, prefix: prefix}
}

func (m *Memory) key(namespace []string, key string) string {
	return m.prefix + strings.Join(namespace, ":") + ":" + key
}

// Get returns domain.ErrNotFound when the key is absent.
func (m *Memory) Get(ctx context.Context, namespace []string, key string) (*ports.Item, error) {
	val, err := m.client.Get(ctx, m.key(namespace, key)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory item: %w", err)
	}
	var item ports.Item
	if err := json.Unmarshal(val, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory item: %w", err)
	}
	return &item, nil
}

// Put replaces the value of key.
func (m *Memory) Put(ctx context.Context, namespace []string, key string, value map[string]any) error {
	data, err := json.Marshal(ports.Item{
		Namespace: namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal memory item: %w", err)
	}
	if err := m.client.Set(ctx, m.key(namespace, key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to put memory item: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Memory) Delete(ctx context.Context, namespace []string, key string) error {
	return m.client.Del(ctx, m.key(namespace, key)).Err()
}
