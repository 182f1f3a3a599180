package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

// Memory implements ports.MemoryStore in memory. Values are stored as JSON
// so callers observe the same shapes as with the Redis adapter.
type Memory struct {
	mu    sync.RWMutex
	items map[string]storedItem
}

type storedItem struct {
	namespace []string
	key       string
	value     []byte
	updatedAt time.Time
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]storedItem)}
}

func itemKey(namespace []string, key string) string {
	return strings.Join(namespace, "\x1f") + "\x1e" + key
}

// Get returns domain.ErrNotFound when the key is absent.
func (m *Memory) Get(ctx context.Context, namespace []string, key string) (*ports.Item, error) {
	m.mu.RLock()
	it, ok := m.items[itemKey(namespace, key)]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	var value map[string]any
	if err := json.Unmarshal(it.value, &value); err != nil {
		return nil, fmt.Errorf("decode memory item: %w", err)
	}
	return &ports.Item{
		Namespace: append([]string(nil), it.namespace...),
		Key:       it.key,
		Value:     value,
		UpdatedAt: it.updatedAt,
	}, nil
}

// Put stores value, replacing any previous one.
func (m *Memory) Put(ctx context.Context, namespace []string, key string, value map[string]any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode memory item: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[itemKey(namespace, key)] = storedItem{
		namespace: append([]string(nil), namespace...),
		key:       key,
		value:     data,
		updatedAt: time.Now(),
	}
	return nil
}

// Delete removes the key. Deleting a missing key is not an error.
func (m *Memory) Delete(ctx context.Context, namespace []string, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, itemKey(namespace, key))
	return nil
}
