package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
)

// Memory implements ports.MemoryStore with one JSON file per item, laid out
// as base/<namespace...>/<key>.json.
type Memory struct {
	BasePath string
}

// NewMemory defaults basePath to ".canvas/memory".
func NewMemory(basePath string) *Memory {
	if basePath == "" {
		basePath = filepath.Join(".canvas", "memory")
	}
	return &Memory{BasePath: basePath}
}

func (m *Memory) path(namespace []string, key string) (string, error) {
	parts := make([]string, 0, len(namespace)+2)
	parts = append(parts, m.BasePath)
	for _, seg := range append(append([]string(nil), namespace...), key) {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, `/\`) {
			return "", fmt.Errorf("invalid memory path segment %q", seg)
		}
	}
	parts = append(parts, namespace...)
	parts = append(parts, key+".json")
	return filepath.Join(parts...), nil
}

// Get returns domain.ErrNotFound when the key is absent.
func (m *Memory) Get(ctx context.Context, namespace []string, key string) (*ports.Item, error) {
	p, err := m.path(namespace, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read memory item: %w", err)
	}
	var item ports.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory item: %w", err)
	}
	return &item, nil
}

// Put replaces the value of key.
func (m *Memory) Put(ctx context.Context, namespace []string, key string, value map[string]any) error {
	p, err := m.path(namespace, key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(ports.Item{
		Namespace: namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory item: %w", err)
	}
	return writeAtomic(p, data)
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Memory) Delete(ctx context.Context, namespace []string, key string) error {
	p, err := m.path(namespace, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete memory item: %w", err)
	}
	return nil
}
