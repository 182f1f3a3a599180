// Package memory reads and writes the long-term memory of an assistant:
// reflections, quick actions and context documents.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/canvas/internal/logging"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mitchellh/mapstructure"
)

// DefaultCacheTTL bounds how stale a cached reflection can be.
const DefaultCacheTTL = time.Minute

// Service wraps a MemoryStore with typed accessors. Reflections are cached
// per assistant; writes go through the cache.
type Service struct {
	store  ports.MemoryStore
	cache  *expirable.LRU[string, *domain.Reflections]
	logger *slog.Logger

	cacheSize int
	cacheTTL  time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCache replaces the reflection cache size and TTL. A size of 0 disables caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		s.cacheSize, s.cacheTTL = size, ttl
	}
}

// NewService creates a Service over store.
func NewService(store ports.MemoryStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		logger:    logging.NewNop(),
		cacheSize: 256,
		cacheTTL:  DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	// The expirable LRU runs a purge goroutine for the life of the process.
	if s.cacheSize > 0 {
		s.cache = expirable.NewLRU[string, *domain.Reflections](s.cacheSize, nil, s.cacheTTL)
	}
	return s
}

func memoriesNamespace(assistantID string) []string {
	return []string{domain.MemoriesNamespace, assistantID}
}

// Reflections returns the stored reflections of an assistant, or nil when
// none were saved yet.
func (s *Service) Reflections(ctx context.Context, assistantID string) (*domain.Reflections, error) {
	if assistantID == "" {
		return nil, domain.ErrMissingAssistantID
	}
	if s.cache != nil {
		if r, ok := s.cache.Get(assistantID); ok {
			return r, nil
		}
	}
	r, err := s.getReflections(ctx, assistantID, domain.ReflectionKey)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(assistantID, r)
	}
	return r, nil
}

// CustomReflections returns the user curated reflections, or nil.
func (s *Service) CustomReflections(ctx context.Context, assistantID string) (*domain.Reflections, error) {
	if assistantID == "" {
		return nil, domain.ErrMissingAssistantID
	}
	return s.getReflections(ctx, assistantID, domain.CustomReflectionKey)
}

func (s *Service) getReflections(ctx context.Context, assistantID, key string) (*domain.Reflections, error) {
	item, err := s.store.Get(ctx, memoriesNamespace(assistantID), key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	var r domain.Reflections
	if err := decode(item.Value, &r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &r, nil
}

// Formatted renders the reflections of an assistant as prompt text.
// A store failure is logged and rendered as if nothing was stored.
func (s *Service) Formatted(ctx context.Context, assistantID string, onlyContent bool) (string, error) {
	r, err := s.Reflections(ctx, assistantID)
	if errors.Is(err, domain.ErrMissingAssistantID) {
		return "", err
	}
	if err != nil {
		s.logger.WarnContext(ctx, "reflections unavailable", "assistant_id", assistantID, "err", err)
		return domain.NoReflections, nil
	}
	return r.Format(onlyContent), nil
}

// SaveReflections persists the reflections of an assistant.
func (s *Service) SaveReflections(ctx context.Context, assistantID string, r *domain.Reflections) error {
	if assistantID == "" {
		return domain.ErrMissingAssistantID
	}
	value, err := encode(r)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, memoriesNamespace(assistantID), domain.ReflectionKey, value); err != nil {
		return fmt.Errorf("save reflections: %w", err)
	}
	if s.cache != nil {
		s.cache.Add(assistantID, r)
	}
	return nil
}

// SaveCustomReflections persists the user curated reflections.
func (s *Service) SaveCustomReflections(ctx context.Context, assistantID string, r *domain.Reflections) error {
	if assistantID == "" {
		return domain.ErrMissingAssistantID
	}
	value, err := encode(r)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, memoriesNamespace(assistantID), domain.CustomReflectionKey, value)
}

type quickActions struct {
	Actions []domain.QuickAction `json:"actions"`
}

// QuickAction looks up a user defined quick action by id.
func (s *Service) QuickAction(ctx context.Context, userID, actionID string) (*domain.QuickAction, error) {
	if userID == "" {
		return nil, domain.ErrMissingUserID
	}
	item, err := s.store.Get(ctx, []string{domain.QuickActionsNamespace, userID}, domain.QuickActionsKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuickActionNotFound, actionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load quick actions: %w", err)
	}
	var qa quickActions
	if err := decode(item.Value, &qa); err != nil {
		return nil, fmt.Errorf("decode quick actions: %w", err)
	}
	for _, a := range qa.Actions {
		if a.ID == actionID {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrQuickActionNotFound, actionID)
}

// SaveQuickActions replaces the quick actions of a user.
func (s *Service) SaveQuickActions(ctx context.Context, userID string, actions []domain.QuickAction) error {
	if userID == "" {
		return domain.ErrMissingUserID
	}
	value, err := encode(quickActions{Actions: actions})
	if err != nil {
		return err
	}
	return s.store.Put(ctx, []string{domain.QuickActionsNamespace, userID}, domain.QuickActionsKey, value)
}

type contextDocuments struct {
	Documents []domain.ContextDocument `json:"documents"`
}

// ContextDocuments returns the documents attached to an assistant. Missing
// documents and store failures both yield an empty list; failures are logged.
func (s *Service) ContextDocuments(ctx context.Context, assistantID string) []domain.ContextDocument {
	if assistantID == "" {
		return nil
	}
	item, err := s.store.Get(ctx, []string{domain.ContextDocumentNamespace, assistantID}, domain.ContextDocumentKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "context documents unavailable", "assistant_id", assistantID, "err", err)
		}
		return nil
	}
	var docs contextDocuments
	if err := decode(item.Value, &docs); err != nil {
		s.logger.WarnContext(ctx, "context documents malformed", "assistant_id", assistantID, "err", err)
		return nil
	}
	return docs.Documents
}

// SaveContextDocuments replaces the documents attached to an assistant.
func (s *Service) SaveContextDocuments(ctx context.Context, assistantID string, docs []domain.ContextDocument) error {
	if assistantID == "" {
		return domain.ErrMissingAssistantID
	}
	value, err := encode(contextDocuments{Documents: docs})
	if err != nil {
		return err
	}
	return s.store.Put(ctx, []string{domain.ContextDocumentNamespace, assistantID}, domain.ContextDocumentKey, value)
}

func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

func encode(in any) (map[string]any, error) {
	out := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &out})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("encode memory value: %w", err)
	}
	return out, nil
}
