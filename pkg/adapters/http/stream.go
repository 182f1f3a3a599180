package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/canvas/pkg/domain"
)

// Event names pushed over SSE.
const (
	EventDiff      = "diff"
	EventNode      = "node"
	EventIteration = "iteration"
)

// Event is one server-sent message for a thread.
type Event struct {
	Name string
	Data []byte
}

// StreamManager handles active SSE subscriptions, keyed by thread id.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener for threadID. The returned func
// unregisters it and closes the channel.
func (sm *StreamManager) Subscribe(threadID string) (<-chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, 16)
	if _, ok := sm.subscribers[threadID]; !ok {
		sm.subscribers[threadID] = make(map[chan Event]struct{})
	}
	sm.subscribers[threadID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[threadID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, threadID)
				}
			}
		})
	}
}

// Subscribers returns how many listeners threadID has.
func (sm *StreamManager) Subscribers(threadID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[threadID])
}

// Broadcast JSON-encodes payload and sends it to every listener of threadID.
// Slow clients lose messages instead of blocking the engine.
func (sm *StreamManager) Broadcast(threadID, name string, payload any) {
	if threadID == "" {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		sm.logger.Error("SSE: encode failed", "thread_id", threadID, "event", name, "error", err)
		return
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs, ok := sm.subscribers[threadID]
	if !ok {
		return
	}
	sm.logger.Debug("StreamManager: Broadcasting", "thread_id", threadID, "event", name, "subscribers", len(subs), "payload_size", len(data))
	for ch := range subs {
		select {
		case ch <- Event{Name: name, Data: data}:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "thread_id", threadID, "event", name)
		}
	}
}

// Hooks forwards node transitions and refinement rounds to thread listeners.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	node := func(_ context.Context, e *domain.NodeEvent) {
		sm.Broadcast(e.ThreadID, EventNode, e)
	}
	return domain.LifecycleHooks{
		OnNodeEnter: node,
		OnNodeLeave: node,
		OnIteration: func(_ context.Context, e *domain.IterationEvent) {
			sm.Broadcast(e.ThreadID, EventIteration, e)
		},
	}
}
