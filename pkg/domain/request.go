package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RequestInfo identifies one inbound turn and carries its run configuration.
// It travels in the context, never in package state.
type RequestInfo struct {
	ThreadID    string
	RequestID   string
	StartedAt   time.Time
	AssistantID string
	UserID      string
	// SystemPrompt is an optional user supplied prefix for generation prompts.
	SystemPrompt string
}

// NewRequestInfo creates request info with a fresh request ID.
func NewRequestInfo(threadID string) RequestInfo {
	return RequestInfo{ThreadID: threadID, RequestID: uuid.NewString(), StartedAt: time.Now()}
}

type requestKey struct{}

// WithRequest returns a context carrying info.
func WithRequest(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestKey{}, info)
}

// RequestFromContext returns the request info of ctx, if any.
func RequestFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestKey{}).(RequestInfo)
	return info, ok
}

// Input is one inbound user turn with its optional action flags.
type Input struct {
	Message             string              `json:"message"`
	Next                Action              `json:"next,omitempty"`
	Theme               *ThemeSelector      `json:"theme,omitempty"`
	CodeAction          *CodeActionSelector `json:"codeAction,omitempty"`
	HighlightedText     *HighlightedText    `json:"highlightedText,omitempty"`
	HighlightedCode     *HighlightedCode    `json:"highlightedCode,omitempty"`
	CustomQuickActionID string              `json:"customQuickActionId,omitempty"`
	WebSearchEnabled    bool                `json:"webSearchEnabled,omitempty"`

	AssistantID  string `json:"assistantId,omitempty"`
	UserID       string `json:"userId,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// Seed copies the turn into a state ready for the graph.
func (in Input) Seed(s *ConversationState) *ConversationState {
	out := s.Clone()
	out.Next = in.Next
	out.Theme = in.Theme
	out.CodeAction = in.CodeAction
	out.HighlightedText = in.HighlightedText
	out.HighlightedCode = in.HighlightedCode
	out.CustomQuickActionID = in.CustomQuickActionID
	out.WebSearchEnabled = in.WebSearchEnabled
	if in.Message != "" {
		out = out.Apply(Update{Messages: []Message{NewMessage(RoleHuman, in.Message)}})
	}
	return out
}
