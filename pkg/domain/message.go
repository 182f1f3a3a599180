package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleSystem Role = "system"
)

// Reserved annotation keys. Nodes locate special messages by these keys,
// never by position.
const (
	// AnnotationWebSearchResults marks the evidence message produced by web search.
	// Value: []SearchResult
	AnnotationWebSearchResults = "webSearchResults"

	// AnnotationSummary marks the message that replaced the internal history.
	AnnotationSummary = "summaryMessage"

	// AnnotationThinking marks a message holding the reasoning of a thinking model.
	AnnotationThinking = "thinkingMessage"

	// AnnotationContextDocuments marks the message carrying user supplied documents.
	AnnotationContextDocuments = "contextDocuments"
)

// Message is one turn of the conversation.
type Message struct {
	ID          string         `json:"id"`
	Role        Role           `json:"role"`
	Content     string         `json:"content"`
	Annotations map[string]any `json:"annotations,omitempty"`
}

// NewMessage creates a message with a fresh ID.
func NewMessage(role Role, content string) Message {
	return Message{ID: uuid.NewString(), Role: role, Content: content}
}

// Annotated returns a copy of m with the given annotation set.
func (m Message) Annotated(key string, value any) Message {
	out := m
	out.Annotations = make(map[string]any, len(m.Annotations)+1)
	for k, v := range m.Annotations {
		out.Annotations[k] = v
	}
	out.Annotations[key] = value
	return out
}

// HasAnnotation reports whether the message carries the given key.
func (m Message) HasAnnotation(key string) bool {
	_, ok := m.Annotations[key]
	return ok
}

// FormatMessages renders messages as tagged blocks, one per turn:
//
//	<human>
//	hello
//	</human>
func FormatMessages(msgs []Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, "<"+string(m.Role)+">\n"+m.Content+"\n</"+string(m.Role)+">")
	}
	return strings.Join(parts, "\n")
}
