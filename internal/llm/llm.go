// Package llm adapts model providers to ports.ModelInvoker and decorates
// them with cross-cutting concerns (logging, hooks, call logs) through
// Middleware.
package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/aretw0/canvas/pkg/domain"
)

var fence = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*\n?(.*?)\\s*```\\s*$")

// ParseObject decodes a JSON object produced by a model, tolerating a
// surrounding code fence. It returns nil when text is not a complete object.
func ParseObject(text string) map[string]any {
	text = strings.TrimSpace(text)
	if m := fence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if !strings.HasPrefix(text, "{") {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil
	}
	return out
}

// splitPrompt separates system prompts from the conversation turns.
func splitPrompt(msgs []domain.Message) (system string, turns []domain.Message) {
	var sys []string
	for _, m := range msgs {
		if m.Role == domain.RoleSystem {
			sys = append(sys, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(sys, "\n\n"), turns
}

// outputText renders a response for logs.
func outputText(content string, args map[string]any) string {
	if args == nil {
		return content
	}
	data, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return content
	}
	return string(data)
}
