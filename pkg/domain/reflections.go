package domain

import (
	"slices"
	"strings"
)

// Memory namespaces and keys.
const (
	MemoriesNamespace        = "memories"
	ReflectionKey            = "reflection"
	CustomReflectionKey      = "custom-reflection"
	QuickActionsNamespace    = "custom_actions"
	QuickActionsKey          = "actions"
	ContextDocumentNamespace = "context_documents"
	ContextDocumentKey       = "documents"
)

// NoReflections is rendered when nothing is stored for the assistant.
const NoReflections = "No reflections found."

// Reflections are the style rules and user facts learnt across threads.
type Reflections struct {
	StyleRules []string `json:"styleRules"`
	Content    []string `json:"content"`
}

// IsEmpty reports whether nothing has been learnt.
func (r *Reflections) IsEmpty() bool {
	return r == nil || (len(r.StyleRules) == 0 && len(r.Content) == 0)
}

// Merge returns the set union of r and other, keeping first-seen order.
func (r *Reflections) Merge(other *Reflections) *Reflections {
	out := &Reflections{StyleRules: []string{}, Content: []string{}}
	for _, src := range []*Reflections{r, other} {
		if src == nil {
			continue
		}
		out.StyleRules = union(out.StyleRules, src.StyleRules)
		out.Content = union(out.Content, src.Content)
	}
	return out
}

func union(dst, src []string) []string {
	for _, s := range src {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(dst, s) {
			dst = append(dst, s)
		}
	}
	return dst
}

// Format renders reflections as prompt text. With onlyContent the style
// rules are left out.
func (r *Reflections) Format(onlyContent bool) string {
	if r.IsEmpty() {
		return NoReflections
	}
	var parts []string
	if !onlyContent && len(r.StyleRules) > 0 {
		parts = append(parts, "The following is a list of style guidelines previously generated by you:\n<style-guidelines>\n"+
			bullets(r.StyleRules)+"\n</style-guidelines>")
	}
	if len(r.Content) > 0 {
		parts = append(parts, "The following is a list of memories/facts you previously generated about the user:\n<user-facts>\n"+
			bullets(r.Content)+"\n</user-facts>")
	}
	if len(parts) == 0 {
		return NoReflections
	}
	return strings.Join(parts, "\n\n")
}

// QuickAction is a user defined prompt applied to the current artifact.
type QuickAction struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Prompt               string `json:"prompt"`
	IncludeReflections   bool   `json:"includeReflections"`
	IncludePrefix        bool   `json:"includePrefix"`
	IncludeRecentHistory bool   `json:"includeRecentHistory"`
}

// ContextDocument is a user supplied document attached to the assistant.
type ContextDocument struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}
