package llm

import (
	"regexp"
	"strings"
)

var thinkingPrefixes = []string{"deepseek-r1", "deepseek-reasoner", "qwq", "o1", "o3", "o4-mini"}

// IsThinkingModel reports whether a model emits its reasoning inline
// between <think> tags. name is "provider:model[:tag]"; only the model
// segment is matched.
func IsThinkingModel(name string) bool {
	model := strings.ToLower(name)
	if _, rest, ok := strings.Cut(model, ":"); ok {
		model = rest
	}
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	if strings.Contains(model, "-thinking") {
		return true
	}
	for _, p := range thinkingPrefixes {
		if model == p || strings.HasPrefix(model, p+"-") || strings.HasPrefix(model, p+":") {
			return true
		}
	}
	return false
}

var thinkBlock = regexp.MustCompile(`(?s)<think>(.*?)</think>`)

// SplitThinking removes the first <think> block from content.
func SplitThinking(content string) (thinking, rest string) {
	m := thinkBlock.FindStringSubmatchIndex(content)
	if m == nil {
		return "", content
	}
	thinking = strings.TrimSpace(content[m[2]:m[3]])
	rest = strings.TrimSpace(content[:m[0]] + content[m[1]:])
	return thinking, rest
}
