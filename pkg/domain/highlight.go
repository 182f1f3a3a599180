package domain

// HighlightedText is a markdown selection the user asked to rewrite.
type HighlightedText struct {
	FullMarkdown  string `json:"fullMarkdown"`
	MarkdownBlock string `json:"markdownBlock"`
	SelectedText  string `json:"selectedText"`
}

// HighlightedCode is a half-open character range of the current code revision.
type HighlightedCode struct {
	StartCharIndex int `json:"startCharIndex"`
	EndCharIndex   int `json:"endCharIndex"`
}

// Split cuts code around the range. Out-of-range bounds are clamped.
func (h HighlightedCode) Split(code string) (before, selected, after string) {
	start := min(max(h.StartCharIndex, 0), len(code))
	end := min(max(h.EndCharIndex, start), len(code))
	return code[:start], code[start:end], code[end:]
}
