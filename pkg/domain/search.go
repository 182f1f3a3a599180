package domain

import (
	"fmt"
	"strings"
)

// SearchResult is one ranked snippet returned by a Searcher.
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	PublishedDate string  `json:"publishedDate,omitempty"`
	Author        string  `json:"author,omitempty"`
	Score         float64 `json:"score,omitempty"`
}

// NoWebSearchResults is rendered when no evidence message exists.
const NoWebSearchResults = "No web search results found."

// EvidenceMessage builds the synthetic message inserted after a search.
func EvidenceMessage(results []SearchResult) Message {
	var sb strings.Builder
	sb.WriteString("Here is some additional context found on the web:\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "\n<search-result index=%q title=%q url=%q>\n%s\n</search-result>\n", fmt.Sprint(i+1), r.Title, r.URL, r.Content)
	}
	return NewMessage(RoleAI, sb.String()).Annotated(AnnotationWebSearchResults, results)
}
