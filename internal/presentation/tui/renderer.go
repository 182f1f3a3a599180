// Package tui renders artifacts and conversation output for terminals.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// defaultWidth applies when the output is not a terminal.
const defaultWidth = 100

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or defaultWidth.
func Width(f *os.File) int {
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

// NewRenderer returns a function that renders markdown using glamour.
// Plain mode returns the markdown untouched, for pipes and JSON output.
func NewRenderer(width int, plain bool) func(string) (string, error) {
	if plain {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // light/dark detection
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}

// ArtifactMarkdown turns the current revision into markdown: text revisions
// as is, code revisions as a fenced block under their title.
func ArtifactMarkdown(a *domain.Artifact) string {
	current := a.Current()
	if current == nil {
		return "_No artifact yet._"
	}

	header := current.Header()
	switch c := current.(type) {
	case domain.MarkdownContent:
		return c.FullMarkdown
	case domain.CodeContent:
		var sb strings.Builder
		if header.Title != "" {
			fmt.Fprintf(&sb, "## %s\n\n", header.Title)
		}
		fence := "```"
		// Widen the fence when the code itself contains one.
		for strings.Contains(c.Code, fence) {
			fence += "`"
		}
		lang := string(c.Language)
		if c.Language == domain.LangOther {
			lang = ""
		}
		fmt.Fprintf(&sb, "%s%s\n%s\n%s\n", fence, lang, strings.TrimRight(c.Code, "\n"), fence)
		return sb.String()
	}
	return current.Body()
}

// RevisionLine summarises the artifact version, e.g. "Pricing (v2/3, code)".
func RevisionLine(a *domain.Artifact) string {
	current := a.Current()
	if current == nil {
		return ""
	}
	h := current.Header()
	title := h.Title
	if title == "" {
		title = "Untitled"
	}
	return fmt.Sprintf("%s (v%d/%d, %s)", title, h.Index, a.Len(), current.Kind())
}
