package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the canvas banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   ___ __ _ _ ____ ____ _ ___", "#818cf8"},
		{"  / __/ _` | '_ \\ \\ / / _` / __|", "#a78bfa"},
		{" | (_| (_| | | | \\ V / (_| \\__ \\", "#e879f9"},
		{"  \\___\\__,_|_| |_|\\_/ \\__,_|___/", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, termenv.String("  "+version).Faint())
	}
	fmt.Fprintln(w)
}
