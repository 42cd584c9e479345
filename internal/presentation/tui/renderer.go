package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const defaultWidth = 80

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of w, or a default when w is not a TTY.
func Width(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultWidth
}

// NewRenderer returns a markdown renderer for scene content. When w is not
// a terminal the content passes through untouched.
func NewRenderer(w io.Writer) func(string) (string, error) {
	if !IsTerminal(w) {
		return func(s string) (string, error) { return s, nil }
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(Width(w)-4),
	)
	if err != nil {
		return func(s string) (string, error) { return s, nil }
	}
	return r.Render
}
