package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct{ text, color string }{
	{` ___ _     _    __`, "#f59e0b"},
	{`| _ \ |___| |_ / _|___ _ _ __ _ ___`, "#f97316"},
	{`|  _/ / _ \  _|  _/ _ \ '_/ _' / -_)`, "#ef4444"},
	{`|_| |_\___/\__|_| \___/_| \__, \___|`, "#e11d48"},
	{`                          |___/`, "#be123c"},
}

// PrintBanner writes the Plotforge banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  interactive fiction, forged per reader  "+version).Faint())
	fmt.Fprintln(w)
}

// Highlight colors a choice label for terminal output.
func Highlight(w io.Writer, s string) string {
	out := termenv.NewOutput(w)
	return out.String(s).Foreground(out.Color("#f59e0b")).Bold().String()
}
