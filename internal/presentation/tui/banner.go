package tui

import (
	"fmt"
	"io"
	"strings"
)

// PrintBanner writes the zres banner and version, used when watch mode starts.
func PrintBanner(w io.Writer, version string) {
	out := NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"  _____ __  ___  ___", "#34d399"},
		{" |_  / '__/ _ \\/ __|", "#2dd4bf"},
		{"  / /| | |  __/\\__ \\", "#22d3ee"},
		{" /___|_|  \\___||___/", "#38bdf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  "+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
