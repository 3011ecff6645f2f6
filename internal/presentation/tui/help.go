package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderHelp renders markdown tool help for w. Terminals get the auto
// detected style, everything else the plain "notty" style.
func RenderHelp(w io.Writer, markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}
	style := glamour.WithStandardStyle("notty")
	if IsTerminal(w) {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(Width(w, 80)))
	if err != nil {
		return "", fmt.Errorf("help renderer: %w", err)
	}
	return r.Render(markdown)
}

// PrintHelp renders markdown and writes it to w. A tool without help gets a
// short placeholder.
func PrintHelp(w io.Writer, name, markdown string) error {
	if strings.TrimSpace(markdown) == "" {
		_, err := fmt.Fprintf(w, "%s: no help available\n", name)
		return err
	}
	out, err := RenderHelp(w, markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
