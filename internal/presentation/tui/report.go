package tui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/muesli/termenv"

	"github.com/aretw0/zres/pkg/domain"
)

const (
	colorOK   = "#22c55e"
	colorWarn = "#eab308"
	colorFail = "#ef4444"
)

// Printer writes human readable build output.
type Printer struct {
	w   io.Writer
	out *termenv.Output
}

// NewPrinter creates a printer on w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, out: NewOutput(w)}
}

// Report prints the summary line, the warnings and, on failure, the error.
func (p *Printer) Report(r *domain.Report) {
	if r == nil {
		return
	}
	for _, w := range r.Warnings {
		p.warning(w)
	}

	summary := fmt.Sprintf("%d %s, %d %s", r.Passes, plural(r.Passes, "pass", "passes"),
		r.Invocations, plural(r.Invocations, "invocation", "invocations"))
	if r.FinalRuns > 0 {
		summary += fmt.Sprintf(", %d final", r.FinalRuns)
	}
	if len(r.Warnings) > 0 {
		summary += fmt.Sprintf(", %d %s", len(r.Warnings), plural(len(r.Warnings), "warning", "warnings"))
	}
	summary += " in " + r.Duration.Round(time.Millisecond).String()

	if r.Failed() {
		fmt.Fprintf(p.w, "%s %s\n", p.out.String("build failed:").Foreground(p.out.Color(colorFail)).Bold(), summary)
		if r.Error != "" {
			fmt.Fprintln(p.w, indent(r.Error))
		}
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.out.String("build done:").Foreground(p.out.Color(colorOK)).Bold(), summary)
}

func (p *Printer) warning(w domain.Warning) {
	label := p.out.String("warning").Foreground(p.out.Color(colorWarn))
	var where []string
	if w.Tool != "" {
		where = append(where, "["+w.Tool+"]")
	}
	if w.Request != "" {
		where = append(where, w.Request)
	}
	if len(where) > 0 {
		fmt.Fprintf(p.w, "%s %s: %s\n", label, strings.Join(where, " "), w.Message)
		return
	}
	fmt.Fprintf(p.w, "%s: %s\n", label, w.Message)
}

// Tools prints a table of the available tools in search order.
func (p *Printer) Tools(tools []domain.ToolInfo) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTIER\tKIND\tPATH")
	for _, t := range tools {
		path := t.Path
		if path == "" {
			path = "-"
		}
		name := t.Name
		if t.Shadowed {
			name += " (shadowed)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, t.Tier, t.Kind, path)
	}
	_ = tw.Flush()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n  ")
}
