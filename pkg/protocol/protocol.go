// Package protocol parses and writes the stdout directives tools use to talk
// back to the engine.
//
// A directive is a whole stdout line starting with "zres::":
//
//	zres::delegate
//	zres::warning=<text>
//	zres::on-final=<args>
//
// Every other line is ordinary output. Unknown directives are ignored.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prefix starts every directive line.
const Prefix = "zres::"

// Kind identifies a directive.
type Kind int

const (
	KindDelegate Kind = iota + 1
	KindWarning
	KindOnFinal
)

func (k Kind) String() string {
	switch k {
	case KindDelegate:
		return "delegate"
	case KindWarning:
		return "warning"
	case KindOnFinal:
		return "on-final"
	default:
		return "unknown"
	}
}

// Directive is one parsed directive line.
type Directive struct {
	Kind  Kind
	Value string
}

// ParseLine parses a single stdout line. ok is false for ordinary output and
// for malformed or unknown directives.
func ParseLine(line string) (Directive, bool) {
	line = strings.TrimRight(line, "\r\n")
	rest, found := strings.CutPrefix(line, Prefix)
	if !found {
		return Directive{}, false
	}
	name, value, hasValue := strings.Cut(rest, "=")
	switch name {
	case "delegate":
		if hasValue {
			return Directive{}, false
		}
		return Directive{Kind: KindDelegate}, true
	case "warning":
		if !hasValue {
			return Directive{}, false
		}
		return Directive{Kind: KindWarning, Value: value}, true
	case "on-final":
		if !hasValue {
			return Directive{}, false
		}
		return Directive{Kind: KindOnFinal, Value: value}, true
	}
	return Directive{}, false
}

// MaxLine bounds the length of a line Scan keeps. Longer lines are ordinary
// output and are dropped.
const MaxLine = 4 * 1024 * 1024

// Scan reads r to the end and returns its directives in order, plus the
// ordinary output lines. Only read errors fail.
func Scan(r io.Reader) (directives []Directive, other []string, err error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var (
		line      []byte
		oversized bool
	)
	for {
		chunk, rerr := br.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > MaxLine {
				oversized = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		if !oversized && len(line) > 0 {
			text := strings.TrimRight(string(line), "\r\n")
			if d, ok := ParseLine(text); ok {
				directives = append(directives, d)
			} else {
				other = append(other, text)
			}
		}
		line = line[:0]
		oversized = false

		switch {
		case rerr == nil:
		case errors.Is(rerr, io.EOF):
			return directives, other, nil
		default:
			return directives, other, rerr
		}
	}
}

// Delegate tells the engine to try the next tool tier.
func Delegate(w io.Writer) error {
	_, err := fmt.Fprintln(w, Prefix+"delegate")
	return err
}

// Warn reports a non-fatal warning. Newlines in msg are folded into spaces
// so the directive stays on one line.
func Warn(w io.Writer, msg string) error {
	_, err := fmt.Fprintf(w, "%swarning=%s\n", Prefix, oneLine(msg))
	return err
}

// OnFinal asks to be called again in the final pass with args.
func OnFinal(w io.Writer, args string) error {
	_, err := fmt.Fprintf(w, "%son-final=%s\n", Prefix, oneLine(args))
	return err
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\r", "")), " ")
}
