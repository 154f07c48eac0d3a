// Package diag renders compiler diagnostics the way the original C++
// frontend does: "error:"/"warning:" in ANSI red/yellow, followed by a
// "on line L at column C: <message>" location, everything after the prefix
// in the terminal's default color. Color is suppressed automatically when
// the error stream is not a terminal (mirrors the teacher's raw-tty
// detection in cmd/retro/term.go, applied to color instead of termios).
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/db47h/pldc/internal/ast"
)

// Severity distinguishes a fatal error from a non-fatal warning.
type Severity int

const (
	Error Severity = iota
	Warning
)

// Diagnostic is one reported error or warning.
type Diagnostic struct {
	Severity Severity
	Pos      ast.Pos
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("on line %d at column %d: %s", d.Pos.Line, d.Pos.Column, d.Message)
}

// Err wraps a Diagnostic so it satisfies the error interface and can be
// propagated with github.com/pkg/errors like any other failure.
type Err struct{ Diagnostic }

func (e *Err) Error() string { return e.Diagnostic.String() }

// NewError builds a fatal diagnostic error.
func NewError(pos ast.Pos, format string, args ...interface{}) error {
	return &Err{Diagnostic{Severity: Error, Pos: pos, Message: fmt.Sprintf(format, args...)}}
}

// Printer writes colorized diagnostics to an io.Writer (normally os.Stderr),
// auto-detecting whether the stream supports color.
type Printer struct {
	w       io.Writer
	errTag  *color.Color
	warnTag *color.Color
}

// NewPrinter builds a Printer for w. Color is enabled only when w is a
// terminal file descriptor.
func NewPrinter(w io.Writer) *Printer {
	enabled := false
	if f, ok := w.(*os.File); ok {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	errTag := color.New(color.FgRed, color.Bold)
	warnTag := color.New(color.FgYellow, color.Bold)
	errTag.EnableColor()
	warnTag.EnableColor()
	if !enabled {
		errTag.DisableColor()
		warnTag.DisableColor()
	}
	return &Printer{w: w, errTag: errTag, warnTag: warnTag}
}

// Print writes one diagnostic line.
func (p *Printer) Print(d Diagnostic) {
	switch d.Severity {
	case Error:
		p.errTag.Fprint(p.w, "error: ")
	case Warning:
		p.warnTag.Fprint(p.w, "warning: ")
	}
	fmt.Fprintln(p.w, d.String())
}

// PrintError writes err as a fatal diagnostic, unwrapping an *Err if present
// via errors.Cause so the location survives pkg/errors wrapping.
func (p *Printer) PrintError(err error) {
	if e, ok := errors.Cause(err).(*Err); ok {
		p.Print(e.Diagnostic)
		return
	}
	p.errTag.Fprint(p.w, "error: ")
	fmt.Fprintf(p.w, "%v\n", err)
}
