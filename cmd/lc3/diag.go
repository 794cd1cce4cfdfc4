package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const (
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorReset  = "\x1b[0m"
)

// diagnostics prints assembler and runtime messages, coloured when the
// output is a terminal.
type diagnostics struct {
	out   io.Writer
	color bool
}

func newDiagnostics(out *os.File) (diag *diagnostics) {
	diag = &diagnostics{
		out:   out,
		color: term.IsTerminal(int(out.Fd())),
	}
	return
}

func (diag *diagnostics) print(color string, prefix string, err error) {
	// Joined errors are printed one per line.
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, each := range joined.Unwrap() {
			diag.print(color, prefix, each)
		}
		return
	}

	if diag.color {
		fmt.Fprintf(diag.out, "%v%v: %v%v\n", color, prefix, err, colorReset)
	} else {
		fmt.Fprintf(diag.out, "%v: %v\n", prefix, err)
	}
}

// Error prints a failure.
func (diag *diagnostics) Error(err error) {
	diag.print(colorRed, "error", err)
}

// Warning prints a non-fatal diagnostic.
func (diag *diagnostics) Warning(err error) {
	diag.print(colorYellow, "warning", err)
}
