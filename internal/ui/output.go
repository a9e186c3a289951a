// Package ui provides the diagnostic output surface for the plugin. The
// single machine-parsable summary line is printed by the caller; everything
// here is supporting diagnostics, gated by verbosity where the contract
// requires it.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/kballard/go-shellquote"
)

// UI writes diagnostic output. Echoed child output goes to stdout so it
// appears above the summary line; warnings and errors go to stderr so they
// never disturb the parsable stdout stream.
type UI struct {
	out       io.Writer
	errOut    io.Writer
	verbosity int
	// Color functions
	colorWarning *color.Color
	colorError   *color.Color
}

// New creates a UI writing to the process streams.
func New(verbosity int) *UI {
	return &UI{
		out:          os.Stdout,
		errOut:       os.Stderr,
		verbosity:    verbosity,
		colorWarning: color.New(color.FgYellow),
		colorError:   color.New(color.FgRed),
	}
}

// NewWithWriters creates a UI with custom writers (useful for testing).
func NewWithWriters(out, errOut io.Writer, verbosity int) *UI {
	u := New(verbosity)
	u.out = out
	u.errOut = errOut
	return u
}

// Verbose returns true when at least one -v was given.
func (u *UI) Verbose() bool {
	return u.verbosity > 0
}

// Echo prints a captured child output line, only in verbose mode.
func (u *UI) Echo(line string) {
	if u.verbosity > 0 {
		fmt.Fprintln(u.out, line)
	}
}

// EchoAll prints every line of a captured stream, only in verbose mode.
func (u *UI) EchoAll(lines []string) {
	if u.verbosity == 0 {
		return
	}
	for _, line := range lines {
		fmt.Fprintln(u.out, line)
	}
}

// Command echoes the command about to run, only at -vv and above. The line
// is shell-quoted so it can be pasted back into a shell for debugging.
func (u *UI) Command(name string, args []string) {
	if u.verbosity < 2 {
		return
	}
	words := append([]string{name}, args...)
	fmt.Fprintf(u.out, "CMD: %s\n", shellquote.Join(words...))
}

// Warning prints a warning message to stderr.
func (u *UI) Warning(msg string) {
	u.colorWarning.Fprintf(u.errOut, "%s\n", msg)
}

// Warningf prints a formatted warning message to stderr.
func (u *UI) Warningf(format string, args ...interface{}) {
	u.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message to stderr.
func (u *UI) Error(msg string) {
	u.colorError.Fprintf(u.errOut, "%s\n", msg)
}

// Errorf prints a formatted error message to stderr.
func (u *UI) Errorf(format string, args ...interface{}) {
	u.Error(fmt.Sprintf(format, args...))
}

// List prints one package-listing line per entry to stdout, below the
// summary line. Not gated on verbosity; the -l flag controls the call.
func (u *UI) List(lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(u.out, strings.Join(lines, "\n"))
}
