// Package system runs external commands and captures their output streams
// for inspection by the check logic.
package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Capture holds one fully-read output stream of a finished command.
type Capture struct {
	Lines []string
	Bytes int
}

// Empty reports whether the stream produced no output at all.
func (c Capture) Empty() bool {
	return c.Bytes == 0
}

// Output is the result of one command invocation. ExitCode is only
// meaningful when Run returned a nil error.
type Output struct {
	Stdout   Capture
	Stderr   Capture
	ExitCode int
}

// CommandRunner defines an interface for running system commands.
type CommandRunner interface {
	// Run executes name with args and waits for it to finish. The child is
	// killed when ctx expires. A non-zero exit status is not an error; it
	// is reported through Output.ExitCode. Run returns an error only when
	// the command could not be started or did not run to completion.
	Run(ctx context.Context, name string, args ...string) (*Output, error)
}

// ExecRunner executes commands directly through os/exec, with no shell
// interpretation of the arguments.
type ExecRunner struct{}

// NewRunner returns the default command runner implementation.
func NewRunner() CommandRunner {
	return &ExecRunner{}
}

// Run executes a command and captures stdout and stderr separately. The
// child inherits no standard input.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Output, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Stdin = nil

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("running %s: %w", name, ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Ran to completion; the caller decides what a non-zero
			// status means for the tool it invoked.
			return &Output{
				Stdout:   capture(&stdout),
				Stderr:   capture(&stderr),
				ExitCode: exitErr.ExitCode(),
			}, nil
		}
		return nil, fmt.Errorf("running %s: %w", name, err)
	}

	return &Output{
		Stdout: capture(&stdout),
		Stderr: capture(&stderr),
	}, nil
}

func capture(buf *bytes.Buffer) Capture {
	s := buf.String()
	c := Capture{Bytes: len(s)}
	if s == "" {
		return c
	}
	c.Lines = strings.Split(strings.TrimRight(s, "\n"), "\n")
	return c
}
