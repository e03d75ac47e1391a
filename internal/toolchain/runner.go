// Package toolchain runs the external build and flashing tools and checks
// that they are installed.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/meshx/meshx-tools/internal/apperrors"
)

// Command is one external tool invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
}

// Argv returns the command line as a slice.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Runner executes commands. Implementations must report a non-zero exit as
// *apperrors.SubprocessFailureError.
type Runner interface {
	// Run executes cmd attached to the terminal.
	Run(ctx context.Context, cmd Command) error
	// Output executes cmd and returns its standard output.
	Output(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// DryRun prints commands passed to Run instead of executing them.
	// Output always executes since it is only used for read-only probes.
	DryRun bool
	Logger *slog.Logger
}

// NewExecRunner returns a runner attached to the process's standard streams.
func NewExecRunner(dryRun bool) *ExecRunner {
	return &ExecRunner{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		DryRun: dryRun,
		Logger: slog.Default(),
	}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	r.logger().Debug("running command", "cmd", cmd.String(), "dir", cmd.Dir)

	if r.DryRun {
		_, _ = fmt.Fprintf(r.Stdout, "  [DRY RUN] Would execute: %s\n", cmd)
		return nil
	}

	// #nosec G204 - the tool and its arguments are fixed by the caller
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdin = r.Stdin
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr

	return wrapExecError(cmd, c.Run())
}

// Output implements Runner.
func (r *ExecRunner) Output(ctx context.Context, cmd Command) ([]byte, error) {
	r.logger().Debug("probing command", "cmd", cmd.String())

	// #nosec G204 - the tool and its arguments are fixed by the caller
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	out, err := c.Output()
	return out, wrapExecError(cmd, err)
}

func (r *ExecRunner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func wrapExecError(cmd Command, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return apperrors.NewToolNotInstalledError(cmd.Name, err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return apperrors.NewSubprocessFailureError(cmd.Argv(), exitErr.ExitCode(), err)
	}
	return apperrors.NewSubprocessFailureError(cmd.Argv(), -1, err)
}
