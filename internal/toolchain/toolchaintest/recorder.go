// Package toolchaintest provides a Runner that records commands instead of
// executing them.
package toolchaintest

import (
	"context"
	"sync"

	"github.com/meshx/meshx-tools/internal/apperrors"
	"github.com/meshx/meshx-tools/internal/toolchain"
)

// Recorder implements toolchain.Runner for tests.
type Recorder struct {
	mu       sync.Mutex
	commands []toolchain.Command

	// Fail makes a command fail when its Name or full command line matches a key.
	Fail map[string]int
	// Outputs is returned by Output for a matching Name or command line.
	Outputs map[string]string
	// OnRun, when set, is called for every recorded Run.
	OnRun func(cmd toolchain.Command)
}

// Run implements toolchain.Runner.
func (r *Recorder) Run(_ context.Context, cmd toolchain.Command) error {
	r.record(cmd)
	if r.OnRun != nil {
		r.OnRun(cmd)
	}
	return r.failure(cmd)
}

// Output implements toolchain.Runner.
func (r *Recorder) Output(_ context.Context, cmd toolchain.Command) ([]byte, error) {
	r.record(cmd)
	if err := r.failure(cmd); err != nil {
		return nil, err
	}
	if out, ok := r.Outputs[cmd.String()]; ok {
		return []byte(out), nil
	}
	return []byte(r.Outputs[cmd.Name]), nil
}

// Commands returns the recorded commands in order.
func (r *Recorder) Commands() []toolchain.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]toolchain.Command(nil), r.commands...)
}

// Lines returns the recorded commands as command lines.
func (r *Recorder) Lines() []string {
	cmds := r.Commands()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.String()
	}
	return lines
}

func (r *Recorder) record(cmd toolchain.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

func (r *Recorder) failure(cmd toolchain.Command) error {
	code, ok := r.Fail[cmd.String()]
	if !ok {
		code, ok = r.Fail[cmd.Name]
	}
	if !ok {
		return nil
	}
	return apperrors.NewSubprocessFailureError(cmd.Argv(), code, nil)
}

// LookPath returns a toolchain.Checker LookPath that finds only the given tools.
func LookPath(installed ...string) func(string) (string, error) {
	set := make(map[string]bool, len(installed))
	for _, t := range installed {
		set[t] = true
	}
	return func(file string) (string, error) {
		if set[file] {
			return "/usr/bin/" + file, nil
		}
		return "", &notFound{file: file}
	}
}

type notFound struct{ file string }

func (e *notFound) Error() string { return "exec: \"" + e.file + "\": executable file not found in $PATH" }
