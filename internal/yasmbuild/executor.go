package yasmbuild

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Executor provides a consistent interface for invoking the external build
// tools (git, cmake, ninja, the signing tools). Every invocation runs with
// the fully-resolved environment captured at configuration time, so the
// Windows compiler-environment merge stays an explicit input instead of
// ambient process state.
type Executor struct {
	Context context.Context // The context to use for cancellation
	Env     []string        // Resolved environment; nil inherits the process environment
}

func NewExecutor(ctx context.Context) *Executor {
	return &Executor{Context: ctx}
}

// Run executes the given command, wiring up stdio so the external tool's
// output reaches the operator unbuffered, and killing the process when the
// run context is cancelled.
func (e *Executor) Run(cmd *exec.Cmd) error {
	// --- Phase 0: wire up stdio ---
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	return e.run(cmd)
}

// Output runs a command and captures its stdout, for probes like
// `xcode-select -p` whose result feeds configuration resolution.
func (e *Executor) Output(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	if err := e.run(cmd); err != nil {
		return "", err
	}
	return out.String(), nil
}

// run injects the resolved environment, then starts the command and watches
// the context for cancellation.
func (e *Executor) run(cmd *exec.Cmd) error {
	if len(cmd.Env) == 0 {
		if len(e.Env) > 0 {
			cmd.Env = e.Env
		} else {
			cmd.Env = os.Environ()
		}
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-e.Context.Done():
		_ = cmd.Process.Kill()
		<-done
		return fmt.Errorf("command aborted: %v", e.Context.Err())
	case err := <-done:
		return err
	}
}
