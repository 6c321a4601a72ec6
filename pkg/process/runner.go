package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Runner executes external commands.
//
// Launch is used for the daemons: they fork into the background and the
// foreground process exits once the daemon is up, so Launch only waits for
// the foreground part. Output is used for short-lived tools whose output is
// shown as diagnostics.
type Runner interface {
	// Launch runs the command with the supervisor's stdout and stderr
	// and waits for it to exit.
	Launch(ctx context.Context, cmd Command) error

	// Output runs the command and returns its combined stdout and stderr.
	// The output is returned even when the command fails.
	Output(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct {
	// Env is appended to the supervisor's environment for every command.
	Env []string
}

// NewExecRunner creates a Runner that executes real binaries.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) command(ctx context.Context, cmd Command) *exec.Cmd {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	if len(r.Env) > 0 {
		c.Env = append(os.Environ(), r.Env...)
	}
	return c
}

// Launch implements Runner.
func (r *ExecRunner) Launch(ctx context.Context, cmd Command) error {
	c := r.command(ctx, cmd)
	// Plain files, not pipes: a daemon keeping its inherited stdio open
	// must not hold up Wait.
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

// Output implements Runner.
func (r *ExecRunner) Output(ctx context.Context, cmd Command) ([]byte, error) {
	out, err := r.command(ctx, cmd).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %w", cmd, err)
	}
	return out, nil
}
