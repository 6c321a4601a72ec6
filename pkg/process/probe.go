package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Probe reports whether a process is running.
//
// A process that is not running is a normal false result, never an error.
// An error means the process table could not be inspected at all.
type Probe interface {
	IsAlive(ctx context.Context, name string) (bool, error)
}

// PIDFinder looks up the PIDs of every process with the given executable
// name. No match yields an empty slice and a nil error.
type PIDFinder interface {
	PIDs(ctx context.Context, name string) ([]int, error)
}

// ProcessTable combines both lookups; every probe in this package is one.
type ProcessTable interface {
	Probe
	PIDFinder
}

// PidofProbe asks the pidof(8) utility.
//
// pidof exits with status 1 when nothing matches, which is reported as
// "not alive" rather than as a failure.
type PidofProbe struct {
	// Path to the pidof binary
	Path string

	run func(ctx context.Context, path, name string) ([]byte, error)
}

// NewPidofProbe creates a probe backed by the pidof binary at path.
func NewPidofProbe(path string) *PidofProbe {
	return &PidofProbe{Path: path, run: runPidof}
}

func runPidof(ctx context.Context, path, name string) ([]byte, error) {
	return exec.CommandContext(ctx, path, name).Output()
}

// IsAlive implements Probe.
func (p *PidofProbe) IsAlive(ctx context.Context, name string) (bool, error) {
	pids, err := p.PIDs(ctx, name)
	if err != nil {
		return false, err
	}
	return len(pids) > 0, nil
}

// PIDs implements PIDFinder.
func (p *PidofProbe) PIDs(ctx context.Context, name string) ([]int, error) {
	out, err := p.run(ctx, p.Path, name)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("pidof %s: %w", name, err)
	}
	return parsePIDs(string(out))
}

func parsePIDs(out string) ([]int, error) {
	fields := strings.Fields(out)
	pids := make([]int, 0, len(fields))
	for _, f := range fields {
		pid, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("unexpected pidof output %q: %w", f, err)
		}
		pids = append(pids, pid)
	}
	return pids, nil
}
