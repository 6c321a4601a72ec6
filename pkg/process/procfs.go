package process

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/prometheus/procfs"
)

// commLen is the kernel's TASK_COMM_LEN minus the terminating NUL.
const commLen = 15

// ProcfsProbe scans /proc directly instead of shelling out.
//
// A process matches when its comm equals the name (truncated the way the
// kernel truncates comm) or when the basename of its executable equals it.
type ProcfsProbe struct {
	fs procfs.FS
}

// NewProcfsProbe opens the proc filesystem mounted at mountPoint.
func NewProcfsProbe(mountPoint string) (*ProcfsProbe, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs at %s: %w", mountPoint, err)
	}
	return &ProcfsProbe{fs: fs}, nil
}

// IsAlive implements Probe.
func (p *ProcfsProbe) IsAlive(ctx context.Context, name string) (bool, error) {
	pids, err := p.PIDs(ctx, name)
	if err != nil {
		return false, err
	}
	return len(pids) > 0, nil
}

// PIDs implements PIDFinder.
func (p *ProcfsProbe) PIDs(ctx context.Context, name string) ([]int, error) {
	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	comm := name
	if len(comm) > commLen {
		comm = comm[:commLen]
	}

	var pids []int
	for _, proc := range procs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if matchesProc(proc, name, comm) {
			pids = append(pids, proc.PID)
		}
	}
	return pids, nil
}

// matchesProc ignores per-process read errors: the process may have exited
// between listing and reading.
func matchesProc(proc procfs.Proc, name, comm string) bool {
	if c, err := proc.Comm(); err == nil && c == comm {
		return true
	}
	if exe, err := proc.Executable(); err == nil && exe != "" && filepath.Base(exe) == name {
		return true
	}
	return false
}
