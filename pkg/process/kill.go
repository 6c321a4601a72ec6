package process

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// Killer delivers a signal to a batch of processes.
type Killer interface {
	// Signal sends sig to every pid. Processes that no longer exist are
	// skipped silently; any other failure is collected and returned after
	// all pids were tried.
	Signal(pids []int, sig syscall.Signal) error
}

// SignalKiller is the kill(2) backed Killer.
type SignalKiller struct {
	kill func(pid int, sig syscall.Signal) error
}

// NewSignalKiller creates a Killer using kill(2).
func NewSignalKiller() *SignalKiller {
	return &SignalKiller{kill: unix.Kill}
}

// Signal implements Killer.
func (k *SignalKiller) Signal(pids []int, sig syscall.Signal) error {
	var errs []error
	for _, pid := range pids {
		if err := k.kill(pid, sig); err != nil {
			if errors.Is(err, unix.ESRCH) {
				continue
			}
			errs = append(errs, fmt.Errorf("kill %d: %w", pid, err))
		}
	}
	return errors.Join(errs...)
}
