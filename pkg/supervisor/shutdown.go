package supervisor

import (
	"context"
	"syscall"
	"time"

	"github.com/paulissoft/nfs-server-alpine/internal/logger"
	"github.com/paulissoft/nfs-server-alpine/pkg/process"
)

// shutdownTargets lists the processes sent SIGTERM on shutdown.
//
// rpcbind is not otherwise stopped by the NFS tooling; it is killed as well
// because of an IPv6 dual-stack socket binding defect that keeps it around.
func shutdownTargets(b process.Binaries) []string {
	return []string{
		b.KernelServer().ProcessName(),
		b.MountDaemon().ProcessName(),
		b.PortMapper().ProcessName(),
	}
}

// Shutdown unexports all file systems and stops the daemons.
//
// Every step is best-effort: failures are logged and the next step runs.
// The sequence is bounded by ShutdownTimeout and runs at most once. Every
// caller blocks until it has finished. Calling Shutdown in a final state
// does nothing.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(s.shutdown)
	<-s.shutdownDone
}

func (s *Supervisor) shutdown() {
	defer close(s.shutdownDone)

	if s.State().Final() {
		return
	}
	if err := s.fire(EventSignal); err != nil {
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	b := s.deps.Binaries
	logger.Info("Termination signal caught, terminating NFS process(es)...")

	// Unexport before draining so no export is left behind in the kernel.
	out, err := s.deps.Runner.Output(ctx, b.UnexportAll())
	logOutput(out)
	if err != nil {
		logger.Warn("Unexporting file systems failed: %v", err)
	}

	if err := s.deps.Runner.Launch(ctx, b.DrainKernelServer()); err != nil {
		logger.Warn("Stopping NFS server threads failed: %v", err)
	}

	var pids []int
	for _, name := range shutdownTargets(b) {
		found, err := s.deps.Processes.PIDs(ctx, name)
		if err != nil {
			logger.Warn("Looking up %s failed: %v", name, err)
			continue
		}
		if len(found) == 0 {
			logger.Debug("No %s process found", name)
		}
		pids = append(pids, found...)
	}

	if err := s.deps.Killer.Signal(pids, syscall.SIGTERM); err != nil {
		logger.Warn("Terminating NFS processes failed: %v", err)
	}

	s.metrics.RecordShutdown(time.Since(start))
	_ = s.fire(EventShutdownComplete)
	logger.Info("Terminated.")
}
