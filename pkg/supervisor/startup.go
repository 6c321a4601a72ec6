package supervisor

import (
	"context"
	"fmt"

	"github.com/paulissoft/nfs-server-alpine/internal/logger"
	"github.com/paulissoft/nfs-server-alpine/pkg/process"
)

// startup retries attempts until the mount daemon is alive. It returns nil
// in Running, an ErrExportFailed error in Failed, or errInterrupted.
func (s *Supervisor) startup(ctx context.Context) error {
	for {
		if ctx.Err() != nil || s.State() != StartingUp {
			return errInterrupted
		}

		n := s.nextAttempt()
		ok, err := s.attempt(ctx, n)
		if err != nil {
			return err
		}
		if s.State() != StartingUp {
			return errInterrupted
		}
		s.metrics.RecordStartupAttempt(ok)

		if ok {
			logger.Info("Startup successful after %d attempt(s)", n)
			return s.fire(EventMountDaemonAlive)
		}

		if err := s.fire(EventAttemptFailed); err != nil {
			return err
		}
		logger.Warn("Startup of NFS failed, sleeping for %v, then retrying...", s.cfg.RetryInterval)
		if err := s.sleep(ctx, s.cfg.RetryInterval); err != nil {
			return err
		}
	}
}

// attempt runs one startup attempt and reports whether the mount daemon is
// alive at its end.
//
// Launches run detached from ctx: a signal never aborts a daemon halfway
// through starting, it is honoured between steps instead.
func (s *Supervisor) attempt(ctx context.Context, n int) (bool, error) {
	b := s.deps.Binaries
	launchCtx := context.WithoutCancel(ctx)

	logger.Info("Startup attempt %d", n)
	s.showDiagnostics()

	logger.Info("Starting rpcbind...")
	s.launch(launchCtx, b.PortMapper())
	if ctx.Err() != nil {
		return false, errInterrupted
	}

	if err := s.waitPortMapper(ctx); err != nil {
		if ctx.Err() != nil {
			return false, errInterrupted
		}
		logger.Warn("rpcbind is not ready: %v", err)
		return false, nil
	}

	logger.Info("Starting NFS in the background...")
	s.launch(launchCtx, b.KernelServer())
	if ctx.Err() != nil {
		return false, errInterrupted
	}

	logger.Info("Exporting File System...")
	out, err := s.deps.Runner.Output(launchCtx, b.Reexport())
	logOutput(out)
	if err != nil {
		_ = s.fire(EventExportFailed)
		logger.Error("Export validation failed, exiting...")
		return false, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}

	out, err = s.deps.Runner.Output(launchCtx, b.ListExports())
	if err != nil {
		logger.Warn("Listing exports failed: %v", err)
	}
	logOutput(out)
	if ctx.Err() != nil {
		return false, errInterrupted
	}

	logger.Info("Starting Mountd in the background...")
	mountd := b.MountDaemon()
	s.launch(launchCtx, mountd)

	alive := s.isAlive(ctx, mountd.ProcessName())
	if ctx.Err() != nil {
		return false, errInterrupted
	}
	return alive, nil
}

// launch starts a daemon. Failures are only logged: the liveness check at
// the end of the attempt decides whether the attempt worked.
func (s *Supervisor) launch(ctx context.Context, cmd process.Command) {
	if err := s.deps.Runner.Launch(ctx, cmd); err != nil {
		logger.Warn("Launching %s failed: %v", cmd.ProcessName(), err)
	}
}

// waitPortMapper polls rpcinfo until rpcbind answers, at most
// ReadyTimeout/ReadyPollInterval times.
func (s *Supervisor) waitPortMapper(ctx context.Context) error {
	info := s.deps.Binaries.PortMapperInfo()

	tries := int(s.cfg.ReadyTimeout / s.cfg.ReadyPollInterval)
	if tries < 1 {
		tries = 1
	}

	var lastErr error
	for i := 0; i < tries; i++ {
		if i > 0 {
			if err := s.sleep(ctx, s.cfg.ReadyPollInterval); err != nil {
				return err
			}
		}

		out, err := s.deps.Runner.Output(ctx, info)
		if err == nil {
			logger.Info("Displaying rpcbind status...")
			logOutput(out)
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return errInterrupted
		}
	}

	return fmt.Errorf("no answer after %v: %w", s.cfg.ReadyTimeout, lastErr)
}
