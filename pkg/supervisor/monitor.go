package supervisor

import (
	"context"

	"github.com/paulissoft/nfs-server-alpine/internal/logger"
)

// monitor polls the mount daemon every PollInterval while Running. It
// returns an ErrMountDaemonDied error in Failed, or errInterrupted.
//
// Each poll follows a sleep, so a death observed on the Nth poll is
// reported after exactly N intervals.
func (s *Supervisor) monitor(ctx context.Context) error {
	name := s.deps.Binaries.MountDaemon().ProcessName()
	logger.Info("Monitoring %s every %v", name, s.cfg.PollInterval)

	for {
		if ctx.Err() != nil || s.State() != Running {
			return errInterrupted
		}
		if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
			return err
		}

		alive := s.isAlive(ctx, name)
		s.countPoll()
		s.metrics.RecordLivenessPoll(alive)

		if ctx.Err() != nil || s.State() != Running {
			return errInterrupted
		}
		if !alive {
			_ = s.fire(EventMountDaemonDied)
			logger.Error("NFS has failed, exiting, so the container can be restarted...")
			return ErrMountDaemonDied
		}
	}
}
