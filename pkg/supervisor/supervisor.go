package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulissoft/nfs-server-alpine/internal/logger"
	"github.com/paulissoft/nfs-server-alpine/pkg/metrics"
	"github.com/paulissoft/nfs-server-alpine/pkg/process"
	"github.com/spf13/afero"
)

var (
	// ErrConfiguration means the server configuration files could not be generated.
	ErrConfiguration = errors.New("configuration failed")

	// ErrExportFailed means the export table loader rejected the export table.
	ErrExportFailed = errors.New("export validation failed")

	// ErrMountDaemonDied means the mount daemon disappeared while running.
	ErrMountDaemonDied = errors.New("mount daemon died")

	// errInterrupted unwinds the loops when the run context is cancelled.
	errInterrupted = errors.New("interrupted")
)

// ExitCode maps the result of Run to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// Config holds the supervisor timings.
type Config struct {
	// RetryInterval is the fixed delay between failed startup attempts
	RetryInterval time.Duration `mapstructure:"retry_interval" yaml:"retry_interval" validate:"gt=0"`

	// PollInterval is the delay between mount daemon liveness polls
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval" validate:"gt=0"`

	// ReadyTimeout bounds the wait for rpcbind to answer
	ReadyTimeout time.Duration `mapstructure:"ready_timeout" yaml:"ready_timeout" validate:"gt=0"`

	// ReadyPollInterval is the delay between rpcbind readiness checks
	ReadyPollInterval time.Duration `mapstructure:"ready_poll_interval" yaml:"ready_poll_interval" validate:"gt=0"`

	// ShutdownTimeout bounds the whole shutdown sequence
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		RetryInterval:     2 * time.Second,
		PollInterval:      time.Second,
		ReadyTimeout:      10 * time.Second,
		ReadyPollInterval: 250 * time.Millisecond,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Configurer produces a configuration file consumed by the NFS daemons.
type Configurer interface {
	Generate() error
}

// Sleeper blocks for a duration unless ctx is cancelled first.
type Sleeper interface {
	// Sleep returns ctx.Err() when the context was cancelled before or
	// during the sleep, nil otherwise.
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
	// a signal that raced the timer still wins
	return ctx.Err()
}

// Dependencies are the collaborators the supervisor drives.
type Dependencies struct {
	// Processes looks up the daemons (required)
	Processes process.ProcessTable

	// Runner executes commands. Default: process.ExecRunner
	Runner process.Runner

	// Killer signals the daemons on shutdown. Default: process.SignalKiller
	Killer process.Killer

	// Binaries locates the NFS executables. Default: process.DefaultBinaries
	Binaries process.Binaries

	// Configurers generate the daemon configuration files, in order
	Configurers []Configurer

	// DiagnosticFiles are displayed before every startup attempt
	DiagnosticFiles []string

	// Fs reads DiagnosticFiles. Default: the OS filesystem
	Fs afero.Fs

	// Sleeper implements the retry and poll delays. Default: timer based
	Sleeper Sleeper
}

// Supervisor starts the NFS daemons and watches them.
//
// A Supervisor is single use: call Run once. State, Attempts, Polls and
// Shutdown may be called concurrently with Run.
type Supervisor struct {
	cfg     Config
	deps    Dependencies
	metrics metrics.SupervisorMetrics

	// mu protects state and the counters
	mu       sync.RWMutex
	state    State
	attempts int
	polls    int

	shutdownOnce sync.Once
	shutdownDone chan struct{}
}

// New creates a Supervisor in the Configuring state.
//
// Panics if deps.Processes is nil (programmer error).
func New(cfg Config, deps Dependencies, m metrics.SupervisorMetrics) *Supervisor {
	if deps.Processes == nil {
		panic("process table cannot be nil")
	}
	if deps.Runner == nil {
		deps.Runner = process.NewExecRunner()
	}
	if deps.Killer == nil {
		deps.Killer = process.NewSignalKiller()
	}
	if deps.Binaries == (process.Binaries{}) {
		deps.Binaries = process.DefaultBinaries()
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Sleeper == nil {
		deps.Sleeper = timerSleeper{}
	}
	if m == nil {
		m = metrics.NewNoopSupervisorMetrics()
	}

	s := &Supervisor{
		cfg:     cfg,
		deps:    deps,
		metrics: m,
		state:   Configuring,

		shutdownDone: make(chan struct{}),
	}
	m.SetState(Configuring.String())
	return s
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Health reports the current state name and whether the NFS stack is up.
func (s *Supervisor) Health() (string, bool) {
	state := s.State()
	return state.String(), state == Running
}

func (s *Supervisor) fire(ev Event) error {
	s.mu.Lock()
	from := s.state
	to, err := Transition(from, ev)
	if err == nil {
		s.state = to
	}
	s.mu.Unlock()

	if err != nil {
		logger.Error("Supervisor: %v", err)
		return err
	}

	s.metrics.SetState(to.String())
	logger.Debug("Supervisor state %s -> %s (%s)", from, to, ev)
	return nil
}

// Run drives the supervisor through configuration, startup and monitoring
// until the mount daemon dies, startup hits a fatal error or ctx is
// cancelled. Cancellation runs the graceful shutdown sequence and returns nil
// once it has finished, also when Shutdown was started by another goroutine.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.configure(); err != nil {
		return err
	}

	if err := s.startup(ctx); err != nil {
		if errors.Is(err, errInterrupted) {
			s.Shutdown()
			return nil
		}
		return err
	}

	if err := s.monitor(ctx); err != nil {
		if errors.Is(err, errInterrupted) {
			s.Shutdown()
			return nil
		}
		return err
	}

	return nil
}

func (s *Supervisor) configure() error {
	for _, c := range s.deps.Configurers {
		if err := c.Generate(); err != nil {
			_ = s.fire(EventConfigFailed)
			logger.Error("Configuration failed: %v", err)
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}
	return s.fire(EventConfigured)
}

// Attempts returns the number of startup attempts made so far.
func (s *Supervisor) Attempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts
}

func (s *Supervisor) nextAttempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	return s.attempts
}

// Polls returns the number of liveness polls made while running.
func (s *Supervisor) Polls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.polls
}

func (s *Supervisor) countPoll() {
	s.mu.Lock()
	s.polls++
	s.mu.Unlock()
}

func (s *Supervisor) sleep(ctx context.Context, d time.Duration) error {
	if err := s.deps.Sleeper.Sleep(ctx, d); err != nil {
		return errInterrupted
	}
	return nil
}

// isAlive treats a failed lookup as "not alive".
func (s *Supervisor) isAlive(ctx context.Context, name string) bool {
	alive, err := s.deps.Processes.IsAlive(ctx, name)
	if err != nil {
		logger.Warn("Liveness check for %s failed: %v", name, err)
		return false
	}
	return alive
}

func (s *Supervisor) showDiagnostics() {
	for _, path := range s.deps.DiagnosticFiles {
		data, err := afero.ReadFile(s.deps.Fs, path)
		if err != nil {
			logger.Warn("Cannot display %s: %v", path, err)
			continue
		}
		logger.Info("Displaying %s contents:", path)
		logOutput(data)
	}
}

func logOutput(out []byte) {
	for _, line := range bytes.Split(bytes.TrimRight(out, "\n"), []byte("\n")) {
		if len(line) > 0 {
			logger.Info("  %s", line)
		}
	}
}
