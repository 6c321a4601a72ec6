package metrics

import "time"

// SupervisorMetrics provides observability for the NFS process supervisor.
//
// This interface is optional - if not provided to the supervisor, a no-op
// implementation is used with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	sup := supervisor.New(cfg, deps, prometheus.NewSupervisorMetrics())
//
//	// Without metrics (no-op)
//	sup := supervisor.New(cfg, deps, nil)
type SupervisorMetrics interface {
	// SetState records the state the supervisor just entered.
	//
	// Parameters:
	//   - state: State name (e.g., "StartingUp", "Running")
	SetState(state string)

	// RecordStartupAttempt records the outcome of one startup attempt.
	//
	// Parameters:
	//   - success: true if the mount daemon was alive at the end of the attempt
	RecordStartupAttempt(success bool)

	// RecordLivenessPoll records one liveness poll of the monitor loop.
	//
	// Parameters:
	//   - alive: Result of the poll
	RecordLivenessPoll(alive bool)

	// RecordShutdown records how long the graceful shutdown sequence took.
	RecordShutdown(duration time.Duration)
}

// NewNoopSupervisorMetrics returns a SupervisorMetrics that discards everything.
func NewNoopSupervisorMetrics() SupervisorMetrics {
	return noopSupervisorMetrics{}
}

// noopSupervisorMetrics is a no-op implementation of SupervisorMetrics with zero overhead.
type noopSupervisorMetrics struct{}

func (noopSupervisorMetrics) SetState(state string)                 {}
func (noopSupervisorMetrics) RecordStartupAttempt(success bool)     {}
func (noopSupervisorMetrics) RecordLivenessPoll(alive bool)         {}
func (noopSupervisorMetrics) RecordShutdown(duration time.Duration) {}
