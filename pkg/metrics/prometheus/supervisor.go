package prometheus

import (
	"sync"
	"time"

	"github.com/paulissoft/nfs-server-alpine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// supervisorMetrics is the Prometheus implementation of metrics.SupervisorMetrics.
type supervisorMetrics struct {
	state            *prometheus.GaugeVec
	startupAttempts  *prometheus.CounterVec
	livenessPolls    *prometheus.CounterVec
	shutdownDuration prometheus.Histogram

	// mu protects current
	mu      sync.Mutex
	current string
}

// NewSupervisorMetrics creates a new Prometheus-backed SupervisorMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewSupervisorMetrics() metrics.SupervisorMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopSupervisorMetrics()
	}

	reg := metrics.GetRegistry()

	return &supervisorMetrics{
		state: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nfs_supervisor_state",
				Help: "Current supervisor state (1 for the active state, 0 otherwise)",
			},
			[]string{"state"},
		),
		startupAttempts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfs_supervisor_startup_attempts_total",
				Help: "Total number of NFS startup attempts by result",
			},
			[]string{"result"},
		),
		livenessPolls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfs_supervisor_liveness_polls_total",
				Help: "Total number of mount daemon liveness polls by result",
			},
			[]string{"result"},
		),
		shutdownDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "nfs_supervisor_shutdown_duration_seconds",
				Help: "Duration of the graceful shutdown sequence in seconds",
				Buckets: []float64{
					0.1,  // 100ms
					0.5,  // 500ms
					1.0,  // 1s
					5.0,  // 5s
					10.0, // 10s
				},
			},
		),
	}
}

func (m *supervisorMetrics) SetState(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != "" && m.current != state {
		m.state.WithLabelValues(m.current).Set(0)
	}
	m.state.WithLabelValues(state).Set(1)
	m.current = state
}

func (m *supervisorMetrics) RecordStartupAttempt(success bool) {
	m.startupAttempts.WithLabelValues(result(success, "success", "failure")).Inc()
}

func (m *supervisorMetrics) RecordLivenessPoll(alive bool) {
	m.livenessPolls.WithLabelValues(result(alive, "alive", "dead")).Inc()
}

func (m *supervisorMetrics) RecordShutdown(duration time.Duration) {
	m.shutdownDuration.Observe(duration.Seconds())
}

func result(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
