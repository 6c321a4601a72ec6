package config

import (
	"github.com/paulissoft/nfs-server-alpine/pkg/metrics"
	promMetrics "github.com/paulissoft/nfs-server-alpine/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// SupervisorMetrics is the collector for the supervisor (never nil, uses noop if disabled)
	SupervisorMetrics metrics.SupervisorMetrics

	enabled   bool
	port      int
	rateLimit uint
	burst     uint
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates Prometheus-backed metrics for the supervisor
//
// If metrics are disabled:
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			SupervisorMetrics: metrics.NewNoopSupervisorMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		SupervisorMetrics: promMetrics.NewSupervisorMetrics(),
		enabled:           true,
		port:              cfg.Metrics.Port,
		rateLimit:         cfg.Metrics.RateLimit,
		burst:             cfg.Metrics.Burst,
	}
}

// Enabled reports whether metrics collection is on.
func (r *MetricsResult) Enabled() bool {
	return r.enabled
}

// NewServer creates the metrics HTTP server, or returns nil if metrics are
// disabled. The server is created after the supervisor so that /healthz can
// report its state.
func (r *MetricsResult) NewServer(health metrics.HealthFunc) *metrics.Server {
	if !r.enabled {
		return nil
	}
	return metrics.NewServer(metrics.ServerConfig{
		Port:      r.port,
		Health:    health,
		RateLimit: r.rateLimit,
		Burst:     r.burst,
	})
}
