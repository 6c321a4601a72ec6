// Package metrics exposes the supervisor state over Prometheus.
//
// Collection is off until InitRegistry is called; constructors then return
// Prometheus-backed collectors, otherwise no-op ones. The HTTP server in
// this package serves the registry next to a /healthz endpoint driven by
// the supervisor state.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry turns metrics collection on. Only the first call creates the
// registry.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the supervisor registry, nil while collection is off.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
