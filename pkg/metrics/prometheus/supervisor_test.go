package prometheus

import (
	"testing"
	"time"

	"github.com/paulissoft/nfs-server-alpine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisorMetrics(t *testing.T) {
	metrics.InitRegistry()

	m, ok := NewSupervisorMetrics().(*supervisorMetrics)
	require.True(t, ok, "expected prometheus implementation once the registry is initialized")

	m.SetState("StartingUp")
	m.SetState("Running")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("StartingUp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("Running")))

	m.RecordStartupAttempt(false)
	m.RecordStartupAttempt(false)
	m.RecordStartupAttempt(true)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.startupAttempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.startupAttempts.WithLabelValues("success")))

	m.RecordLivenessPoll(true)
	m.RecordLivenessPoll(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.livenessPolls.WithLabelValues("alive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.livenessPolls.WithLabelValues("dead")))

	m.RecordShutdown(300 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.shutdownDuration))
}
