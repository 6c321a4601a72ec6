package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Healthz(t *testing.T) {
	healthy := false
	srv := NewServer(ServerConfig{Port: 19090, Health: func() (string, bool) {
		if healthy {
			return "Running", true
		}
		return "StartingUp", false
	}})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "StartingUp\n", rec.Body.String())

	healthy = true
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Running\n", rec.Body.String())
}

func TestServer_MetricsDisabled(t *testing.T) {
	if IsEnabled() {
		t.Skip("registry already initialized")
	}

	srv := NewServer(ServerConfig{})
	assert.Equal(t, 9090, srv.Port())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_StartStop(t *testing.T) {
	srv := NewServer(ServerConfig{Port: 0})
	srv.server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}

	// Stop is idempotent
	assert.NoError(t, srv.Stop(context.Background()))
}

func TestNoopSupervisorMetrics(t *testing.T) {
	m := NewNoopSupervisorMetrics()
	m.SetState("Running")
	m.RecordStartupAttempt(true)
	m.RecordLivenessPoll(false)
	m.RecordShutdown(time.Second)
}

func TestServer_RateLimited(t *testing.T) {
	srv := NewServer(ServerConfig{Port: 19091, RateLimit: 1, Burst: 1})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

// Runs last in this package: it turns collection on for good.
func TestInitRegistry_ServesMetrics(t *testing.T) {
	InitRegistry()
	reg := GetRegistry()
	require.NotNil(t, reg)
	assert.True(t, IsEnabled())

	InitRegistry()
	assert.Same(t, reg, GetRegistry(), "only the first call creates the registry")

	srv := NewServer(ServerConfig{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
