package config

import (
	"context"
	"os"
	"testing"

	"github.com/paulissoft/nfs-server-alpine/pkg/exports"
	"github.com/paulissoft/nfs-server-alpine/pkg/hosts"
	"github.com/paulissoft/nfs-server-alpine/pkg/process"
	"github.com/paulissoft/nfs-server-alpine/pkg/supervisor"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProbe_Pidof(t *testing.T) {
	probe, err := CreateProbe(&ProbeConfig{
		Type:  "pidof",
		Pidof: map[string]any{"path": "/usr/bin/pidof"},
	})
	require.NoError(t, err)

	pidof, ok := probe.(*process.PidofProbe)
	require.True(t, ok)
	assert.Equal(t, "/usr/bin/pidof", pidof.Path)
}

func TestCreateProbe_PidofMissingPath(t *testing.T) {
	_, err := CreateProbe(&ProbeConfig{Type: "pidof", Pidof: map[string]any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestCreateProbe_PidofBadOptions(t *testing.T) {
	_, err := CreateProbe(&ProbeConfig{Type: "pidof", Pidof: map[string]any{"path": []int{1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode pidof probe config")
}

func TestCreateProbe_Procfs(t *testing.T) {
	if _, err := os.Stat("/proc/self"); err != nil {
		t.Skip("no proc filesystem")
	}

	probe, err := CreateProbe(&ProbeConfig{
		Type:   "procfs",
		Procfs: map[string]any{"mount_point": "/proc"},
	})
	require.NoError(t, err)

	pids, err := probe.PIDs(context.Background(), "no-such-process-name")
	require.NoError(t, err)
	assert.Empty(t, pids)
}

func TestCreateProbe_ProcfsMissingMountPoint(t *testing.T) {
	_, err := CreateProbe(&ProbeConfig{Type: "procfs"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mount_point is required")
}

func TestCreateProbe_Unknown(t *testing.T) {
	_, err := CreateProbe(&ProbeConfig{Type: "ps"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown probe type")
}

func TestCreateConfigurers(t *testing.T) {
	cfg := validConfig()
	fs := afero.NewMemMapFs()

	configurers := CreateConfigurers(fs, cfg, nil)
	require.Len(t, configurers, 2)

	_, ok := configurers[0].(*exports.Generator)
	assert.True(t, ok, "export table is generated first")
	_, ok = configurers[1].(*hosts.Generator)
	assert.True(t, ok)
}

func TestDiagnosticFiles(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, []string{"/etc/exports", "/etc/hosts.allow", "/etc/hosts.deny"}, DiagnosticFiles(cfg))
}

func TestCreateSupervisor(t *testing.T) {
	cfg := validConfig()
	probe, err := CreateProbe(&cfg.Supervisor.Probe)
	require.NoError(t, err)

	sup := CreateSupervisor(afero.NewMemMapFs(), cfg, probe, InitializeMetrics(cfg))
	require.NotNil(t, sup)
	assert.Equal(t, supervisor.Configuring, sup.State())
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := validConfig()

	result := InitializeMetrics(cfg)
	require.NotNil(t, result.SupervisorMetrics)
	assert.False(t, result.Enabled())
	assert.Nil(t, result.NewServer(nil))
}

func TestInitializeMetrics_Enabled(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 9191

	result := InitializeMetrics(cfg)
	require.NotNil(t, result.SupervisorMetrics)
	assert.True(t, result.Enabled())

	server := result.NewServer(func() (string, bool) { return "Running", true })
	require.NotNil(t, server)
	assert.Equal(t, 9191, server.Port())
}
