package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/paulissoft/nfs-server-alpine/internal/logger"
	"github.com/paulissoft/nfs-server-alpine/pkg/exports"
	"github.com/paulissoft/nfs-server-alpine/pkg/hosts"
	"github.com/paulissoft/nfs-server-alpine/pkg/process"
	"github.com/paulissoft/nfs-server-alpine/pkg/supervisor"
	"github.com/spf13/afero"
)

// CreateProbe creates a process table probe based on configuration.
//
// This factory function uses the Type field to determine which probe
// implementation to create, then decodes the type-specific configuration from
// the corresponding map and passes it to the probe's constructor.
//
// Supported types:
//   - "pidof": runs the pidof utility (the behavior of the shell entrypoint)
//   - "procfs": reads /proc directly
func CreateProbe(cfg *ProbeConfig) (process.ProcessTable, error) {
	switch cfg.Type {
	case "pidof":
		return createPidofProbe(cfg.Pidof)
	case "procfs":
		return createProcfsProbe(cfg.Procfs)
	default:
		return nil, fmt.Errorf("unknown probe type: %q", cfg.Type)
	}
}

// createPidofProbe creates a pidof based probe.
func createPidofProbe(options map[string]any) (process.ProcessTable, error) {
	type PidofProbeConfig struct {
		Path string `mapstructure:"path"`
	}

	var probeCfg PidofProbeConfig
	if err := mapstructure.Decode(options, &probeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode pidof probe config: %w", err)
	}

	if probeCfg.Path == "" {
		return nil, fmt.Errorf("pidof probe: path is required")
	}

	logger.Debug("Using pidof probe at %s", probeCfg.Path)
	return process.NewPidofProbe(probeCfg.Path), nil
}

// createProcfsProbe creates a probe reading the proc filesystem.
func createProcfsProbe(options map[string]any) (process.ProcessTable, error) {
	type ProcfsProbeConfig struct {
		MountPoint string `mapstructure:"mount_point"`
	}

	var probeCfg ProcfsProbeConfig
	if err := mapstructure.Decode(options, &probeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode procfs probe config: %w", err)
	}

	if probeCfg.MountPoint == "" {
		return nil, fmt.Errorf("procfs probe: mount_point is required")
	}

	probe, err := process.NewProcfsProbe(probeCfg.MountPoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create procfs probe: %w", err)
	}

	logger.Debug("Using procfs probe at %s", probeCfg.MountPoint)
	return probe, nil
}

// CreateConfigurers creates the generators for the export table and the
// access control files, in the order they must run.
//
// A nil detect uses the subnets of the host's interfaces.
func CreateConfigurers(fs afero.Fs, cfg *Config, detect hosts.SubnetSource) []supervisor.Configurer {
	return []supervisor.Configurer{
		exports.NewGenerator(fs, cfg.Exports),
		hosts.NewGenerator(fs, cfg.Hosts, detect),
	}
}

// DiagnosticFiles lists the generated files shown before each startup attempt.
func DiagnosticFiles(cfg *Config) []string {
	return []string{cfg.Exports.File, cfg.Hosts.AllowFile, cfg.Hosts.DenyFile}
}

// CreateSupervisor wires a supervisor from configuration.
func CreateSupervisor(fs afero.Fs, cfg *Config, probe process.ProcessTable, m *MetricsResult) *supervisor.Supervisor {
	deps := supervisor.Dependencies{
		Processes:       probe,
		Binaries:        cfg.Commands,
		Configurers:     CreateConfigurers(fs, cfg, nil),
		DiagnosticFiles: DiagnosticFiles(cfg),
		Fs:              fs,
	}

	return supervisor.New(cfg.Supervisor.Config, deps, m.SupervisorMetrics)
}
