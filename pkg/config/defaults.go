package config

import (
	"strings"

	"github.com/paulissoft/nfs-server-alpine/pkg/exports"
	"github.com/paulissoft/nfs-server-alpine/pkg/hosts"
	"github.com/paulissoft/nfs-server-alpine/pkg/process"
	"github.com/paulissoft/nfs-server-alpine/pkg/supervisor"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Booleans are left alone; their defaults come from GetDefaultConfig
//   - Metrics values are left alone: a zero port or rate is meaningful there
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyExportsDefaults(&cfg.Exports)
	applyHostsDefaults(&cfg.Hosts)
	applySupervisorDefaults(&cfg.Supervisor)
	applyCommandsDefaults(&cfg.Commands)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyExportsDefaults sets export table defaults.
func applyExportsDefaults(cfg *exports.Config) {
	if cfg.File == "" {
		cfg.File = "/etc/exports"
	}
	if cfg.Permitted == "" {
		cfg.Permitted = "*"
	}
	if len(cfg.Options) == 0 {
		cfg.Options = exports.DefaultOptions()
	}
	cfg.ExtraDirectories = compact(cfg.ExtraDirectories)
	// Directory has no default: it must be provided
}

// applyHostsDefaults sets access control defaults.
func applyHostsDefaults(cfg *hosts.Config) {
	if cfg.AllowFile == "" {
		cfg.AllowFile = "/etc/hosts.allow"
	}
	if cfg.DenyFile == "" {
		cfg.DenyFile = "/etc/hosts.deny"
	}
	if len(cfg.Services) == 0 {
		cfg.Services = hosts.DefaultServices()
	}
	cfg.Allowed = compact(cfg.Allowed)
}

// applySupervisorDefaults sets supervisor timing and probe defaults.
func applySupervisorDefaults(cfg *SupervisorConfig) {
	d := supervisor.DefaultConfig()

	cfg.RetryInterval = durationOrDefault(cfg.RetryInterval, d.RetryInterval)
	cfg.PollInterval = durationOrDefault(cfg.PollInterval, d.PollInterval)
	cfg.ReadyTimeout = durationOrDefault(cfg.ReadyTimeout, d.ReadyTimeout)
	cfg.ReadyPollInterval = durationOrDefault(cfg.ReadyPollInterval, d.ReadyPollInterval)
	cfg.ShutdownTimeout = durationOrDefault(cfg.ShutdownTimeout, d.ShutdownTimeout)

	applyProbeDefaults(&cfg.Probe)
}

// applyProbeDefaults sets probe defaults.
func applyProbeDefaults(cfg *ProbeConfig) {
	if cfg.Type == "" {
		cfg.Type = "pidof"
	}
	// Type-specific configurations are normalized to lowercase
	cfg.Type = strings.ToLower(cfg.Type)

	// Initialize maps if nil
	if cfg.Pidof == nil {
		cfg.Pidof = make(map[string]any)
	}
	if cfg.Procfs == nil {
		cfg.Procfs = make(map[string]any)
	}

	// Apply defaults for all probe types (for config dumps)
	if _, ok := cfg.Pidof["path"]; !ok {
		cfg.Pidof["path"] = "/bin/pidof"
	}
	if _, ok := cfg.Procfs["mount_point"]; !ok {
		cfg.Procfs["mount_point"] = "/proc"
	}
}

// applyCommandsDefaults fills every unset binary location.
func applyCommandsDefaults(cfg *process.Binaries) {
	d := process.DefaultBinaries()

	if cfg.RPCBind == "" {
		cfg.RPCBind = d.RPCBind
	}
	if cfg.RPCInfo == "" {
		cfg.RPCInfo = d.RPCInfo
	}
	if cfg.NFSd == "" {
		cfg.NFSd = d.NFSd
	}
	if cfg.Mountd == "" {
		cfg.Mountd = d.Mountd
	}
	if cfg.ExportFS == "" {
		cfg.ExportFS = d.ExportFS
	}
}

// compact trims entries and drops empty ones, so that an unset legacy
// variable does not turn into an empty directory or client.
func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Registering configuration keys with viper
//   - Testing
//   - Documentation
//
// Exports.Directory stays empty: there is no sensible default for it.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Hosts: hosts.Config{
			AutoDetect: true,
		},
		Supervisor: SupervisorConfig{
			Config: supervisor.DefaultConfig(),
		},
		Metrics: MetricsConfig{
			Port:      9090,
			RateLimit: 10,
			Burst:     20,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
