package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/paulissoft/nfs-server-alpine/pkg/exports"
	"github.com/paulissoft/nfs-server-alpine/pkg/hosts"
	"github.com/paulissoft/nfs-server-alpine/pkg/process"
	"github.com/paulissoft/nfs-server-alpine/pkg/supervisor"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "NFS"

// ConfigFileEnv names the environment variable holding the config file path.
const ConfigFileEnv = "NFS_CONFIG_FILE"

// ErrConfigFileNotFound is returned when an explicitly named config file is missing.
var ErrConfigFileNotFound = errors.New("config file not found")

// Config represents the complete supervisor configuration.
//
// This structure captures all configurable aspects of the container entrypoint:
//   - Logging configuration
//   - The export table and its location
//   - TCP wrapper access control files
//   - Supervisor timings and the process probe
//   - Locations of the nfs-utils binaries
//   - The optional metrics endpoint
//
// Configuration sources (in order of precedence):
//  1. Environment variables (NFS_*, plus the legacy SHARED_DIRECTORY family)
//  2. Configuration file (YAML or TOML), named by NFS_CONFIG_FILE
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Exports describes the export table
	Exports exports.Config `mapstructure:"exports" yaml:"exports"`

	// Hosts describes hosts.allow and hosts.deny
	Hosts hosts.Config `mapstructure:"hosts" yaml:"hosts"`

	// Supervisor contains the lifecycle timings and the process probe
	Supervisor SupervisorConfig `mapstructure:"supervisor" yaml:"supervisor"`

	// Commands locates the NFS server stack executables
	Commands process.Binaries `mapstructure:"commands" yaml:"commands"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// SupervisorConfig holds the supervisor timings and the process probe selection.
type SupervisorConfig struct {
	supervisor.Config `mapstructure:",squash" yaml:",inline"`

	// Probe selects how daemons are found in the process table
	Probe ProbeConfig `mapstructure:"probe" yaml:"probe"`
}

// ProbeConfig specifies the process probe.
//
// The Type field determines which probe implementation is used.
// Only the corresponding type-specific configuration section is used.
type ProbeConfig struct {
	// Type specifies which probe implementation to use
	// Valid values: pidof, procfs
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=pidof procfs"`

	// Pidof contains pidof-specific configuration
	// Only used when Type = "pidof"
	Pidof map[string]any `mapstructure:"pidof" yaml:"pidof"`

	// Procfs contains procfs-specific configuration
	// Only used when Type = "procfs"
	Procfs map[string]any `mapstructure:"procfs" yaml:"procfs"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled starts the HTTP server exposing /metrics and /healthz
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the TCP port of the metrics server
	Port int `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`

	// RateLimit caps metrics server requests per second (0 = unlimited)
	RateLimit uint `mapstructure:"rate_limit" yaml:"rate_limit"`

	// Burst is the rate limiter bucket size (0 = same as RateLimit)
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// legacyEnv maps configuration keys to the variables understood by the
// shell-based image.
var legacyEnv = map[string]string{
	"exports.directory":         "SHARED_DIRECTORY",
	"exports.extra_directories": "SHARED_DIRECTORY_2",
	"exports.permitted":         "PERMITTED",
}

// legacyFlags are the shell-based image's switches: any non-empty value
// turns them on, whatever it says.
var legacyFlags = map[string]string{
	"exports.read_only": "READ_ONLY",
	"exports.sync":      "SYNC",
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (NFS_*, then the legacy names)
//  2. Configuration file
//  3. Default values
//
// An empty configPath means no configuration file. A configPath naming a
// missing file is an error.
func Load(configPath string) (*Config, error) {
	return load(afero.NewOsFs(), configPath)
}

// LoadFromEnv loads configuration using the file named by NFS_CONFIG_FILE, if any.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(ConfigFileEnv))
}

func load(fs afero.Fs, configPath string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)

	setupViper(v)

	if err := readConfigFile(v, fs, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable support and defaults.
//
// Environment variables use the NFS_ prefix and underscores, for example
// NFS_SUPERVISOR_RETRY_INTERVAL=5s. Every key is registered through a
// default so that AutomaticEnv sees it during Unmarshal.
func setupViper(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setViperDefaults(v)

	for key, legacy := range legacyEnv {
		// The first name found wins, so NFS_* overrides the legacy variable.
		_ = v.BindEnv(key, envKey(key), legacy)
	}

	for key, legacy := range legacyFlags {
		if os.Getenv(envKey(key)) != "" {
			continue
		}
		if os.Getenv(legacy) != "" {
			v.Set(key, true)
		}
	}
}

// envKey returns the NFS_ prefixed variable for a configuration key.
func envKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// setViperDefaults registers every key with its default value.
func setViperDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)

	v.SetDefault("exports.file", d.Exports.File)
	v.SetDefault("exports.directory", d.Exports.Directory)
	v.SetDefault("exports.extra_directories", []string{})
	v.SetDefault("exports.subdirectories", d.Exports.Subdirectories)
	v.SetDefault("exports.permitted", d.Exports.Permitted)
	v.SetDefault("exports.read_only", d.Exports.ReadOnly)
	v.SetDefault("exports.sync", d.Exports.Sync)
	v.SetDefault("exports.options", d.Exports.Options)

	v.SetDefault("hosts.allow_file", d.Hosts.AllowFile)
	v.SetDefault("hosts.deny_file", d.Hosts.DenyFile)
	v.SetDefault("hosts.allowed", []string{})
	v.SetDefault("hosts.auto_detect", d.Hosts.AutoDetect)
	v.SetDefault("hosts.services", d.Hosts.Services)

	v.SetDefault("supervisor.retry_interval", d.Supervisor.RetryInterval)
	v.SetDefault("supervisor.poll_interval", d.Supervisor.PollInterval)
	v.SetDefault("supervisor.ready_timeout", d.Supervisor.ReadyTimeout)
	v.SetDefault("supervisor.ready_poll_interval", d.Supervisor.ReadyPollInterval)
	v.SetDefault("supervisor.shutdown_timeout", d.Supervisor.ShutdownTimeout)
	v.SetDefault("supervisor.probe.type", d.Supervisor.Probe.Type)
	v.SetDefault("supervisor.probe.pidof.path", d.Supervisor.Probe.Pidof["path"])
	v.SetDefault("supervisor.probe.procfs.mount_point", d.Supervisor.Probe.Procfs["mount_point"])

	v.SetDefault("commands.rpcbind", d.Commands.RPCBind)
	v.SetDefault("commands.rpcinfo", d.Commands.RPCInfo)
	v.SetDefault("commands.nfsd", d.Commands.NFSd)
	v.SetDefault("commands.mountd", d.Commands.Mountd)
	v.SetDefault("commands.exportfs", d.Commands.ExportFS)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.port", d.Metrics.Port)
	v.SetDefault("metrics.rate_limit", d.Metrics.RateLimit)
	v.SetDefault("metrics.burst", d.Metrics.Burst)
}

// readConfigFile reads the configuration file if one is named.
func readConfigFile(v *viper.Viper, fs afero.Fs, configPath string) error {
	if configPath == "" {
		return nil
	}

	if _, err := fs.Stat(configPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// durationOrDefault returns d, or def when d is not positive.
func durationOrDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
