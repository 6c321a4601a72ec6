package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Dump renders the effective configuration as YAML.
func Dump(cfg *Config) (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// MarshalYAML writes the timings as duration strings ("2s") so that a dump
// can be fed back to Load.
func (c SupervisorConfig) MarshalYAML() (any, error) {
	return struct {
		RetryInterval     string      `yaml:"retry_interval"`
		PollInterval      string      `yaml:"poll_interval"`
		ReadyTimeout      string      `yaml:"ready_timeout"`
		ReadyPollInterval string      `yaml:"ready_poll_interval"`
		ShutdownTimeout   string      `yaml:"shutdown_timeout"`
		Probe             ProbeConfig `yaml:"probe"`
	}{
		RetryInterval:     c.RetryInterval.String(),
		PollInterval:      c.PollInterval.String(),
		ReadyTimeout:      c.ReadyTimeout.String(),
		ReadyPollInterval: c.ReadyPollInterval.String(),
		ShutdownTimeout:   c.ShutdownTimeout.String(),
		Probe:             c.Probe,
	}, nil
}
