package main

import (
	"flag"
	"testing"

	"github.com/paulissoft/nfs-server-alpine/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv(config.ConfigFileEnv, "")

	opts, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Empty(t, opts.configPath)
	assert.False(t, opts.printConfig)
}

func TestParseFlags_ConfigFromEnvironment(t *testing.T) {
	t.Setenv(config.ConfigFileEnv, "/etc/nfs/config.yaml")

	opts, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "/etc/nfs/config.yaml", opts.configPath)
}

func TestParseFlags_Explicit(t *testing.T) {
	t.Setenv(config.ConfigFileEnv, "/etc/nfs/config.yaml")

	opts, err := parseFlags([]string{"-config", "/tmp/other.toml", "-print-config"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.toml", opts.configPath)
	assert.True(t, opts.printConfig)
}

func TestParseFlags_Rejects(t *testing.T) {
	_, err := parseFlags([]string{"-unknown"})
	require.Error(t, err)

	_, err = parseFlags([]string{"serve"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected arguments")

	_, err = parseFlags([]string{"-h"})
	assert.ErrorIs(t, err, flag.ErrHelp)
}
