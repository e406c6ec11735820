package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ownedstat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "allocator: pool\nelements: 64\narrays: 3\nformat: json\n")

	cfg := defaultConfig()
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	cfg.bindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--arrays", "7"}))

	got, err := loadConfig(path, cfg, fs)
	require.NoError(t, err)
	assert.Equal(t, "pool", got.Allocator)
	assert.Equal(t, 64, got.Elements)
	assert.Equal(t, 7, got.Arrays)
	assert.Equal(t, "json", got.Format)
	assert.Equal(t, "info", got.LogLevel)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cfg := defaultConfig()
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	cfg.bindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--allocator", "arena"}))

	got, err := loadConfig("", cfg, fs)
	require.NoError(t, err)
	assert.Equal(t, "arena", got.Allocator)
	assert.Equal(t, 1024, got.Elements)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown allocator", "allocator: slab\n"},
		{"unknown format", "format: xml\n"},
		{"negative elements", "elements: -1\n"},
		{"bad log level", "log_level: loud\n"},
		{"malformed yaml", "allocator: [heap\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
			_, err := loadConfig(writeConfig(t, tt.body), defaultConfig(), fs)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), defaultConfig(), fs)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
