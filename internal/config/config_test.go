package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsweep/netsweep/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "file", cfg.Targets.Source)
	assert.Equal(t, DefaultTargetFile, cfg.Targets.File)
	assert.Equal(t, DefaultBatchSize, cfg.Scanning.BatchSize)
	assert.Equal(t, DefaultConcurrency, cfg.Scanning.MaxConcurrency)
	assert.Equal(t, DefaultInterval, cfg.Scanning.Interval)
	assert.False(t, cfg.GeoIP.Enabled)
	assert.Equal(t, DefaultCacheTTL, cfg.GeoIP.CacheTTL)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file values layer over defaults", func(t *testing.T) {
		path := writeConfig(t, `
targets:
  source: static
  static:
    - 10.0.0.1
scanning:
  batch_size: 8
  interval: 30m
geoip:
  enabled: true
  token: secret
server:
  port: 9100
`)

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "static", cfg.Targets.Source)
		assert.Equal(t, []string{"10.0.0.1"}, cfg.Targets.Static)
		assert.Equal(t, 8, cfg.Scanning.BatchSize)
		assert.Equal(t, 30*time.Minute, cfg.Scanning.Interval)
		assert.Equal(t, DefaultConcurrency, cfg.Scanning.MaxConcurrency)
		assert.True(t, cfg.GeoIP.Enabled)
		assert.Equal(t, "secret", cfg.GeoIP.Token)
		assert.Equal(t, 9100, cfg.Server.Port)
	})

	t.Run("malformed YAML rejected", func(t *testing.T) {
		path := writeConfig(t, "targets: [broken")

		_, err := Load(path)

		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeConfiguration))
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := writeConfig(t, `
scanning:
  batch_size: 0
`)

		_, err := Load(path)

		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeValidation))
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		code    errors.ErrorCode
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(_ *Config) {},
		},
		{
			name: "unknown source",
			mutate: func(c *Config) {
				c.Targets.Source = "gcp"
			},
			code:    errors.CodeValidation,
			wantErr: true,
		},
		{
			name: "file source requires path",
			mutate: func(c *Config) {
				c.Targets.File = ""
			},
			code:    errors.CodeConfiguration,
			wantErr: true,
		},
		{
			name: "static source requires targets",
			mutate: func(c *Config) {
				c.Targets.Source = "static"
			},
			code:    errors.CodeConfiguration,
			wantErr: true,
		},
		{
			name: "aws source requires credentials",
			mutate: func(c *Config) {
				c.Targets.Source = "aws"
			},
			code:    errors.CodeConfiguration,
			wantErr: true,
		},
		{
			name: "azure source requires credentials",
			mutate: func(c *Config) {
				c.Targets.Source = "azure"
			},
			code:    errors.CodeConfiguration,
			wantErr: true,
		},
		{
			name: "port out of range",
			mutate: func(c *Config) {
				c.Server.Port = 70000
			},
			code:    errors.CodeValidation,
			wantErr: true,
		},
		{
			name: "unsupported geoip provider when enabled",
			mutate: func(c *Config) {
				c.GeoIP.Enabled = true
				c.GeoIP.Provider = "maxmind"
			},
			code:    errors.CodeValidation,
			wantErr: true,
		},
		{
			name: "unsupported provider ignored while disabled",
			mutate: func(c *Config) {
				c.GeoIP.Provider = "maxmind"
			},
		},
		{
			name: "bad log level",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
			},
			code:    errors.CodeValidation,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code))
		})
	}
}

func TestListenAddress(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":9808", cfg.ListenAddress())

	cfg.Server.ListenAddr = "127.0.0.1"
	cfg.Server.Port = 9100
	assert.Equal(t, "127.0.0.1:9100", cfg.ListenAddress())
}
