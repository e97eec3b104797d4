package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepcity/proxygen/internal/bytesize"
)

// ============================================================================
// Default Tests
// ============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 64*bytesize.KiB, cfg.Session.IngressBufferLimit)
	assert.Equal(t, 64*bytesize.KiB, cfg.Session.EgressBufferLimit)
	assert.Equal(t, 4*bytesize.KiB, cfg.Session.EgressBodySizeLimit)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Telemetry.Enabled)

	require.NoError(t, Validate(cfg), "defaults must validate")
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Logging.Level = "debug"
	cfg.Session.IngressBufferLimit = 128 * bytesize.KiB

	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "DEBUG", cfg.Logging.Level, "level is normalized to upper case")
	assert.Equal(t, 128*bytesize.KiB, cfg.Session.IngressBufferLimit)
	assert.Equal(t, 4*bytesize.KiB, cfg.Session.EgressBodySizeLimit)
}

// ============================================================================
// Load Tests
// ============================================================================

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("MissingFileFallsBackToDefaults", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("FileValuesOverrideDefaults", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 8443
  shutdown_timeout: 5s
logging:
  level: DEBUG
  format: json
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 8443, cfg.Server.Port)
		assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, "DEBUG", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.Equal(t, 64*bytesize.KiB, cfg.Session.IngressBufferLimit, "unset sections keep defaults")
	})

	t.Run("HumanReadableByteSizes", func(t *testing.T) {
		path := writeConfig(t, `
session:
  ingress_buffer_limit: 128Ki
  egress_buffer_limit: 1Mi
  egress_body_size_limit: 8192
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 128*bytesize.KiB, cfg.Session.IngressBufferLimit)
		assert.Equal(t, bytesize.MiB, cfg.Session.EgressBufferLimit)
		assert.Equal(t, bytesize.ByteSize(8192), cfg.Session.EgressBodySizeLimit)
	})

	t.Run("InvalidLogLevelFailsValidation", func(t *testing.T) {
		path := writeConfig(t, `
logging:
  level: LOUD
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("InvalidPortFailsValidation", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 99999
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("MalformedYAMLFails", func(t *testing.T) {
		path := writeConfig(t, "server: [not a map")
		_, err := Load(path)
		assert.Error(t, err)
	})
}

// ============================================================================
// Sample File Tests
// ============================================================================

func TestWriteSample(t *testing.T) {
	t.Run("WritesLoadableConfig", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", "config.yaml")
		require.NoError(t, WriteSample(path, false))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("RefusesToOverwriteWithoutForce", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, WriteSample(path, false))

		assert.Error(t, WriteSample(path, false))
		assert.NoError(t, WriteSample(path, true))
	})
}
