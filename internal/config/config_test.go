// ABOUTME: Tests for configuration loading and validation.
// ABOUTME: Covers defaults, env expansion, duration parsing, and errors.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "localhost:8080", cfg.Server.HTTPAddr)
	assert.False(t, cfg.Auth.RequireAuth)
	assert.Equal(t, []string{"todo"}, cfg.Auth.DefaultCaps)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "0.0.0.0:9090"
  shutdown_timeout: 10s
auth:
  require_auth: true
  jwt_secret: "config-test-secret-that-is-32-byte"
logging:
  level: debug
  format: json
metrics:
  enabled: true
  path: /metrics
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Auth.RequireAuth)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TODO_MCP_TEST_SECRET", "env-provided-secret-that-is-32-byt")

	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
auth:
  require_auth: true
  jwt_secret: "${TODO_MCP_TEST_SECRET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-provided-secret-that-is-32-byt", cfg.Auth.JWTSecret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
  shutdown_timeout: soon
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "shutdown_timeout")
}

func TestValidate_AuthWithoutSecret(t *testing.T) {
	cfg := Default()
	cfg.Auth.RequireAuth = true
	assert.ErrorContains(t, cfg.Validate(), "jwt_secret")
}

func TestValidate_MissingAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.HTTPAddr = ""
	assert.ErrorContains(t, cfg.Validate(), "http_addr")
}
