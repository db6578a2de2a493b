package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camelspeed/couchnode/pkg/errors"
)

func validConfig() *ClientConfig {
	cfg := DefaultConfig()
	cfg.Endpoint = "http://127.0.0.1:8091"
	cfg.Username = "Administrator"
	cfg.Password = "password"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 75*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 0, cfg.RetryCount)
	assert.Equal(t, time.Second, cfg.RetryWaitTime)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestClientConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestClientConfig_Validate_MissingEndpoint(t *testing.T) {
	cfg := validConfig()
	cfg.Endpoint = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsManagementError(err))
}

func TestClientConfig_Validate_BadEndpoint(t *testing.T) {
	cfg := validConfig()
	cfg.Endpoint = "not a url"
	assert.Error(t, cfg.Validate())
}

func TestClientConfig_Validate_MissingCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Password = ""
	assert.Error(t, cfg.Validate())
}

func TestClientConfig_Validate_BadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())
}

func TestClientConfig_Validate_ZeroTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.RequestTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yaml")
	content := `endpoint: http://127.0.0.1:8091
username: Administrator
password: password
request_timeout: 30s
retry_count: 2
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8091", cfg.Endpoint)
	assert.Equal(t, "Administrator", cfg.Username)
	assert.Equal(t, "password", cfg.Password)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.RetryCount)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yaml")
	content := `endpoint: http://127.0.0.1:8091
username: Administrator
password: password
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 75*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yaml")
	// endpoint present but credentials missing
	require.NoError(t, os.WriteFile(path, []byte("endpoint: http://127.0.0.1:8091\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("COUCHNODE_ENDPOINT", "http://10.0.0.1:8091")
	t.Setenv("COUCHNODE_USERNAME", "admin")
	t.Setenv("COUCHNODE_PASSWORD", "secret")
	t.Setenv("COUCHNODE_LOG_LEVEL", "warn")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.1:8091", cfg.Endpoint)
	assert.Equal(t, "admin", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("COUCHNODE_ENDPOINT", "http://10.0.0.1:8091")
	t.Setenv("COUCHNODE_USERNAME", "")
	t.Setenv("COUCHNODE_PASSWORD", "")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestToYAMLFile(t *testing.T) {
	cfg := validConfig()
	path := filepath.Join(t.TempDir(), "out", "client.yaml")

	require.NoError(t, cfg.ToYAMLFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "endpoint: http://127.0.0.1:8091")
	// credentials never written out
	assert.NotContains(t, string(data), "password")
}
