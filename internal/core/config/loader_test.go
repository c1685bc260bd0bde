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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_GRAPHQL_URL", "https://api.example.com/graphql")
	t.Setenv("TEST_API_TOKEN", "secret")

	path := writeConfig(t, `
endpoint:
  url: ${TEST_GRAPHQL_URL}
  headers:
    authorization: Bearer ${TEST_API_TOKEN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/graphql", cfg.Endpoint.URL)
	assert.Equal(t, "Bearer secret", cfg.Endpoint.Headers["authorization"])
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "endpoint:\n  url: http://localhost:4000/graphql\n"))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Endpoint.Timeout)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, 2.0, cfg.Retry.Exponent)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 8080, cfg.Probe.Port)
	assert.Equal(t, 30*time.Second, cfg.Probe.Interval)
	assert.NotEmpty(t, cfg.Probe.Query)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
endpoint:
  url: http://localhost:4000/graphql
  timeout: 5s
retry:
  max_attempts: 0
  initial_delay: 1s
  exponent: 3
  max_delay: 10s
probe:
  port: 9090
  interval: 1m
`))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Endpoint.Timeout)
	assert.Equal(t, 0, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, 3.0, cfg.Retry.Exponent)
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 9090, cfg.Probe.Port)
	assert.Equal(t, time.Minute, cfg.Probe.Interval)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing endpoint", "logging:\n  level: debug\n"},
		{"relative endpoint", "endpoint:\n  url: /graphql\n"},
		{"negative retries", "endpoint:\n  url: http://x/graphql\nretry:\n  max_attempts: -1\n"},
		{"malformed yaml", "endpoint: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse(nil, func(c *AppConfig) {
		c.Endpoint.URL = "http://localhost:4000/graphql"
		c.Logging.Level = "debug"
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000/graphql", cfg.Endpoint.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 30*time.Second, cfg.Endpoint.Timeout)
}
