package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chTempDir runs the rest of the test from a fresh directory so Load's
// file lookup and directory creation stay isolated.
func chTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "https://api.vk.com/method", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.API.RatePerSecond)
	assert.Equal(t, "data/socialpulse.db", cfg.Store.Path)
	assert.Equal(t, 50, cfg.Pipeline.MinTextLength)
	assert.True(t, cfg.Security.RateLimit.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	chTempDir(t)
	t.Setenv("PULSE_SERVER_PORT", "9090")
	t.Setenv("PULSE_API_TOKEN", "secret-token")
	t.Setenv("PULSE_API_RATE_PER_SECOND", "3")
	t.Setenv("PULSE_PIPELINE_MIN_TEXT_LENGTH", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret-token", cfg.API.Token)
	assert.Equal(t, 3, cfg.API.RatePerSecond)
	assert.Equal(t, 25, cfg.Pipeline.MinTextLength)
}

func TestLoadMergesConfigFile(t *testing.T) {
	chTempDir(t)
	yaml := `
server:
  port: 7070
api:
  token: file-token
store:
  path: custom/pulse.db
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0644))

	// Environment beats file for overlapping keys
	t.Setenv("PULSE_API_TOKEN", "env-token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "env-token", cfg.API.Token)
	assert.Equal(t, "custom/pulse.db", cfg.Store.Path)
}

func TestLoadCreatesDirectories(t *testing.T) {
	dir := chTempDir(t)

	_, err := Load()
	require.NoError(t, err)

	for _, sub := range []string{"data", "logs"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "zero read timeout",
			mutate:  func(c *Config) { c.Server.ReadTimeout = 0 },
			wantErr: "read timeout",
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: "api base url",
		},
		{
			name:    "zero outbound rate",
			mutate:  func(c *Config) { c.API.RatePerSecond = 0 },
			wantErr: "rate per second",
		},
		{
			name:    "empty store path",
			mutate:  func(c *Config) { c.Store.Path = "" },
			wantErr: "store path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	chTempDir(t)
	require.NoError(t, os.WriteFile("config.yaml", []byte("{not yaml"), 0644))

	_, err := Load()
	assert.ErrorContains(t, err, "failed to load config from file")
}
