package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// isolate points the default config location and .env at empty temp dirs.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{
		"ARTIC_BASE_URL", "ARTIC_USER_AGENT", "REDIS_URL", "REDIS_DB",
		"ARTIC_ROWS", "ARTIC_LOG_LEVEL", "ARTIC_LOG_FILE", "ARTIC_RPM",
	} {
		t.Setenv(key, "")
	}
	return filepath.Join(t.TempDir(), ".env")
}

func TestLoad_Defaults(t *testing.T) {
	envFile := isolate(t)

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "https://api.artic.edu/api/v1", cfg.BaseURL)
	assert.Equal(t, 12, cfg.Rows)
	assert.Equal(t, "artic.log", cfg.Log.File)
}

func TestLoad_TOMLFile(t *testing.T) {
	envFile := isolate(t)
	path := writeFile(t, "config.toml", `
base_url = "http://localhost:9000/api/v1"
rows = 24
requests_per_minute = 30

[redis]
url = "redis://localhost:6379/0"
db = 2

[log]
level = "debug"
pretty = true
`)

	cfg, err := Load(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/api/v1", cfg.BaseURL)
	assert.Equal(t, 24, cfg.Rows)
	assert.Equal(t, 30, cfg.RequestsPerMinute)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent, "unset keys keep defaults")
}

func TestLoad_DefaultPathFromXDG(t *testing.T) {
	envFile := isolate(t)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "artic"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "artic", "config.toml"), []byte("rows = 48\n"), 0o644))

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Rows)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	envFile := isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), envFile)
	assert.Error(t, err)
}

func TestLoad_MalformedTOML(t *testing.T) {
	envFile := isolate(t)
	path := writeFile(t, "config.toml", "rows = [")

	_, err := Load(path, envFile)
	assert.ErrorContains(t, err, "parse config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	envFile := isolate(t)
	path := writeFile(t, "config.toml", "rows = 24\nbase_url = \"http://file.example/api/v1\"\n")

	t.Setenv("ARTIC_ROWS", "48")
	t.Setenv("ARTIC_RPM", "10")
	t.Setenv("ARTIC_LOG_FILE", "/tmp/other.log")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Rows)
	assert.Equal(t, 10, cfg.RequestsPerMinute)
	assert.Equal(t, "/tmp/other.log", cfg.Log.File)
	assert.Equal(t, "http://file.example/api/v1", cfg.BaseURL)
}

func TestLoad_DotEnv(t *testing.T) {
	envFile := isolate(t)
	require.NoError(t, os.WriteFile(envFile, []byte("ARTIC_USER_AGENT=dotenv-agent/1.0\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ARTIC_USER_AGENT") })
	os.Unsetenv("ARTIC_USER_AGENT")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-agent/1.0", cfg.UserAgent)
}

func TestLoad_InvalidEnvInt(t *testing.T) {
	envFile := isolate(t)
	t.Setenv("REDIS_DB", "two")

	_, err := Load("", envFile)
	assert.ErrorContains(t, err, "REDIS_DB")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "relative base url", mutate: func(c *Config) { c.BaseURL = "api/v1" }, wantErr: "base_url"},
		{name: "empty user agent", mutate: func(c *Config) { c.UserAgent = "" }, wantErr: "user_agent"},
		{name: "zero budget", mutate: func(c *Config) { c.RequestsPerMinute = 0 }, wantErr: "requests_per_minute"},
		{name: "rows not offered", mutate: func(c *Config) { c.Rows = 10 }, wantErr: "rows"},
		{name: "negative redis db", mutate: func(c *Config) { c.Redis.DB = -1 }, wantErr: "redis db"},
		{name: "bad redis url", mutate: func(c *Config) { c.Redis.URL = "http://nope" }, wantErr: "redis url"},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRedisOptions(t *testing.T) {
	cfg := Default()

	opts, err := cfg.RedisOptions()
	require.NoError(t, err)
	assert.Nil(t, opts, "no URL disables Redis")

	cfg.Redis.URL = "redis://localhost:6380/1"
	opts, err = cfg.RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, 1, opts.DB)

	cfg.Redis.DB = 5
	opts, err = cfg.RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, 5, opts.DB)
}

func TestClientConfig(t *testing.T) {
	cfg := Default()
	cfg.RequestsPerMinute = 15

	cc := cfg.ClientConfig(nil)
	assert.Equal(t, cfg.BaseURL, cc.BaseURL)
	assert.Equal(t, cfg.UserAgent, cc.UserAgent)
	assert.Equal(t, 15, cc.RequestsPerMinute)
	assert.Nil(t, cc.Redis)
}

func TestLoggingConfig(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"

	assert.Empty(t, cfg.LoggingConfig(false).File)
	lc := cfg.LoggingConfig(true)
	assert.Equal(t, "artic.log", lc.File)
	assert.EqualValues(t, "warn", lc.Level)
}
