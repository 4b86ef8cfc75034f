package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_CONFIG_FILE", "STORAGE_DRIVER", "STORAGE_FILE", "FLOW_STORAGE_KEY",
		"REDIS_URL", "DATABASE_URL", "PORT", "CORS_ALLOWED_ORIGINS", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageFile, cfg.Storage.Driver)
	assert.Equal(t, "flow", cfg.Storage.Key)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
server:
  port: 9090
storage:
  driver: redis
redis:
  url: redis://file-host:6379/0
`), 0o644))

	t.Setenv("APP_CONFIG_FILE", path)
	t.Setenv("REDIS_URL", "redis://env-host:6379/1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StorageRedis, cfg.Storage.Driver)
	assert.Equal(t, "redis://env-host:6379/1", cfg.Redis.URL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestJSONConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "app.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"storage":{"driver":"MEMORY","key":"draft"}}`), 0o644))
	t.Setenv("APP_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "draft", cfg.Storage.Key)
}

func TestValidateDriverRequirements(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{name: "default file", mutate: func(*AppConfig) {}},
		{name: "memory", mutate: func(c *AppConfig) { c.Storage.Driver = StorageMemory }},
		{name: "redis without url", mutate: func(c *AppConfig) { c.Storage.Driver = StorageRedis }, wantErr: true},
		{name: "postgres without url", mutate: func(c *AppConfig) { c.Storage.Driver = StoragePostgres }, wantErr: true},
		{name: "postgres", mutate: func(c *AppConfig) {
			c.Storage.Driver = StoragePostgres
			c.Database.URL = "postgres://localhost/flow"
		}},
		{name: "postgres table with sql", mutate: func(c *AppConfig) {
			c.Storage.Driver = StoragePostgres
			c.Database.URL = "postgres://localhost/flow"
			c.Database.Table = "flow_kv; DROP TABLE users"
		}, wantErr: true},
		{name: "file without path", mutate: func(c *AppConfig) { c.Storage.FilePath = "" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *AppConfig) { c.Storage.Driver = "s3" }, wantErr: true},
		{name: "bad port", mutate: func(c *AppConfig) { c.Server.Port = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
