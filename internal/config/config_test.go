package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"shopfloor-estimator/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory so no stray .env is loaded.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ENV_FILE", "")
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 256, cfg.Cache.Size)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, db.DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, "3306", cfg.Database.Port)
}

func TestLoadYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "estimator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: postgres
  host: db.internal
server:
  addr: ":9090"
  debug: true
cache:
  size: 0
  ttl: 2m
logging:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, db.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, 0, cfg.Cache.Size, "explicit zero disables the cache")
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("ESTIMATOR_ADDR", ":7070")
	t.Setenv("ESTIMATOR_CACHE_SIZE", "16")
	t.Setenv("ESTIMATOR_CACHE_TTL", "5s")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DB_HOST", "mysql.local")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 16, cfg.Cache.Size)
	assert.Equal(t, 5*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "mysql.local", cfg.Database.Host)
}

func TestLoadEnvFile(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(envFile, []byte("ESTIMATOR_ADDR=:6060\n"), 0o600))
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("ESTIMATOR_ADDR", "")
	require.NoError(t, os.Unsetenv("ESTIMATOR_ADDR"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.Server.Addr)
}

func TestLoadRejectsBadValues(t *testing.T) {
	isolate(t)
	t.Setenv("ESTIMATOR_CACHE_TTL", "soon")

	_, err := Load("")
	assert.ErrorContains(t, err, "ESTIMATOR_CACHE_TTL")
}

func TestLoadMissingFile(t *testing.T) {
	isolate(t)

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}
