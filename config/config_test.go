package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, filepath.Join("aprendizado", "kuro.db"), cfg.SQLitePath())
}

func TestLoadYAMLWithExpansion(t *testing.T) {
	t.Setenv("KURO_TEST_DSN", "postgres://kuro@localhost/kuro")
	p := writeFile(t, "kuro.yaml", `
data_dir: ${KURO_TEST_DIR:-/var/lib/kuro}
storage:
  driver: postgres
  dsn: ${KURO_TEST_DSN}
classifier:
  confidence_threshold: 0.7
web:
  timeout: 3s
  negative_cache_ttl: 1m
log:
  level: debug
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/kuro", cfg.DataDir)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://kuro@localhost/kuro", cfg.Storage.DSN)
	assert.Equal(t, 0.7, cfg.Classifier.ConfidenceThreshold)
	assert.Equal(t, 5, cfg.Classifier.MinRecords)
	assert.Equal(t, 3*time.Second, cfg.Web.Timeout)
	assert.Equal(t, time.Minute, cfg.Web.NegativeCacheTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadReportsUnresolvedVariables(t *testing.T) {
	p := writeFile(t, "kuro.yaml", "storage:\n  dsn: ${KURO_TEST_MISSING_A}\n  database: ${KURO_TEST_MISSING_B}\n")
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KURO_TEST_MISSING_A")
	assert.Contains(t, err.Error(), "KURO_TEST_MISSING_B")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KURO_STORAGE_DRIVER", "sqlite")
	t.Setenv("KURO_WEB_ENABLED", "false")
	t.Setenv("KURO_DISABLE_CLASSIFIER", "1")
	t.Setenv("KURO_LOG_FILE", "/tmp/kuro.log")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.False(t, cfg.Web.Enabled)
	assert.False(t, cfg.Classifier.Enabled)
	assert.Equal(t, "/tmp/kuro.log", cfg.Log.File)

	t.Setenv("KURO_WEB_ENABLED", "talvez")
	_, err = Load("")
	assert.ErrorContains(t, err, "KURO_WEB_ENABLED")
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = DriverMongo
	cfg.Classifier.ConfidenceThreshold = 1.5
	cfg.Log.Level = "verbose"

	err := Validate(cfg)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "ConfidenceThreshold")
	assert.Contains(t, msg, "Level")
	assert.Contains(t, msg, "storage.dsn is required for mongodb")
	assert.Contains(t, msg, "storage.database is required for mongodb")

	cfg = Default()
	cfg.Storage.Driver = "redis"
	assert.ErrorContains(t, Validate(cfg), "Driver")
}

func TestLoadDotEnv(t *testing.T) {
	p := writeFile(t, ".env", "KURO_TEST_DOTENV=carregado\n")
	t.Setenv("KURO_TEST_DOTENV_KEEP", "original")
	require.NoError(t, os.WriteFile(p, []byte("KURO_TEST_DOTENV=carregado\nKURO_TEST_DOTENV_KEEP=novo\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("KURO_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(p, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "carregado", os.Getenv("KURO_TEST_DOTENV"))
	assert.Equal(t, "original", os.Getenv("KURO_TEST_DOTENV_KEEP"))
}
