package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
	assert.Equal(t, "default", cfg.Temporal.Namespace)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 50.0, cfg.Server.RateLimit, 0.001)
	assert.Equal(t, 300, cfg.Engine.TimeoutSecs)
	assert.Equal(t, int64(1), cfg.Engine.ProjectConcurrency)
	assert.Equal(t, 500, cfg.Review.DebounceMillis)
	assert.Equal(t, 256, cfg.Audit.QueueSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, 5*time.Minute, cfg.Engine.Timeout())
	assert.Equal(t, 500*time.Millisecond, cfg.Review.Debounce())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: sqlite
  database_url: qa.db
engine:
  timeout_secs: 60
review:
  debounce_millis: 250
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "qa.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 60, cfg.Engine.TimeoutSecs)
	assert.Equal(t, 250*time.Millisecond, cfg.Review.Debounce())
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromEnv(t *testing.T) {
	chTempDir(t)
	t.Setenv("QA_STORE_DATABASE_URL", "postgres://localhost/qa")
	t.Setenv("QA_ENGINE_TIMEOUT_SECS", "120")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/qa", cfg.Store.DatabaseURL)
	assert.Equal(t, 120, cfg.Engine.TimeoutSecs)
}

func TestValidate(t *testing.T) {
	valid := &Config{
		Store:  StoreConfig{Driver: "postgres", DatabaseURL: "postgres://localhost/qa"},
		Server: ServerConfig{Port: 8080},
		Engine: EngineConfig{TimeoutSecs: 300},
	}
	assert.NoError(t, valid.Validate())

	missingURL := *valid
	missingURL.Store.DatabaseURL = ""
	assert.Error(t, missingURL.Validate())

	badDriver := *valid
	badDriver.Store.Driver = "oracle"
	assert.Error(t, badDriver.Validate())

	badPort := *valid
	badPort.Server.Port = 0
	assert.Error(t, badPort.Validate())

	badTimeout := *valid
	badTimeout.Engine.TimeoutSecs = 0
	assert.Error(t, badTimeout.Validate())
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	require.Error(t, InitLogger(LogConfig{Level: "bogus", Format: "json"}))
}
