package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
nibo:
  api_key: yaml-key
  user_id: user-1
  timeout_seconds: 30
reconcile:
  threshold: 70
  allow_file_reuse: true
  lookback_days: 14
  max_candidates: 25
storage:
  database_path: test.db
observability:
  logging:
    level: debug
    format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml-key", cfg.Nibo.APIKey)
	assert.Equal(t, "user-1", cfg.Nibo.UserID)
	assert.Equal(t, 30, cfg.Nibo.TimeoutSeconds)
	assert.Equal(t, 70, cfg.Reconcile.Threshold)
	assert.True(t, cfg.Reconcile.AllowFileReuse)
	assert.Equal(t, 14, cfg.Reconcile.LookbackDays)
	assert.Equal(t, 25, cfg.Reconcile.MaxCandidates)
	assert.Equal(t, "test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)

	// Omitted values fall back to defaults.
	assert.Equal(t, "https://api.nibo.com.br/empresas/v1", cfg.Nibo.BaseURL)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_NIBO_KEY", "expanded-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "nibo:\n  api_key: ${TEST_NIBO_KEY}\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-key", cfg.Nibo.APIKey)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RECONCILE_DB_PATH", "env.db")
	t.Setenv("NIBO_API_KEY", "env-key")
	t.Setenv("NIBO_USER_ID", "env-user")
	t.Setenv("RECONCILE_THRESHOLD", "65")

	cfg := LoadFromEnv()

	assert.Equal(t, "env.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "env-key", cfg.Nibo.APIKey)
	assert.Equal(t, "env-user", cfg.Nibo.UserID)
	assert.Equal(t, 65, cfg.Reconcile.Threshold)
	assert.True(t, cfg.Reconcile.AllowFileReuse)
	assert.Equal(t, 60, cfg.Nibo.TimeoutSeconds)
}

func TestLoadOrEnvFallsBack(t *testing.T) {
	t.Setenv("NIBO_API_KEY", "fallback-key")

	cfg := LoadOrEnvWithPath(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NotNil(t, cfg)
	assert.Equal(t, "fallback-key", cfg.Nibo.APIKey)
}

func TestGetAPIKey(t *testing.T) {
	cfg := &Config{}

	assert.Equal(t, "from-config", cfg.GetAPIKey("from-config", "NIBO_API_KEY"))

	t.Setenv("NIBO_API_KEY_ALT", "from-env")
	assert.Equal(t, "from-env", cfg.GetAPIKey("", "NIBO_API_KEY_MISSING", "NIBO_API_KEY_ALT"))

	assert.Equal(t, "", cfg.GetAPIKey("", "NIBO_API_KEY_MISSING"))
}
