package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.ItemDelay)
	assert.InDelta(t, 0.6, cfg.DedupeThreshold, 1e-9)
	assert.Empty(t, cfg.DBPath)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `batch_size: 25
item_delay: 500ms
dedupe_threshold: 0.7
redis_addr: localhost:6379
log_json: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "curator.yaml"), []byte(content), 0o644))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.ItemDelay)
	assert.InDelta(t, 0.7, cfg.DedupeThreshold, 1e-9)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.LogJSON)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "curator.yaml"), []byte("batch_size: 25\n"), 0o644))
	t.Chdir(dir)
	t.Setenv("CURATOR_BATCH_SIZE", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.BatchSize)
}

func TestLoadEnvWithoutConfigFile(t *testing.T) {
	// Keys never mentioned in any curator.yaml must still honor their
	// CURATOR_* environment variables.
	t.Chdir(t.TempDir())
	t.Setenv("CURATOR_REDIS_ADDR", "localhost:6379")
	t.Setenv("CURATOR_DB_PATH", "/tmp/corpus.db")
	t.Setenv("CURATOR_WEIGHTS_PATH", "weights.yaml")
	t.Setenv("CURATOR_LOG_FILE", "curator.log")
	t.Setenv("CURATOR_REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "/tmp/corpus.db", cfg.DBPath)
	assert.Equal(t, "weights.yaml", cfg.WeightsPath)
	assert.Equal(t, "curator.log", cfg.LogFile)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("non-positive batch size", func(t *testing.T) {
		t.Setenv("CURATOR_BATCH_SIZE", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("threshold out of range", func(t *testing.T) {
		t.Setenv("CURATOR_BATCH_SIZE", "10")
		t.Setenv("CURATOR_DEDUPE_THRESHOLD", "1.5")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "curator.yaml"), []byte("batch_size: ["), 0o644))
		t.Chdir(dir)
		_, err := Load()
		assert.Error(t, err)
	})
}
