package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
fetch:
  out_dir: /data/suno
  max_retries: 3
  sleep: 2s
sync:
  poll_interval: 30s
logging:
  level: debug
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/suno", config.Fetch.OutDir)
	assert.Equal(t, 3, config.Fetch.MaxRetries)
	assert.Equal(t, 2*time.Second, config.Fetch.Sleep)
	assert.Equal(t, 30*time.Second, config.Sync.PollInterval)
	assert.Equal(t, "debug", config.Logging.Level)

	// Untouched keys keep their defaults.
	assert.Equal(t, "https://studio-api.prod.suno.com/api/feed/v2", config.Feed.BaseURL)
	assert.Equal(t, 5, config.Fetch.HeadSyncPages)
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 99999
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}

func TestLoadConfig_NegativeRetries(t *testing.T) {
	path := writeConfigFile(t, `
fetch:
  max_retries: -1
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
}

func TestLoadConfig_ExpandsHomeInPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path := writeConfigFile(t, `
fetch:
  out_dir: ~/suno
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "suno"), config.Fetch.OutDir)
}

func TestResolvedPaths(t *testing.T) {
	path := writeConfigFile(t, `
fetch:
  out_dir: /data/suno
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/data/suno", "api_cache"), config.Fetch.ResolvedCacheDir())
	assert.Equal(t, filepath.Join("/data/suno", "suno-sync.db"), config.Sync.ResolvedDatabasePath(config.Fetch.OutDir))
}

func TestSaveConfig_CreatesNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	original, err := LoadConfig(writeConfigFile(t, `
fetch:
  out_dir: /data/suno
`))
	require.NoError(t, err)

	require.NoError(t, SaveConfig(original, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}
