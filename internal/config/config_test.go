package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, ".blockoli/blockoli.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 10000, cfg.Embedding.CacheSize)
	assert.Equal(t, 5, cfg.Search.DefaultK)
	assert.Equal(t, 100, cfg.Search.MaxK)
	assert.Equal(t, 400, cfg.Watch.Debounce)
	assert.False(t, cfg.Debug)
	assert.True(t, cfg.Indexing.IncludeTestsOrDefault())
	assert.False(t, cfg.Indexing.IncludeVendor)
	assert.True(t, cfg.Watch.RecursiveOrDefault())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
debug: true
server:
  host: 0.0.0.0
  port: 9090
storage:
  backend: memory
embedding:
  provider: local
  cache_size: 500
search:
  default_k: 3
indexing:
  include_tests: false
  workers: 4
watch:
  enabled: true
  debounce_ms: 100
  recursive: false
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 500, cfg.Embedding.CacheSize)
	assert.Equal(t, 3, cfg.Search.DefaultK)
	assert.Equal(t, 100, cfg.Search.MaxK, "unset fields still get defaults")
	assert.False(t, cfg.Indexing.IncludeTestsOrDefault())
	assert.Equal(t, 4, cfg.Indexing.Workers)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 100, cfg.Watch.Debounce)
	assert.False(t, cfg.Watch.RecursiveOrDefault())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: a: map"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadExpandsRelativeDatabasePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  database_path: ./data/blocks.db\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "blocks.db"), cfg.Storage.DatabasePath)
}

func TestLoadKeepsAbsoluteDatabasePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  database_path: /var/lib/blockoli/blocks.db\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/blockoli/blocks.db", cfg.Storage.DatabasePath)
}
