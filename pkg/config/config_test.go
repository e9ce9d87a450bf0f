package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "hprofviz.yaml")
	content := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Threads.Count)
	assert.False(t, cfg.Index.Compress)
	assert.Equal(t, "default", cfg.Index.CompressionLevel)
	assert.Equal(t, uint64(1), cfg.Graph.MinEdgeCount)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "", cfg.Database.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_CustomValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "hprofviz.yaml")
	content := `
threads:
  count: 8
index:
  compress: true
  compression_level: best
graph:
  min_edge_count: 5
storage:
  type: cos
  bucket: heap-dumps
  region: ap-guangzhou
database:
  driver: postgres
  dsn: "host=localhost user=hprofviz dbname=hprofviz"
log:
  level: warn
  format: json
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Threads.Count)
	assert.True(t, cfg.Index.Compress)
	assert.Equal(t, "best", cfg.Index.CompressionLevel)
	assert.Equal(t, uint64(5), cfg.Graph.MinEdgeCount)
	assert.Equal(t, "cos", cfg.Storage.Type)
	assert.Equal(t, "heap-dumps", cfg.Storage.Bucket)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/hprofviz.yaml")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cfg.Graph.MinEdgeCount)
}

func TestLoadFromReader(t *testing.T) {
	content := []byte(`
threads:
  count: 3
`)
	cfg, err := LoadFromReader("yaml", content)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Threads.Count)
}
