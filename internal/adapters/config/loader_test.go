package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/isorun/internal/adapters/config"
	"go.trai.ch/isorun/internal/adapters/logger"
	"go.trai.ch/isorun/internal/core/domain"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ConfigFileName), []byte(content), 0o644))
}

func TestLoad_MissingFileYieldsNil(t *testing.T) {
	loader := config.NewLoader(logger.New())

	cfg, err := loader.Load(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_ParsesAllFields(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
remote: https://cas.example.com/blobs
cache: /var/cache/isorun
policy:
  max_size: 20GB
  min_free_space: 512MiB
  max_items: 100000
`)

	loader := config.NewLoader(logger.New())
	cfg, err := loader.Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://cas.example.com/blobs", cfg.Remote)
	assert.Equal(t, filepath.FromSlash("/var/cache/isorun"), cfg.CacheDir)
	assert.Equal(t, int64(20_000_000_000), cfg.Policy.MaxSize)
	assert.Equal(t, int64(512*1024*1024), cfg.Policy.MinFreeSpace)
	assert.Equal(t, 100000, cfg.Policy.MaxItems)
}

func TestLoad_WalksUpToParent(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "remote: file:///srv/blobs\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	loader := config.NewLoader(logger.New())
	cfg, err := loader.Load(nested)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "file:///srv/blobs", cfg.Remote)
}

func TestLoad_NearestFileWins(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "remote: outer\n")
	nested := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	writeConfig(t, nested, "remote: inner\n")

	loader := config.NewLoader(logger.New())
	cfg, err := loader.Load(nested)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "inner", cfg.Remote)
}

func TestLoad_RelativeCacheAnchoredAtFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "cache: .isorun-cache\n")
	nested := filepath.Join(root, "deep")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	loader := config.NewLoader(logger.New())
	cfg, err := loader.Load(nested)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, filepath.Join(root, ".isorun-cache"), cfg.CacheDir)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "remote: [unclosed\n")

	loader := config.NewLoader(logger.New())
	_, err := loader.Load(dir)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrConfigParseFailed.Error())
}

func TestLoad_BadSize(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "policy:\n  max_size: twenty\n")

	loader := config.NewLoader(logger.New())
	_, err := loader.Load(dir)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrConfigParseFailed.Error())
}
