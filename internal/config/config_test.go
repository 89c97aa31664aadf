package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/arbor/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbor.yaml")

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(path, true)
	assert.Error(t, err)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"arbor.yaml": `
server:
  addr: ":9090"
log:
  level: debug
  format: json
engine:
  max_depth: 64
  parallelism: 4
  strict_root: true
cache:
  backend: redis
  ttl: 90s
  redis:
    addr: redis:6379
    db: 2
library:
  dir: models
  loader: loam
`,
	})

	cfg, err := Load(filepath.Join(dir, "arbor.yaml"), true)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 8081, cfg.Server.MCPPort, "unset keys keep their default")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 64, cfg.Engine.MaxDepth)
	assert.Equal(t, 4, cfg.Engine.Parallelism)
	assert.True(t, cfg.Engine.StrictRoot)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.Equal(t, "arbor:result:", cfg.Cache.Redis.Prefix)
	assert.Equal(t, LoaderLoam, cfg.Library.Loader)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"broken.yaml": "server: [",
		"bad.yaml": `
cache:
  backend: memcached
library:
  loader: sql
engine:
  parallelism: -1
`,
	})

	_, err := Load(filepath.Join(dir, "broken.yaml"), true)
	assert.ErrorContains(t, err, "failed to parse")

	_, err = Load(filepath.Join(dir, "bad.yaml"), true)
	require.Error(t, err)
	assert.ErrorContains(t, err, "cache.backend")
	assert.ErrorContains(t, err, "library.loader")
	assert.ErrorContains(t, err, "engine.parallelism")
}
