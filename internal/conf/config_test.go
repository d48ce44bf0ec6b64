package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PENALTYKICK_DATADIR", dir)
	t.Chdir(dir)

	s, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, dir, s.DataDir)
	assert.Equal(t, ":8080", s.Server.Addr)
	assert.Equal(t, filepath.Join(dir, "penaltykick.db"), s.Database.Path)
	assert.Equal(t, "seq-v1", s.Features.Schema)
	assert.Equal(t, 30.0, s.Frames.FPS)
	assert.Equal(t, 10*time.Minute, s.Cache.TTL)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PENALTYKICK_DATADIR", dir)

	cfg := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
debug: true
server:
  addr: ":9090"
features:
  schema: seq-v2
cache:
  ttl: 30s
`), 0o644))

	t.Setenv("PENALTYKICK_MODEL_THREADS", "4")

	s, err := Load(viper.New(), cfg)
	require.NoError(t, err)

	assert.Equal(t, ":9090", s.Server.Addr)
	assert.Equal(t, "seq-v2", s.Features.Schema)
	assert.Equal(t, 30*time.Second, s.Cache.TTL)
	assert.Equal(t, 4, s.Model.Threads)
	assert.Equal(t, "debug", s.Log.Level)
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("server: [unterminated"), 0o644))

	_, err := Load(viper.New(), cfg)
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("PENALTYKICK_TEST_VALUE=from-dotenv\n"), 0o644))
	t.Setenv("PENALTYKICK_TEST_VALUE", "")
	os.Unsetenv("PENALTYKICK_TEST_VALUE")

	require.NoError(t, LoadEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("PENALTYKICK_TEST_VALUE"))
}
