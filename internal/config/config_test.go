package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"KAIZEN_DB", "KAIZEN_JWT_SECRET", "KAIZEN_STORAGE_DIR", "KAIZEN_ADDR"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10.0, cfg.Editor.GridSize)
	assert.Equal(t, time.Second, cfg.AutosaveWindow())
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 16*time.Millisecond, cfg.FrameInterval())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/from-file.db
server:
  addr: ":9000"
editor:
  autosave_window: 250ms
  seed_example: true
`), 0644))
	t.Setenv("KAIZEN_ADDR", "127.0.0.1:7000")
	t.Setenv("KAIZEN_JWT_SECRET", "0123456789abcdef")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/from-file.db", cfg.Database.Path)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr, "env beats file")
	assert.Equal(t, "0123456789abcdef", cfg.Auth.JWTSecret)
	assert.Equal(t, 250*time.Millisecond, cfg.AutosaveWindow())
	assert.True(t, cfg.Editor.SeedExample)
	assert.Equal(t, "24h", cfg.Auth.SessionTTL, "unset keys keep their defaults")
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Editor.GridSize = 20
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20.0, loaded.Editor.GridSize)
	assert.Equal(t, []string{"http://localhost:5173"}, loaded.Server.AllowedOrigins)
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Editor.AutosaveWindow = "soon"
	cfg.Auth.SessionTTL = "-1h"
	assert.Equal(t, time.Second, cfg.AutosaveWindow())
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())
	cfg.Auth.JWTSecret = "short"
	assert.Error(t, cfg.Validate())
	cfg.Auth.JWTSecret = "a-long-enough-secret"
	assert.NoError(t, cfg.Validate())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x.db"), expandHome("~/x.db"))
	assert.Equal(t, "/abs/x.db", expandHome("/abs/x.db"))
}

func TestExportPath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "map.png", cfg.ExportPath("map.png"))

	dir := t.TempDir()
	cfg.Editor.ExportDir = filepath.Join(dir, "out")
	assert.Equal(t, filepath.Join(dir, "out", "map.png"), cfg.ExportPath("map.png"))
	assert.DirExists(t, filepath.Join(dir, "out"))
}
