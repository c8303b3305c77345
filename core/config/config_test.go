package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 1000, cfg.Rebuild.Width)
	assert.Equal(t, 1000, cfg.Rebuild.Height)
	assert.Equal(t, "stretch", cfg.Rebuild.Fit)
	assert.Equal(t, "__", cfg.Rebuild.PrefixSeparator)
	assert.Equal(t, []string{"none"}, cfg.Rebuild.SkipValues)
	assert.Equal(t, "_summary.json", cfg.Rebuild.SummaryFile)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("REBUILD_WIDTH", "512")
	t.Setenv("REBUILD_SKIP_EXISTING", "true")
	t.Setenv("REBUILD_SKIP_VALUES", "none,blank")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Rebuild.Width)
	assert.True(t, cfg.Rebuild.SkipExisting)
	assert.Equal(t, []string{"none", "blank"}, cfg.Rebuild.SkipValues)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REBUILD_OUTPUT_DIR=rendered\nSERVER_PORT=9191\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("REBUILD_OUTPUT_DIR")
		os.Unsetenv("SERVER_PORT")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "rendered", cfg.Rebuild.OutputDir)
	assert.Equal(t, "9191", cfg.Server.Port)
}
