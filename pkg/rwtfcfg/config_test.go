package rwtfcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, uint16(1), cfg.CreatorVersion)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, uint8(255), cfg.Limits.MaxF64Scale)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rwtf.yaml")
	yaml := "creator_version: 7\nlogging:\n  level: debug\nlimits:\n  max_f64_scale: 12\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint16(7), cfg.CreatorVersion)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, uint8(12), cfg.Limits.MaxF64Scale)
}

func TestLoadConfigPartialOverrideKeepsOtherDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rwtf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, uint16(1), cfg.CreatorVersion)
	assert.Equal(t, uint8(255), cfg.Limits.MaxF64Scale)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/rwtf.yaml")
	assert.Error(t, err)
}
