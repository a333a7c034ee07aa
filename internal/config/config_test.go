package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "platebook.db", cfg.DatabasePath)
	assert.Equal(t, "0.0.0.0:5173", cfg.ListenAddr())
	assert.Equal(t, "20M", cfg.APIBodyLimit)
	assert.Equal(t, "platebook-assets-v1", cfg.AssetCacheGeneration)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("TELEGRAM_SHARING_CODE", "sekret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr())
	assert.Equal(t, "sekret", cfg.TelegramSharingCode)
}

func TestAssetManifest(t *testing.T) {
	manifest := AssetManifest()

	assert.NotEmpty(t, manifest)
	assert.Contains(t, manifest, "/")
	assert.Contains(t, manifest, "/index.html")
	for _, path := range manifest {
		assert.True(t, path[0] == '/', "manifest paths are root-relative: %q", path)
	}
}
