package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.CatalogFile)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Empty(t, cfg.MechanismRulesFile)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	os.Setenv("LETSCIENCE_DATA_DIR", "/tmp/test-letscience")
	os.Setenv("LETSCIENCE_CATALOG_FILE", "/tmp/catalog.yaml")
	os.Setenv("LETSCIENCE_MECHANISM_RULES", "/tmp/rules.yaml")
	os.Setenv("LETSCIENCE_CACHE_MAX_ITEMS", "500")
	os.Setenv("LETSCIENCE_CACHE_TTL", "12h")
	os.Setenv("LETSCIENCE_LOG_LEVEL", "debug")

	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-letscience", cfg.DataDir)
	assert.Equal(t, "/tmp/catalog.yaml", cfg.CatalogFile)
	assert.Equal(t, "/tmp/rules.yaml", cfg.MechanismRulesFile)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadLiteConfig_InvalidValuesIgnored(t *testing.T) {
	clearEnvVars(t)

	os.Setenv("LETSCIENCE_CACHE_MAX_ITEMS", "-3")
	os.Setenv("LETSCIENCE_CACHE_TTL", "soon")

	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
}

func TestLiteConfig_DataFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := &LiteConfig{DataDir: dir}

	assert.Empty(t, cfg.CatalogPath())
	assert.Empty(t, cfg.MechanismRulesPath())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte("products: []\n"), 0644))
	assert.Equal(t, filepath.Join(dir, "catalog.yaml"), cfg.CatalogPath())

	cfg.CatalogFile = "/etc/letscience/catalog.yaml"
	cfg.MechanismRulesFile = "/etc/letscience/rules.yaml"
	assert.Equal(t, "/etc/letscience/catalog.yaml", cfg.CatalogPath())
	assert.Equal(t, "/etc/letscience/rules.yaml", cfg.MechanismRulesPath())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &LiteConfig{DataDir: filepath.Join(tmpDir, "letscience")}

	err := cfg.EnsureDataDir()
	require.NoError(t, err)

	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"LETSCIENCE_DATA_DIR",
		"LETSCIENCE_CATALOG_FILE",
		"LETSCIENCE_MECHANISM_RULES",
		"LETSCIENCE_CACHE_MAX_ITEMS",
		"LETSCIENCE_CACHE_TTL",
		"LETSCIENCE_LOG_LEVEL",
		"LETSCIENCE_LOG_FORMAT",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
