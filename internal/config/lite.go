// Package config provides configuration management for the LetScience services.
// This file contains the lightweight configuration for the standalone MCP server.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir     string // Base directory for data files
	CatalogFile string // Optional: YAML product catalog used to resolve drug names

	// Cache settings
	CacheMaxItems int           // Maximum items in memory cache
	CacheTTL      time.Duration // Default cache TTL

	// Analysis
	MechanismRulesFile string // Optional: YAML mechanism rules overriding the built-in set

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".letscience")

	return &LiteConfig{
		DataDir:       dataDir,
		CacheMaxItems: 1000,
		CacheTTL:      24 * time.Hour,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("LETSCIENCE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	cfg.CatalogFile = os.Getenv("LETSCIENCE_CATALOG_FILE")
	cfg.MechanismRulesFile = os.Getenv("LETSCIENCE_MECHANISM_RULES")

	// Cache settings
	if v := os.Getenv("LETSCIENCE_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("LETSCIENCE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	// Logging
	if v := os.Getenv("LETSCIENCE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LETSCIENCE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// CatalogPath returns the catalog file to load: the configured one, or
// catalog.yaml in the data directory when it exists. Empty selects the
// built-in catalog.
func (c *LiteConfig) CatalogPath() string {
	return c.dataFile(c.CatalogFile, "catalog.yaml")
}

// MechanismRulesPath resolves the mechanism rule file like CatalogPath
func (c *LiteConfig) MechanismRulesPath() string {
	return c.dataFile(c.MechanismRulesFile, "mechanism_rules.yaml")
}

func (c *LiteConfig) dataFile(configured, name string) string {
	if configured != "" {
		return configured
	}
	path := filepath.Join(c.DataDir, name)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
