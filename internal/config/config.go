package config

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/letscience-intel-server/internal/domain"
)

const minJWTSecretLength = 32

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	mu     sync.RWMutex
	config *domain.Config
}

// NewManager creates a new configuration manager. Extra search paths are
// consulted before the default locations.
func NewManager(paths ...string) (*Manager, error) {
	// .env is optional
	_ = godotenv.Load()

	m := &Manager{v: viper.New()}
	m.v.SetConfigName("config")
	m.v.SetConfigType("yaml")
	for _, p := range paths {
		m.v.AddConfigPath(p)
	}
	m.v.AddConfigPath(".")
	m.v.AddConfigPath("./config")
	m.v.AddConfigPath("/etc/letscience/")

	m.v.SetEnvPrefix("LETSCIENCE")
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	m.setDefaults()

	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig reads the config file, if any, and unmarshals the merged result
func (m *Manager) loadConfig() error {
	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	config := &domain.Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	v := m.v

	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "letscience")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "30m")
	v.SetDefault("database.migrations_path", "migrations")

	// External API defaults
	v.SetDefault("external_api.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/")
	v.SetDefault("external_api.pubmed.timeout", "30s")
	v.SetDefault("external_api.pubmed.rate_limit", 3)
	v.SetDefault("external_api.pubmed.retry_count", 3)
	v.SetDefault("external_api.pubmed.max_results", 20)

	v.SetDefault("external_api.clinical_trials.base_url", "https://clinicaltrials.gov/api/v2/")
	v.SetDefault("external_api.clinical_trials.timeout", "30s")
	v.SetDefault("external_api.clinical_trials.rate_limit", 5)
	v.SetDefault("external_api.clinical_trials.retry_count", 3)
	v.SetDefault("external_api.clinical_trials.max_results", 20)

	v.SetDefault("external_api.openfda.base_url", "https://api.fda.gov/")
	v.SetDefault("external_api.openfda.timeout", "30s")
	v.SetDefault("external_api.openfda.rate_limit", 4)
	v.SetDefault("external_api.openfda.retry_count", 3)
	v.SetDefault("external_api.openfda.max_results", 20)

	v.SetDefault("external_api.pubchem.base_url", "https://pubchem.ncbi.nlm.nih.gov/rest/pug/")
	v.SetDefault("external_api.pubchem.timeout", "30s")
	v.SetDefault("external_api.pubchem.rate_limit", 5)
	v.SetDefault("external_api.pubchem.retry_count", 3)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.default_ttl", "24h")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")
	v.SetDefault("cache.memory_max_size", 1000)
	v.SetDefault("cache.memory_ttl", "1h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.mfa_token_ttl", "5m")
	v.SetDefault("auth.totp_issuer", "LetScience")
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.allow_register", true)

	// Alerts defaults
	v.SetDefault("alerts.backend", "postgres")
	v.SetDefault("alerts.sqlite_path", "data/alerts.db")

	v.SetDefault("analysis.mechanism_rules_file", "")

	v.SetDefault("mcp.server_name", "letscience-intel")
	v.SetDefault("mcp.server_version", "1.0.0")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.GetConfig().Database
}

// GetExternalAPIConfig returns external API configuration
func (m *Manager) GetExternalAPIConfig() *domain.ExternalAPIConfig {
	return &m.GetConfig().ExternalAPI
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.GetConfig().Server
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Watch reloads the configuration whenever the config file changes and then
// calls onChange. It is a no-op when no config file was found.
func (m *Manager) Watch(onChange func(*domain.Config)) {
	if m.v.ConfigFileUsed() == "" {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		if err := m.loadConfig(); err != nil {
			return
		}
		if onChange != nil {
			onChange(m.GetConfig())
		}
	})
	m.v.WatchConfig()
}

// ConfigFileUsed returns the path of the loaded config file, if any
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.GetConfig()

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %v", config.Server.RateLimit)
	}

	// Validate database configuration
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if config.Database.Username == "" {
		return fmt.Errorf("database username is required")
	}

	// Validate external API URLs
	sources := map[string]domain.SourceConfig{
		"PubMed":             config.ExternalAPI.PubMed,
		"ClinicalTrials.gov": config.ExternalAPI.ClinicalTrials,
		"openFDA":            config.ExternalAPI.OpenFDA,
		"PubChem":            config.ExternalAPI.PubChem,
	}
	for name, src := range sources {
		if src.BaseURL == "" {
			return fmt.Errorf("%s base URL is required", name)
		}
	}

	if len(config.Auth.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d characters", minJWTSecretLength)
	}

	switch config.Alerts.Backend {
	case "postgres":
	case "sqlite":
		if config.Alerts.SQLitePath == "" {
			return fmt.Errorf("alerts.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("invalid alerts backend: %q", config.Alerts.Backend)
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.GetConfig().Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetDatabaseURL returns the database URL form used by migrations
func (m *Manager) GetDatabaseURL() string {
	db := m.GetConfig().Database
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.Username, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     db.Database,
		RawQuery: "sslmode=" + db.SSLMode,
	}
	return u.String()
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.GetConfig().Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.GetConfig().Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.GetConfig().Environment)
	return env == "development" || env == "dev" || env == ""
}
