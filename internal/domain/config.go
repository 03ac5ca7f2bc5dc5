package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string            `mapstructure:"environment"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	ExternalAPI ExternalAPIConfig `mapstructure:"external_api"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Analysis    AnalysisConfig    `mapstructure:"analysis"`
	MCP         MCPConfig         `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"` // requests per second per client
	RateBurst      int           `mapstructure:"rate_burst"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// ExternalAPIConfig represents external API configuration
type ExternalAPIConfig struct {
	PubMed         SourceConfig `mapstructure:"pubmed"`
	ClinicalTrials SourceConfig `mapstructure:"clinical_trials"`
	OpenFDA        SourceConfig `mapstructure:"openfda"`
	PubChem        SourceConfig `mapstructure:"pubchem"`
}

// SourceConfig configures one external intelligence source
type SourceConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Email      string        `mapstructure:"email"` // NCBI asks for a contact address
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"` // requests per second
	RetryCount int           `mapstructure:"retry_count"`
	MaxResults int           `mapstructure:"max_results"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisURL      string        `mapstructure:"redis_url"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	MaxRetries    int           `mapstructure:"max_retries"`
	PoolSize      int           `mapstructure:"pool_size"`
	PoolTimeout   time.Duration `mapstructure:"pool_timeout"`
	MemoryMaxSize int           `mapstructure:"memory_max_size"`
	MemoryTTL     time.Duration `mapstructure:"memory_ttl"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// AuthConfig configures token signing and two-factor authentication
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	MFATokenTTL   time.Duration `mapstructure:"mfa_token_ttl"`
	TOTPIssuer    string        `mapstructure:"totp_issuer"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`
	AllowRegister bool          `mapstructure:"allow_register"`
}

// AlertsConfig selects the alert subscription backend
type AlertsConfig struct {
	Backend    string `mapstructure:"backend"` // "postgres" or "sqlite"
	SQLitePath string `mapstructure:"sqlite_path"`
}

// AnalysisConfig configures the heuristic analysis engines
type AnalysisConfig struct {
	MechanismRulesFile string `mapstructure:"mechanism_rules_file"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}
