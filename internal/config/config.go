package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/viewdex/internal/query"
)

// Config holds the viewdex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	Access    AccessConfig    `yaml:"access"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Draft     DraftConfig     `yaml:"draft"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverDuckDB   = "duckdb"
	DriverNone     = "none"
)

// DatabaseConfig holds the execution backend settings.
type DatabaseConfig struct {
	Driver           string `yaml:"driver"` // postgres, duckdb, none (default: duckdb)
	DSN              string `yaml:"dsn"`
	MaxConns         int32  `yaml:"max_conns"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
	Dialect          string `yaml:"dialect"` // overrides the driver's SQL dialect
}

// CatalogConfig holds the entity catalog settings.
type CatalogConfig struct {
	ViewsFile   string `yaml:"views_file"`
	Discover    bool   `yaml:"discover"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"`
}

// SearchConfig bounds untrusted search input.
type SearchConfig struct {
	MaxDepth          int  `yaml:"max_depth"`
	MaxNodes          int  `yaml:"max_nodes"`
	MaxValues         int  `yaml:"max_values"`
	DefaultPageSize   int  `yaml:"default_page_size"`
	GlobalMaxPageSize int  `yaml:"global_max_page_size"`
	UseILike          bool `yaml:"use_ilike"`
	SkipCount         bool `yaml:"skip_count"`
}

// CacheConfig holds the Valkey discovery cache settings.
type CacheConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// AccessConfig holds the column policy settings.
type AccessConfig struct {
	PolicyFile   string `yaml:"policy_file"`
	DefaultRole  string `yaml:"default_role"`
	RequiredRole string `yaml:"required_role"` // role needed for data endpoints when auth is on
}

// RoleBindingsConfig maps signed-in users to roles.
type RoleBindingsConfig struct {
	Emails   map[string][]string `yaml:"emails"`
	Domains  map[string][]string `yaml:"domains"`
	Defaults []string            `yaml:"defaults"`
}

// CookieConfig holds the refresh cookie settings.
type CookieConfig struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Secure bool   `yaml:"secure"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	APIKeys        map[string][]string `yaml:"api_keys"` // key -> roles
	GoogleClientID string              `yaml:"google_client_id"`
	SessionSecret  string              `yaml:"session_secret"`
	RefreshSecret  string              `yaml:"refresh_secret"`
	Issuer         string              `yaml:"issuer"`
	Audience       string              `yaml:"audience"`
	AccessTTLSec   int                 `yaml:"access_ttl_sec"`
	RefreshTTLSec  int                 `yaml:"refresh_ttl_sec"`
	RoleBindings   RoleBindingsConfig  `yaml:"role_bindings"`
	RefreshCookie  CookieConfig        `yaml:"refresh_cookie"`
}

// SignInEnabled reports whether Google sign-in and session tokens are configured.
func (a AuthConfig) SignInEnabled() bool { return a.GoogleClientID != "" }

// RateLimitConfig holds per-caller rate limits. Zero RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// DraftConfig holds the draft assistant settings.
type DraftConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

const minSecretLen = 32

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverDuckDB
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Catalog.ViewsFile == "" {
		c.Catalog.ViewsFile = filepath.Join("config", "views.yaml")
	}
	if c.Catalog.CacheTTLSec <= 0 {
		c.Catalog.CacheTTLSec = 3600
	}
	if c.Search.MaxDepth <= 0 {
		c.Search.MaxDepth = 20
	}
	if c.Search.MaxNodes <= 0 {
		c.Search.MaxNodes = 500
	}
	if c.Search.MaxValues <= 0 {
		c.Search.MaxValues = 10000
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 100
	}
	if c.Search.GlobalMaxPageSize <= 0 {
		c.Search.GlobalMaxPageSize = 1000
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "viewdex:"
	}
	if c.Auth.RefreshSecret == "" {
		c.Auth.RefreshSecret = c.Auth.SessionSecret
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "viewdex"
	}
	if c.Auth.Audience == "" {
		c.Auth.Audience = "viewdex"
	}
	if c.Auth.AccessTTLSec <= 0 {
		c.Auth.AccessTTLSec = 900
	}
	if c.Auth.RefreshTTLSec <= 0 {
		c.Auth.RefreshTTLSec = 30 * 24 * 3600
	}
	if c.Auth.RefreshCookie.Name == "" {
		c.Auth.RefreshCookie.Name = "refresh"
	}
	if c.Auth.RefreshCookie.Path == "" {
		c.Auth.RefreshCookie.Path = "/auth"
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = max(1, int(c.RateLimit.RPS))
	}
	if c.Draft.Model == "" {
		c.Draft.Model = "gpt-4o-mini"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	case DriverDuckDB, DriverNone:
		// ok: an empty duckdb dsn opens an in-memory database
	default:
		return fmt.Errorf("database.driver must be \"postgres\", \"duckdb\" or \"none\", got %q", c.Database.Driver)
	}
	if c.Database.Dialect != "" {
		if _, ok := query.ParseDialect(c.Database.Dialect); !ok {
			return fmt.Errorf("database.dialect %q is not supported", c.Database.Dialect)
		}
	}
	if c.Search.DefaultPageSize > c.Search.GlobalMaxPageSize {
		return fmt.Errorf("search.default_page_size (%d) exceeds search.global_max_page_size (%d)",
			c.Search.DefaultPageSize, c.Search.GlobalMaxPageSize)
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when the cache is enabled")
	}
	if c.Auth.SignInEnabled() {
		if len(c.Auth.SessionSecret) < minSecretLen || len(c.Auth.RefreshSecret) < minSecretLen {
			return fmt.Errorf("auth.session_secret and auth.refresh_secret must be at least %d bytes", minSecretLen)
		}
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must not be negative, got %v", c.RateLimit.RPS)
	}
	if c.Draft.Enabled && c.Draft.APIKey == "" {
		return fmt.Errorf("draft.api_key is required when the draft assistant is enabled")
	}
	return nil
}

// Dialect returns the SQL dialect: the explicit override, else the driver's own.
func (c *Config) Dialect() query.Dialect {
	if d, ok := query.ParseDialect(c.Database.Dialect); ok {
		return d
	}
	switch c.Database.Driver {
	case DriverPostgres:
		return query.Postgres
	case DriverDuckDB:
		return query.DuckDB
	}
	return query.Generic
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
