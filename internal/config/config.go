package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Environment constants
const (
	EnvProduction = "production"
)

// DefaultTarget is the name of the database configured through DB_* variables.
const DefaultTarget = "default"

// Config holds all application configuration.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Databases []DatabaseConfig
	Catalog   CatalogConfig
	Query     QueryConfig
	Redis     RedisConfig
	Log       LogConfig
	Auth      AuthConfig
	Directory DirectoryConfig
	Admin     AdminConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name  string
	Env   string
	Debug bool
	// ConfigFile is an optional YAML overlay.
	ConfigFile string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration // Per-request handler timeout, report execution excluded
	ShutdownTimeout time.Duration
	MaxBodySize     int64
}

// DatabaseConfig describes one named database target.
type DatabaseConfig struct {
	Name            string        `yaml:"name"`
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CatalogConfig locates the report definition table.
type CatalogConfig struct {
	Target string
	Table  string
}

// QueryConfig holds report execution settings.
type QueryConfig struct {
	// Target is the database reports and dropdown queries run against.
	Target string
	// DefaultTimeout applies to catalog reads and dropdown lookups.
	DefaultTimeout time.Duration
	// ReportTimeout applies to report execution.
	ReportTimeout time.Duration
	// MaxRows caps materialized rows, 0 for no cap.
	MaxRows int
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Enabled       bool
	Host          string
	Port          int
	Password      string
	DB            int
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	TLSEnabled    bool
	TLSSkipVerify bool
	MaxRetries    int
	MinRetryDelay time.Duration
	MaxRetryDelay time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string

	// HTTP logging configuration
	SkipHealthLogs     bool // Skip logging health check endpoints
	SlowRequestSeconds int  // Log requests slower than this as warnings
}

// AuthMode selects how the caller's identity is established.
type AuthMode string

const (
	// AuthModeHeader trusts a username header set by a reverse proxy.
	AuthModeHeader AuthMode = "header"
	// AuthModeJWT validates an HS256 bearer token.
	AuthModeJWT AuthMode = "jwt"
	// AuthModeOS serves every request as the account running the server.
	AuthModeOS AuthMode = "os"
)

// IsValid checks if the auth mode is valid.
func (m AuthMode) IsValid() bool {
	switch m {
	case AuthModeHeader, AuthModeJWT, AuthModeOS:
		return true
	default:
		return false
	}
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Mode AuthMode

	// Header mode
	UserHeader   string
	GroupsHeader string

	// JWT mode
	JWTSecret     string
	JWTIssuer     string
	UsernameClaim string
	GroupsClaim   string

	// PrincipalTTL bounds how long a resolved principal is cached.
	PrincipalTTL time.Duration
}

// DirectoryConfig holds directory service settings. An empty URL disables
// LDAP lookups.
type DirectoryConfig struct {
	URL            string
	BindDN         string
	BindPassword   string
	BaseDN         string
	UserFilter     string
	GroupAttribute string
	StartTLS       bool
	TLSSkipVerify  bool
	Timeout        time.Duration
}

// AdminConfig designates administrators.
type AdminConfig struct {
	Users  []string `yaml:"users"`
	Groups []string `yaml:"groups"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled         bool
	RequestsPerSec  float64
	Burst           int
	CleanupInterval time.Duration

	// Per-user limit on report executions, applied after authentication.
	// Zero disables it.
	ExecutionsPerMin int
	ExecutionBurst   int
}

// Load loads configuration from environment variables, then applies the
// optional YAML overlay.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:       getEnv("APP_NAME", "queryex"),
			Env:        getEnv("APP_ENV", "development"),
			Debug:      getEnvBool("APP_DEBUG", false),
			ConfigFile: getEnv("QUERYEX_CONFIG_FILE", ""),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 150*time.Second),
			RequestTimeout:  getEnvDuration("SERVER_REQUEST_TIMEOUT", 45*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxBodySize:     getEnvInt64("SERVER_MAX_BODY_SIZE", 1<<20),
		},
		Databases: []DatabaseConfig{{
			Name:            DefaultTarget,
			Driver:          getEnv("DB_DRIVER", "sqlserver"),
			DSN:             getEnv("DB_DSN", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 0),
			User:            getEnv("DB_USER", "queryex"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "queryex"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}},
		Catalog: CatalogConfig{
			Target: getEnv("CATALOG_TARGET", DefaultTarget),
			Table:  getEnv("CATALOG_TABLE", "QUERYEX_CONSULTAS"),
		},
		Query: QueryConfig{
			Target:         getEnv("QUERY_TARGET", DefaultTarget),
			DefaultTimeout: getEnvDuration("QUERY_DEFAULT_TIMEOUT", 30*time.Second),
			ReportTimeout:  getEnvDuration("QUERY_REPORT_TIMEOUT", 120*time.Second),
			MaxRows:        getEnvInt("QUERY_MAX_ROWS", 100000),
		},
		Redis: RedisConfig{
			Enabled:       getEnvBool("REDIS_ENABLED", false),
			Host:          getEnv("REDIS_HOST", "localhost"),
			Port:          getEnvInt("REDIS_PORT", 6379),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvInt("REDIS_DB", 0),
			PoolSize:      getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:  getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:   getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:   getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:  getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			TLSEnabled:    getEnvBool("REDIS_TLS_ENABLED", false),
			TLSSkipVerify: getEnvBool("REDIS_TLS_SKIP_VERIFY", false),
			MaxRetries:    getEnvInt("REDIS_MAX_RETRIES", 3),
			MinRetryDelay: getEnvDuration("REDIS_MIN_RETRY_DELAY", 100*time.Millisecond),
			MaxRetryDelay: getEnvDuration("REDIS_MAX_RETRY_DELAY", 3*time.Second),
		},
		Log: LogConfig{
			Level:              getEnv("LOG_LEVEL", "info"),
			Format:             getEnv("LOG_FORMAT", "json"),
			SkipHealthLogs:     getEnvBool("LOG_SKIP_HEALTH", true),
			SlowRequestSeconds: getEnvInt("LOG_SLOW_REQUEST_SECONDS", 10),
		},
		Auth: AuthConfig{
			Mode:          AuthMode(getEnv("AUTH_MODE", string(AuthModeHeader))),
			UserHeader:    getEnv("AUTH_USER_HEADER", "X-Remote-User"),
			GroupsHeader:  getEnv("AUTH_GROUPS_HEADER", "X-Remote-Groups"),
			JWTSecret:     getEnv("AUTH_JWT_SECRET", ""),
			JWTIssuer:     getEnv("AUTH_JWT_ISSUER", ""),
			UsernameClaim: getEnv("AUTH_USERNAME_CLAIM", "preferred_username"),
			GroupsClaim:   getEnv("AUTH_GROUPS_CLAIM", "groups"),
			PrincipalTTL:  getEnvDuration("AUTH_PRINCIPAL_TTL", 8*time.Hour),
		},
		Directory: DirectoryConfig{
			URL:            getEnv("LDAP_URL", ""),
			BindDN:         getEnv("LDAP_BIND_DN", ""),
			BindPassword:   getEnv("LDAP_BIND_PASSWORD", ""),
			BaseDN:         getEnv("LDAP_BASE_DN", ""),
			UserFilter:     getEnv("LDAP_USER_FILTER", "(&(objectClass=user)(sAMAccountName=%s))"),
			GroupAttribute: getEnv("LDAP_GROUP_ATTRIBUTE", "memberOf"),
			StartTLS:       getEnvBool("LDAP_START_TLS", false),
			TLSSkipVerify:  getEnvBool("LDAP_TLS_SKIP_VERIFY", false),
			Timeout:        getEnvDuration("LDAP_TIMEOUT", 10*time.Second),
		},
		Admin: AdminConfig{
			Users:  getEnvSlice("ADMIN_USERS", nil),
			Groups: getEnvSlice("ADMIN_GROUPS", []string{"Domain Admins", "Administradores"}),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}),
			MaxAge:         getEnvInt("CORS_MAX_AGE", 86400),
		},
		RateLimit: RateLimitConfig{
			Enabled:          getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSec:   getEnvFloat("RATE_LIMIT_RPS", 50),
			Burst:            getEnvInt("RATE_LIMIT_BURST", 100),
			CleanupInterval:  getEnvDuration("RATE_LIMIT_CLEANUP", time.Minute),
			ExecutionsPerMin: getEnvInt("RATE_LIMIT_EXECUTIONS_PER_MIN", 30),
			ExecutionBurst:   getEnvInt("RATE_LIMIT_EXECUTION_BURST", 5),
		},
	}

	if cfg.App.ConfigFile != "" {
		if err := cfg.applyFile(cfg.App.ConfigFile); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.validateBasic(); err != nil {
		return err
	}
	if c.App.Env == EnvProduction {
		return c.validateProduction()
	}
	return nil
}

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// validateBasic validates basic configuration regardless of environment.
func (c *Config) validateBasic() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if err := c.validateDatabases(); err != nil {
		return err
	}
	if !identifierRegex.MatchString(c.Catalog.Table) {
		return fmt.Errorf("invalid CATALOG_TABLE: %q", c.Catalog.Table)
	}
	if c.Query.DefaultTimeout <= 0 || c.Query.ReportTimeout <= 0 {
		return fmt.Errorf("query timeouts must be positive")
	}
	if c.Query.MaxRows < 0 {
		return fmt.Errorf("QUERY_MAX_ROWS must be non-negative, got %d", c.Query.MaxRows)
	}
	if !c.Auth.Mode.IsValid() {
		return fmt.Errorf("invalid AUTH_MODE: %s (must be header, jwt, or os)", c.Auth.Mode)
	}
	if c.Auth.Mode == AuthModeJWT && c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required when AUTH_MODE is jwt")
	}
	if c.Auth.Mode == AuthModeHeader && c.Auth.UserHeader == "" {
		return fmt.Errorf("AUTH_USER_HEADER is required when AUTH_MODE is header")
	}
	if c.Directory.URL != "" && c.Directory.BaseDN == "" {
		return fmt.Errorf("LDAP_BASE_DN is required when LDAP_URL is set")
	}
	return c.validateLog()
}

func (c *Config) validateDatabases() error {
	names := make([]string, 0, len(c.Databases))
	for _, db := range c.Databases {
		if db.Name == "" {
			return fmt.Errorf("database target without a name")
		}
		if slices.Contains(names, db.Name) {
			return fmt.Errorf("database target %q declared twice", db.Name)
		}
		names = append(names, db.Name)
		switch strings.ToLower(db.Driver) {
		case "postgres", "postgresql", "pq", "sqlserver", "mssql":
		default:
			return fmt.Errorf("database target %q: unsupported driver %q", db.Name, db.Driver)
		}
		if db.DSN == "" && db.Host == "" {
			return fmt.Errorf("database target %q: host or dsn is required", db.Name)
		}
	}
	for _, target := range []string{c.Catalog.Target, c.Query.Target} {
		if !slices.Contains(names, target) {
			return fmt.Errorf("database target %q is not configured", target)
		}
	}
	return nil
}

// validateLog validates logging configuration.
func (c *Config) validateLog() error {
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %s (must be json or text)", c.Log.Format)
	}
	if c.Log.SlowRequestSeconds < 0 {
		return fmt.Errorf("LOG_SLOW_REQUEST_SECONDS must be non-negative, got %d", c.Log.SlowRequestSeconds)
	}
	return nil
}

// validateProduction applies production-only checks.
func (c *Config) validateProduction() error {
	if c.App.Debug {
		return fmt.Errorf("debug mode must be disabled in production")
	}
	if strings.EqualFold(c.Log.Level, "debug") {
		return fmt.Errorf("log level should not be 'debug' in production")
	}
	if c.Auth.Mode == AuthModeOS {
		return fmt.Errorf("AUTH_MODE=os is not allowed in production")
	}
	if c.Auth.Mode == AuthModeJWT && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 characters in production")
	}
	if slices.Contains(c.CORS.AllowedOrigins, "*") {
		return fmt.Errorf("CORS wildcard origin is not allowed in production")
	}
	if c.Redis.Enabled && c.Redis.Password == "" {
		return fmt.Errorf("redis password must be set in production")
	}
	return nil
}

// Database returns the target with the given name.
func (c *Config) Database(name string) (DatabaseConfig, bool) {
	for _, db := range c.Databases {
		if db.Name == name {
			return db, true
		}
	}
	return DatabaseConfig{}, false
}

// DataSourceName returns the driver connection string for the target.
func (c *DatabaseConfig) DataSourceName() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch strings.ToLower(c.Driver) {
	case "sqlserver", "mssql":
		port := c.Port
		if port == 0 {
			port = 1433
		}
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.User, c.Password),
			Host:     net.JoinHostPort(c.Host, strconv.Itoa(port)),
			RawQuery: url.Values{"database": {c.Database}}.Encode(),
		}
		return u.String()
	default:
		port := c.Port
		if port == 0 {
			port = 5432
		}
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, port, c.User, c.Password, c.Database, c.SSLMode,
		)
	}
}

// Addr returns the Redis address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the HTTP server address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment returns true if the application is in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction returns true if the application is in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		if result := splitAndTrim(value, ","); len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	parts := make([]string, 0)
	for _, p := range strings.Split(s, sep) {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
