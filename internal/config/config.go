package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/straye-as/scorecard-api/internal/secrets"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	DataWarehouse DataWarehouseConfig
	Auth          AuthConfig
	ApiKey        ApiKeyConfig
	Storage       StorageConfig
	Secrets       SecretsConfig
	Logging       LoggingConfig
	Server        ServerConfig
	CORS          CORSConfig
	Security      SecurityConfig
	RateLimit     RateLimitConfig
	Scorecard     ScorecardConfig
	Export        ExportConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// DataWarehouseConfig holds configuration for the MS SQL Server data warehouse
// This connection is optional and read-only
type DataWarehouseConfig struct {
	// Enabled controls whether the data warehouse connection is attempted
	Enabled bool
	// URL is the connection URL in format host:port/database (from WAREHOUSE-URL secret)
	URL string
	// User is the database username (from WAREHOUSE-USERNAME secret)
	User string
	// Password is the database password (from WAREHOUSE-PASSWORD secret)
	Password string
	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int
	// MaxIdleConns is the maximum number of connections in the idle connection pool
	MaxIdleConns int
	// ConnMaxLifetime is the maximum amount of time a connection may be reused (seconds)
	ConnMaxLifetime int
	// QueryTimeout is the default timeout for queries (seconds)
	QueryTimeout int
	// Schema qualifies the CRM mirror tables (crm_lead, crm_opportunity, crm_deal)
	Schema string
}

// AuthConfig holds bearer token settings. Tokens are HS256 and carry the user
// handle in the "handle" claim.
type AuthConfig struct {
	JWTSecret string // Loaded from secrets or environment
	Issuer    string
	Audience  string
	// ClockSkew is the leeway applied to exp/nbf checks (seconds)
	ClockSkew int
}

type ApiKeyConfig struct {
	SecretName string
	Value      string // Loaded from secrets or environment
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	// "auto" uses environment in development, vault in staging/production
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins for CORS requests
	// Use "*" to allow all origins (not recommended for production)
	AllowedOrigins []string
	// AllowedMethods is a list of allowed HTTP methods
	AllowedMethods []string
	// AllowedHeaders is a list of allowed request headers
	AllowedHeaders []string
	// ExposedHeaders is a list of headers exposed to the client
	ExposedHeaders []string
	// AllowCredentials indicates whether credentials are allowed
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	// EnableHSTS enables HTTP Strict Transport Security header
	EnableHSTS bool
	// HSTSMaxAge is the max age for HSTS in seconds (default: 31536000 = 1 year)
	HSTSMaxAge int
	// HSTSIncludeSubdomains includes subdomains in HSTS
	HSTSIncludeSubdomains bool
	// HSTSPreload enables HSTS preload
	HSTSPreload bool
	// ContentSecurityPolicy sets the Content-Security-Policy header
	ContentSecurityPolicy string
	// FrameOptions sets the X-Frame-Options header (DENY, SAMEORIGIN, or empty to disable)
	FrameOptions string
	// ContentTypeNosniff enables X-Content-Type-Options: nosniff
	ContentTypeNosniff bool
	// XSSProtection sets the X-XSS-Protection header
	XSSProtection string
	// ReferrerPolicy sets the Referrer-Policy header
	ReferrerPolicy string
	// PermissionsPolicy sets the Permissions-Policy header
	PermissionsPolicy string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Enabled enables rate limiting
	Enabled bool
	// RequestsPerMinute is the default rate limit for unauthenticated requests (per IP)
	RequestsPerMinute int
	// RequestsPerMinuteAuth is the rate limit for authenticated requests (per user)
	RequestsPerMinuteAuth int
	// BurstSize is the maximum burst size allowed
	BurstSize int
	// WhitelistIPs is a list of IPs that bypass rate limiting
	WhitelistIPs []string
	// WhitelistPaths is a list of paths that bypass rate limiting (e.g., /health)
	WhitelistPaths []string
}

// ScorecardConfig controls the scorecard engine and its record source
type ScorecardConfig struct {
	// Source selects the record source: "database" (CRM tables in Postgres) or "warehouse"
	Source string
	// OrgFile is the YAML file holding teams, forced roles, admins, quotas and targets.
	// Built-in defaults are used when the file does not exist.
	OrgFile string
	// Timezone anchors day and month boundaries of range tokens (IANA name)
	Timezone string
	// MaxConcurrentFetches bounds concurrent per-owner fetches within one scorecard
	MaxConcurrentFetches int
	// ComputeTimeout caps one scorecard computation (seconds)
	ComputeTimeout int
}

// Record sources for ScorecardConfig.Source
const (
	SourceDatabase  = "database"
	SourceWarehouse = "warehouse"
)

// ExportConfig controls the scheduled scorecard export job
type ExportConfig struct {
	Enabled bool
	// Schedule is a cron expression with a seconds field
	Schedule string
	// Range is the range token exported scorecards are computed for
	Range string
	// PathPrefix is prepended to export object names in storage
	PathPrefix string
	// RetentionDays prunes older snapshots after each export; 0 keeps everything
	RetentionDays int
}

// RetentionDuration returns the snapshot retention as a duration
func (e *ExportConfig) RetentionDuration() time.Duration {
	return time.Duration(e.RetentionDays) * 24 * time.Hour
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// ClockSkewDuration returns the token clock skew as duration
func (a *AuthConfig) ClockSkewDuration() time.Duration {
	return time.Duration(a.ClockSkew) * time.Second
}

// ComputeTimeoutDuration returns the scorecard compute timeout as duration
func (s *ScorecardConfig) ComputeTimeoutDuration() time.Duration {
	return time.Duration(s.ComputeTimeout) * time.Second
}

// Location resolves Timezone, falling back to UTC when empty
func (s *ScorecardConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scorecard timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DataWarehouseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// QueryTimeoutDuration returns query timeout as duration
func (d *DataWarehouseConfig) QueryTimeoutDuration() time.Duration {
	return time.Duration(d.QueryTimeout) * time.Second
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from config file
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load API key from environment if not in config
	if cfg.ApiKey.Value == "" {
		cfg.ApiKey.Value = v.GetString("ADMIN_API_KEY")
	}

	// Load JWT signing secret from environment if not in config
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	}

	// Load Azure Key Vault name from environment if not in config
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	// Check for DATAWAREHOUSE_ENABLED env var override
	if v.GetBool("DATAWAREHOUSE_ENABLED") {
		cfg.DataWarehouse.Enabled = true
	}

	// Data warehouse credentials are only loaded from Azure Key Vault, see LoadWithSecrets

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail late at request time
func (c *Config) Validate() error {
	c.Scorecard.Source = strings.ToLower(strings.TrimSpace(c.Scorecard.Source))
	switch c.Scorecard.Source {
	case SourceDatabase:
	case SourceWarehouse:
		if !c.DataWarehouse.Enabled {
			return fmt.Errorf("scorecard.source=%s requires dataWarehouse.enabled", SourceWarehouse)
		}
	default:
		return fmt.Errorf("unknown scorecard.source %q (want %s or %s)", c.Scorecard.Source, SourceDatabase, SourceWarehouse)
	}
	if c.Scorecard.MaxConcurrentFetches < 1 {
		return fmt.Errorf("scorecard.maxConcurrentFetches must be at least 1")
	}
	if _, err := c.Scorecard.Location(); err != nil {
		return err
	}
	return nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
// In development (or when secrets.source = "environment") secrets come from env vars;
// in staging/production with USE_AZURE_KEY_VAULT=true they come from Azure Key Vault.
//
// Warehouse credentials are read from Key Vault whenever the warehouse is enabled and a
// vault name is configured, regardless of environment.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if cfg.DataWarehouse.Enabled && cfg.Secrets.KeyVaultName != "" {
		if err := loadDataWarehouseSecrets(ctx, cfg, logger); err != nil {
			// the warehouse is optional unless it is the record source
			if cfg.Scorecard.Source == SourceWarehouse {
				return nil, err
			}
			logger.Warn("Failed to load data warehouse secrets from Key Vault", zap.Error(err))
		}
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	var provider *secrets.Provider
	switch {
	case !useKeyVault:
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		provider = secrets.NewEnvironmentProvider(logger)
	case !isValidEnv:
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		provider = secrets.NewEnvironmentProvider(logger)
	default:
		if cfg.Secrets.KeyVaultName == "" {
			return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
		}
		provider, err = secrets.NewProvider(&secrets.ProviderConfig{
			Source:       secrets.SourceVault,
			VaultName:    cfg.Secrets.KeyVaultName,
			Environment:  cfg.App.Environment,
			CacheEnabled: cfg.Secrets.CacheEnabled,
			CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize secrets provider (USE_AZURE_KEY_VAULT=true requires valid vault): %w", err)
		}
	}

	missing := provider.Apply(ctx, []secrets.Binding{
		{Secret: secrets.SecretDatabaseHost, Env: "DATABASE_HOST", Target: &cfg.Database.Host},
		{Secret: secrets.SecretDatabaseUser, Env: "DATABASE_USER", Target: &cfg.Database.User},
		{Secret: secrets.SecretDatabasePassword, Env: "DATABASE_PASSWORD", Target: &cfg.Database.Password},
		{Secret: secrets.SecretJWTSigning, Env: "JWT_SECRET", Target: &cfg.Auth.JWTSecret},
		{Secret: secrets.SecretAdminAPIKey, Env: "ADMIN_API_KEY", Target: &cfg.ApiKey.Value},
		{Secret: secrets.SecretStorageConnection, Env: "STORAGE_CLOUDCONNECTIONSTRING", Target: &cfg.Storage.CloudConnectionString},
	})
	if len(missing) > 0 {
		logger.Debug("Secrets not resolved, keeping configured values",
			zap.Strings("secrets", missing),
			zap.String("source", string(provider.Source())),
		)
	}

	// Database name and SSL mode vary per environment and never live in the vault
	if defaultDB := os.Getenv("DEFAULT_DATABASE"); defaultDB != "" {
		cfg.Database.Name = defaultDB
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}

	return cfg, nil
}

// loadDataWarehouseSecrets reads warehouse credentials from Key Vault only
func loadDataWarehouseSecrets(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	vault, err := secrets.NewVaultClient(&secrets.VaultConfig{
		VaultName:    cfg.Secrets.KeyVaultName,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client for data warehouse: %w", err)
	}

	for name, target := range map[string]*string{
		secrets.SecretWarehouseURL:      &cfg.DataWarehouse.URL,
		secrets.SecretWarehouseUser:     &cfg.DataWarehouse.User,
		secrets.SecretWarehousePassword: &cfg.DataWarehouse.Password,
	} {
		value, err := vault.GetSecret(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to get %s from Key Vault: %w", name, err)
		}
		*target = value
	}

	logger.Info("Data warehouse credentials loaded from Key Vault")
	return nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Straye Scorecard API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "scorecard")
	v.SetDefault("database.user", "scorecard_user")
	v.SetDefault("database.password", "scorecard_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Data warehouse defaults (MS SQL Server - optional, read-only)
	v.SetDefault("dataWarehouse.enabled", false) // Disabled by default
	v.SetDefault("dataWarehouse.maxOpenConns", 10)
	v.SetDefault("dataWarehouse.maxIdleConns", 2)
	v.SetDefault("dataWarehouse.connMaxLifetime", 300) // 5 minutes
	v.SetDefault("dataWarehouse.queryTimeout", 30)     // 30 seconds default query timeout
	v.SetDefault("dataWarehouse.schema", "dbo")

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300) // 5 minutes

	// Auth defaults
	v.SetDefault("auth.issuer", "straye-scorecard")
	v.SetDefault("auth.clockSkew", 30)

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "scorecards")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults - restrictive by default
	// In development, you may want to override with specific origins
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Scorecard-User", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300) // 5 minutes

	// Security header defaults - secure by default
	v.SetDefault("security.enableHSTS", false)    // Disabled by default, enable in production with HTTPS
	v.SetDefault("security.hstsMaxAge", 31536000) // 1 year
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)      // 60 requests per minute for unauthenticated
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 120) // 120 requests per minute for authenticated users
	v.SetDefault("rateLimit.burstSize", 10)              // Allow burst of 10 requests
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/ready", "/metrics"})

	// Scorecard defaults
	v.SetDefault("scorecard.source", "database")
	v.SetDefault("scorecard.orgFile", "./config/org.yaml")
	v.SetDefault("scorecard.timezone", "UTC")
	v.SetDefault("scorecard.maxConcurrentFetches", 8)
	v.SetDefault("scorecard.computeTimeout", 30)

	// Export job defaults
	v.SetDefault("export.enabled", false)
	v.SetDefault("export.schedule", "0 0 2 * * *") // 02:00 every day
	v.SetDefault("export.range", "LAST_MONTH")
	v.SetDefault("export.pathPrefix", "exports")
	v.SetDefault("export.retentionDays", 730)
}
