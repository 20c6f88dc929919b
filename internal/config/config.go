// Package config loads and validates the backend configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the ORB_ prefix (e.g., ORB_DATABASE_HOST
// overrides database.host in the YAML). This layering allows the same binary to
// run with a config.yaml in local development and with pure environment variables
// in containerized deployments — no recompilation or different binaries needed.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

// AuditConfig holds audit record shipping configuration. Auditing is off by
// default; enabling it requires at least one destination to also be enabled.
type AuditConfig struct {
	Enabled bool               `mapstructure:"enabled"`
	File    AuditFileConfig    `mapstructure:"file"`
	Webhook AuditWebhookConfig `mapstructure:"webhook"`
}

// AuditFileConfig configures the local audit log file destination
type AuditFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// AuditWebhookConfig configures the webhook audit destination (SIEM ingest)
type AuditWebhookConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	AuthHeader    string        `mapstructure:"auth_header"`
	AuthToken     string        `mapstructure:"auth_token"`
	Timeout       time.Duration `mapstructure:"timeout"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GetAddress returns the host:port the HTTP server listens on
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// GetDSN builds the PostgreSQL connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	// DefaultBackend selects the presigning backend: s3, gcs, azure, or local
	DefaultBackend string `mapstructure:"default_backend"`
	// ProfileImagesBucket is the bucket that receives user profile image uploads
	ProfileImagesBucket string `mapstructure:"profile_images_bucket"`
	// UploadURLTTL is the lifetime of presigned upload URLs
	UploadURLTTL time.Duration `mapstructure:"upload_url_ttl"`
	// DownloadURLTTL is the lifetime of presigned download URLs
	DownloadURLTTL time.Duration `mapstructure:"download_url_ttl"`
	// OrphanSweepInterval is how often abandoned file records are reaped
	OrphanSweepInterval time.Duration `mapstructure:"orphan_sweep_interval"`

	S3    S3StorageConfig    `mapstructure:"s3"`
	GCS   GCSStorageConfig   `mapstructure:"gcs"`
	Azure AzureStorageConfig `mapstructure:"azure"`
	Local LocalStorageConfig `mapstructure:"local"`
}

// S3StorageConfig holds S3-compatible storage configuration
type S3StorageConfig struct {
	// Endpoint is the S3-compatible endpoint URL (optional, for MinIO and similar)
	Endpoint string `mapstructure:"endpoint"`
	// Region is the AWS region
	Region string `mapstructure:"region"`

	// Authentication method: "default", "static", "assume_role"
	// - "default": AWS default credential chain (env vars, shared config, IAM role)
	// - "static": explicit access key and secret key
	// - "assume_role": assume an IAM role (optionally with external ID)
	AuthMethod string `mapstructure:"auth_method"`

	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	RoleARN         string `mapstructure:"role_arn"`
	RoleSessionName string `mapstructure:"role_session_name"`
	ExternalID      string `mapstructure:"external_id"`
}

// GCSStorageConfig holds Google Cloud Storage configuration
type GCSStorageConfig struct {
	ProjectID string `mapstructure:"project_id"`
	// CredentialsFile is the path to a service account JSON key file.
	// When empty, Application Default Credentials are used.
	CredentialsFile string `mapstructure:"credentials_file"`
	// GoogleAccessID and PrivateKey sign URLs when ADC cannot provide a signer
	GoogleAccessID string `mapstructure:"google_access_id"`
	PrivateKey     string `mapstructure:"private_key"`
}

// AzureStorageConfig holds Azure Blob Storage configuration
type AzureStorageConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
}

// LocalStorageConfig holds local filesystem storage configuration (development only)
type LocalStorageConfig struct {
	BasePath string `mapstructure:"base_path"`
	// BaseURL is the public prefix upload/download URLs are built under
	BaseURL string `mapstructure:"base_url"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

// JWTConfig holds token-pair issuance configuration
type JWTConfig struct {
	// AccessTTL is the access token lifetime (also the access cookie max-age)
	AccessTTL time.Duration `mapstructure:"access_ttl"`
	// RefreshTTL is the refresh token lifetime (also the refresh cookie max-age)
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	// RotateRefreshTokens issues a new refresh token on every refresh when true
	RotateRefreshTokens bool `mapstructure:"rotate_refresh_tokens"`
	// CookieSecure marks auth cookies Secure (HTTPS only); enable in production
	CookieSecure bool `mapstructure:"cookie_secure"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	CORS         CORSConfig         `mapstructure:"cors"`
	TLS          TLSConfig          `mapstructure:"tls"`
}

// CORSConfig holds cross-origin configuration. Browser clients authenticate
// with cookies, so allowed origins should be explicit in production.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitingConfig holds rate limiting configuration
type RateLimitingConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
	// RedisAddr switches the limiter to a Redis-backed implementation when set,
	// so limits are shared across replicas. Empty means in-memory per process.
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
}

// TLSConfig holds TLS/HTTPS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName string          `mapstructure:"service_name"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	Profiling   ProfilingConfig `mapstructure:"profiling"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// ProfilingConfig holds pprof configuration
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// bindEnvVars explicitly binds environment variables for nested structures.
// This is necessary because AutomaticEnv() doesn't work well with Unmarshal().
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Server
		"server.host",
		"server.port",
		"server.base_url",
		"server.read_timeout",
		"server.write_timeout",

		// Database
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		// Storage
		"storage.default_backend",
		"storage.profile_images_bucket",
		"storage.upload_url_ttl",
		"storage.download_url_ttl",
		"storage.orphan_sweep_interval",
		"storage.s3.endpoint",
		"storage.s3.region",
		"storage.s3.auth_method",
		"storage.s3.access_key_id",
		"storage.s3.secret_access_key",
		"storage.s3.role_arn",
		"storage.s3.role_session_name",
		"storage.s3.external_id",
		"storage.gcs.project_id",
		"storage.gcs.credentials_file",
		"storage.gcs.google_access_id",
		"storage.gcs.private_key",
		"storage.azure.account_name",
		"storage.azure.account_key",
		"storage.local.base_path",
		"storage.local.base_url",

		// Auth
		"auth.jwt.access_ttl",
		"auth.jwt.refresh_ttl",
		"auth.jwt.rotate_refresh_tokens",
		"auth.jwt.cookie_secure",

		// Security
		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",
		"security.rate_limiting.redis_addr",
		"security.rate_limiting.redis_password",
		"security.cors.allowed_origins",
		"security.tls.enabled",
		"security.tls.cert_file",
		"security.tls.key_file",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.service_name",
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",
		"telemetry.profiling.enabled",
		"telemetry.profiling.port",

		// Audit
		"audit.enabled",
		"audit.file.enabled",
		"audit.file.path",
		"audit.file.max_size_mb",
		"audit.file.max_backups",
		"audit.webhook.enabled",
		"audit.webhook.url",
		"audit.webhook.auth_header",
		"audit.webhook.auth_token",
		"audit.webhook.timeout",
		"audit.webhook.batch_size",
		"audit.webhook.flush_interval",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config.yaml in common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/orbit-backend")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("ORB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand environment variables in sensitive fields
	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.Storage.S3.AccessKeyID = expandEnv(cfg.Storage.S3.AccessKeyID)
	cfg.Storage.S3.SecretAccessKey = expandEnv(cfg.Storage.S3.SecretAccessKey)
	cfg.Storage.Azure.AccountKey = expandEnv(cfg.Storage.Azure.AccountKey)
	cfg.Security.RateLimiting.RedisPassword = expandEnv(cfg.Security.RateLimiting.RedisPassword)
	cfg.Audit.Webhook.AuthToken = expandEnv(cfg.Audit.Webhook.AuthToken)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "orbit")
	v.SetDefault("database.user", "orbit")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	// Storage defaults
	v.SetDefault("storage.default_backend", "local")
	v.SetDefault("storage.profile_images_bucket", "orbit-profile-images")
	v.SetDefault("storage.upload_url_ttl", "15m")
	v.SetDefault("storage.download_url_ttl", "1m")
	v.SetDefault("storage.orphan_sweep_interval", "1h")
	v.SetDefault("storage.local.base_path", "./storage")
	v.SetDefault("storage.local.base_url", "http://localhost:8080/storage")

	// Auth defaults
	v.SetDefault("auth.jwt.access_ttl", "15m")
	v.SetDefault("auth.jwt.refresh_ttl", "168h") // 7 days
	v.SetDefault("auth.jwt.rotate_refresh_tokens", false)
	v.SetDefault("auth.jwt.cookie_secure", false)

	// Security defaults
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 200)
	v.SetDefault("security.rate_limiting.burst", 50)
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.tls.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "orbit-backend")
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)
	v.SetDefault("telemetry.profiling.enabled", false)
	v.SetDefault("telemetry.profiling.port", 6060)

	// Audit defaults
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.file.enabled", false)
	v.SetDefault("audit.file.path", "./audit.log")
	v.SetDefault("audit.file.max_size_mb", 100)
	v.SetDefault("audit.file.max_backups", 5)
	v.SetDefault("audit.webhook.enabled", false)
	v.SetDefault("audit.webhook.timeout", "10s")
	v.SetDefault("audit.webhook.batch_size", 0)
	v.SetDefault("audit.webhook.flush_interval", "5s")
}

// expandEnv expands environment variables in the format ${VAR_NAME}
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}

	validBackends := map[string]bool{"s3": true, "gcs": true, "azure": true, "local": true}
	if !validBackends[c.Storage.DefaultBackend] {
		return fmt.Errorf("invalid storage backend: %s (must be s3, gcs, azure, or local)", c.Storage.DefaultBackend)
	}

	switch c.Storage.DefaultBackend {
	case "s3":
		if c.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required for the s3 backend")
		}
	case "azure":
		if c.Storage.Azure.AccountName == "" || c.Storage.Azure.AccountKey == "" {
			return fmt.Errorf("storage.azure.account_name and account_key are required for the azure backend")
		}
	case "local":
		if c.Storage.Local.BasePath == "" {
			return fmt.Errorf("storage.local.base_path is required for the local backend")
		}
	}

	if c.Auth.JWT.AccessTTL <= 0 {
		return fmt.Errorf("auth.jwt.access_ttl must be positive")
	}
	if c.Auth.JWT.RefreshTTL <= c.Auth.JWT.AccessTTL {
		return fmt.Errorf("auth.jwt.refresh_ttl must be longer than access_ttl")
	}

	if c.Security.TLS.Enabled {
		if c.Security.TLS.CertFile == "" || c.Security.TLS.KeyFile == "" {
			return fmt.Errorf("security.tls.cert_file and key_file are required when TLS is enabled")
		}
	}

	if c.Audit.Enabled {
		if !c.Audit.File.Enabled && !c.Audit.Webhook.Enabled {
			return fmt.Errorf("audit is enabled but no destination is; enable audit.file or audit.webhook")
		}
		if c.Audit.File.Enabled && c.Audit.File.Path == "" {
			return fmt.Errorf("audit.file.path is required when the file destination is enabled")
		}
		if c.Audit.Webhook.Enabled && c.Audit.Webhook.URL == "" {
			return fmt.Errorf("audit.webhook.url is required when the webhook destination is enabled")
		}
	}

	return nil
}
