// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	JWT        JWTConfig        `json:"jwt"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Deployment DeploymentConfig `json:"deployment"`
	Dispatch   DispatchConfig   `json:"dispatch"`
	Webhook    WebhookConfig    `json:"webhook"`
	Provider   ProviderConfig   `json:"provider"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Events     EventsConfig     `json:"events"`
	Sentry     SentryConfig     `json:"sentry"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
	AutoMigrate     bool          `json:"auto_migrate"`
	MigrationsDir   string        `json:"migrations_dir"`
}

// DSN renders the libpq connection string shared by gorm and the migration runner
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	BodyLimit         int           `json:"body_limit"`
	EnableCompression bool          `json:"enable_compression"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per window
	RateLimitWindow time.Duration `json:"rate_limit_window"`
}

// JWTConfig describes how upstream-issued access tokens are verified
type JWTConfig struct {
	SecretKey      string        `json:"secret_key"`
	PublicKey      string        `json:"public_key"`   // RSA public key in PEM format
	UseRSAKeys     bool          `json:"use_rsa_keys"` // Whether to use RSA keys instead of secret key
	AccessTokenTTL time.Duration `json:"access_token_ttl"`
	Issuer         string        `json:"issuer"`
	Audience       string        `json:"audience"`
}

type LoggingConfig struct {
	Level        string `json:"level"`  // debug, info, warn, error
	Format       string `json:"format"` // json, text
	Output       string `json:"output"` // stdout, file, both
	FilePath     string `json:"file_path"`
	MaxSize      int    `json:"max_size"` // MB
	MaxBackups   int    `json:"max_backups"`
	MaxAge       int    `json:"max_age"` // days
	Compress     bool   `json:"compress"`
	EnableCaller bool   `json:"enable_caller"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	Provider        string        `json:"provider"` // redis
	RedisURL        string        `json:"redis_url"`
	RedisDB         int           `json:"redis_db"`
	RedisPrefix     string        `json:"redis_prefix"`
	DefaultTTL      time.Duration `json:"default_ttl"`
	LockTTL         time.Duration `json:"lock_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
}

// DispatchConfig bounds a single dispatch session and the seeder
type DispatchConfig struct {
	SessionDuration    time.Duration `json:"session_duration"`     // SESSION_MS
	ContactsPerSession int           `json:"contacts_per_session"` // shared across all campaigns
	SendGap            time.Duration `json:"send_gap"`             // GAP_MS
	MaxIdleRounds      int           `json:"max_idle_rounds"`
	DefaultRegion      string        `json:"default_region"`
	SeederChunkSize    int           `json:"seeder_chunk_size"`
	ReconcilePageSize  int           `json:"reconcile_page_size"`
	CallViaProvider    bool          `json:"call_via_provider"`
}

type WebhookConfig struct {
	DefaultURL           string        `json:"default_url"`
	PullSize             int           `json:"pull_size"`
	DefaultRatePerSecond float64       `json:"default_rate_per_second"`
	Timeout              time.Duration `json:"timeout"`
}

// ProviderConfig addresses the external calling platform
type ProviderConfig struct {
	Name           string        `json:"name"`
	BaseURL        string        `json:"base_url"`
	APIKey         string        `json:"api_key"`
	PhoneNumberID  string        `json:"phone_number_id"`
	AssistantID    string        `json:"assistant_id"`
	WorkflowID     string        `json:"workflow_id"`
	EarliestAt     string        `json:"earliest_at"`
	LatestAt       string        `json:"latest_at"`
	MaxPerCampaign int           `json:"max_per_campaign"`
	Timeout        time.Duration `json:"timeout"`
	WebhookSecret  string        `json:"webhook_secret"`
}

type SchedulerConfig struct {
	Enabled         bool     `json:"enabled"`
	OwnerIDs        []uint   `json:"owner_ids"`
	CallSessionSpec string   `json:"call_session_spec"`
	WebhookPassSpec string   `json:"webhook_pass_spec"`
	ReconcileSpec   string   `json:"reconcile_spec"`
	WebhookChannels []string `json:"webhook_channels"`
}

type EventsConfig struct {
	AMQPURL string `json:"amqp_url"`
	Queue   string `json:"queue"`
}

type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// A missing .env file is fine; real deployments use the process environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "susanoo"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", false),
			MigrationsDir:   getEnvString("DB_MIGRATIONS_DIR", "migrations"),
		},
		Server: ServerConfig{
			Host:              getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:         getEnvInt("SERVER_BODY_LIMIT", 4*1024*1024), // 4MB
			EnableCompression: getEnvBool("SERVER_ENABLE_COMPRESSION", true),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			CORSMaxAge:       getEnvInt("CORS_MAX_AGE", 86400),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 600),
			RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		JWT: JWTConfig{
			SecretKey:      getEnvString("JWT_SECRET_KEY", ""),
			PublicKey:      getEnvString("JWT_PUBLIC_KEY", ""),
			UseRSAKeys:     getEnvBool("JWT_USE_RSA_KEYS", false),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
			Issuer:         getEnvString("JWT_ISSUER", "susanoo"),
			Audience:       getEnvString("JWT_AUDIENCE", "susanoo-api"),
		},
		Logging: LoggingConfig{
			Level:        getEnvString("LOG_LEVEL", "info"),
			Format:       getEnvString("LOG_FORMAT", "json"),
			Output:       getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:     getEnvString("LOG_FILE_PATH", "data/susanoo.log"),
			MaxSize:      getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:   getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAge:       getEnvInt("LOG_MAX_AGE", 30),
			Compress:     getEnvBool("LOG_COMPRESS", true),
			EnableCaller: getEnvBool("LOG_ENABLE_CALLER", false),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:         getEnvBool("CACHE_ENABLED", false),
			Provider:        getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:        getEnvString("REDIS_URL", "redis://localhost:6379/0"),
			RedisDB:         getEnvInt("REDIS_DB", 0),
			RedisPrefix:     getEnvString("REDIS_PREFIX", "susanoo:"),
			DefaultTTL:      getEnvDuration("CACHE_DEFAULT_TTL", 24*time.Hour),
			LockTTL:         getEnvDuration("CACHE_LOCK_TTL", 10*time.Minute),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 30*time.Second),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("APP_VERSION", "dev"),
			CommitHash:  getEnvString("APP_COMMIT_HASH", ""),
		},
		Dispatch: DispatchConfig{
			SessionDuration:    getEnvMillis("SESSION_MS", 55*time.Second),
			ContactsPerSession: getEnvInt("CONTACTS_PER_SESSION", 10),
			SendGap:            getEnvMillis("GAP_MS", 1500*time.Millisecond),
			MaxIdleRounds:      getEnvInt("DISPATCH_MAX_IDLE_ROUNDS", 1),
			DefaultRegion:      getEnvString("DISPATCH_DEFAULT_REGION", "US"),
			SeederChunkSize:    getEnvInt("SEEDER_CHUNK_SIZE", 500),
			ReconcilePageSize:  getEnvInt("RECONCILE_PAGE_SIZE", 500),
			CallViaProvider:    getEnvBool("DISPATCH_CALL_VIA_PROVIDER", false),
		},
		Webhook: WebhookConfig{
			DefaultURL:           getEnvString("WHATSAPP_WEBHOOK_URL", ""),
			PullSize:             getEnvInt("WEBHOOK_PULL_SIZE", 5),
			DefaultRatePerSecond: getEnvFloat("WEBHOOK_DEFAULT_RATE_PER_SECOND", 1),
			Timeout:              getEnvDuration("WEBHOOK_TIMEOUT", 15*time.Second),
		},
		Provider: ProviderConfig{
			Name:           getEnvString("PROVIDER_NAME", "vapi"),
			BaseURL:        getEnvString("PROVIDER_BASE_URL", "https://api.vapi.ai"),
			APIKey:         getEnvString("PROVIDER_API_KEY", ""),
			PhoneNumberID:  getEnvString("PROVIDER_PHONE_NUMBER_ID", ""),
			AssistantID:    getEnvString("PROVIDER_ASSISTANT_ID", ""),
			WorkflowID:     getEnvString("PROVIDER_WORKFLOW_ID", ""),
			EarliestAt:     getEnvString("PROVIDER_SCHEDULE_EARLIEST_AT", ""),
			LatestAt:       getEnvString("PROVIDER_SCHEDULE_LATEST_AT", ""),
			MaxPerCampaign: getEnvInt("MAX_PER_CAMPAIGN", 500),
			Timeout:        getEnvDuration("PROVIDER_TIMEOUT", 60*time.Second),
			WebhookSecret:  getEnvString("PROVIDER_WEBHOOK_SECRET", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:         getEnvBool("SCHEDULER_ENABLED", false),
			OwnerIDs:        getEnvUintSlice("SCHEDULER_OWNER_IDS", nil),
			CallSessionSpec: getEnvString("SCHEDULER_CALL_SESSION_SPEC", "@every 1m"),
			WebhookPassSpec: getEnvString("SCHEDULER_WEBHOOK_PASS_SPEC", "@every 1m"),
			ReconcileSpec:   getEnvString("SCHEDULER_RECONCILE_SPEC", "@every 5m"),
			WebhookChannels: getEnvStringSlice("SCHEDULER_WEBHOOK_CHANNELS", []string{"whatsapp"}),
		},
		Events: EventsConfig{
			AMQPURL: getEnvString("EVENTS_AMQP_URL", ""),
			Queue:   getEnvString("EVENTS_AMQP_QUEUE", "dispatch_events"),
		},
		Sentry: SentryConfig{
			DSN:              getEnvString("SENTRY_DSN", ""),
			Environment:      getEnvString("SENTRY_ENVIRONMENT", getEnvString("APP_ENV", "production")),
			TracesSampleRate: getEnvFloat("SENTRY_TRACES_SAMPLE_RATE", 0),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvMillis reads a plain integer of milliseconds, also accepting Go duration syntax
func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

func getEnvUintSlice(key string, defaultValue []uint) []uint {
	items := getEnvStringSlice(key, nil)
	if len(items) == 0 {
		return defaultValue
	}
	result := make([]uint, 0, len(items))
	for _, item := range items {
		parsed, err := strconv.ParseUint(item, 10, 64)
		if err != nil || parsed == 0 {
			continue
		}
		result = append(result, uint(parsed))
	}
	return result
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errs []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errs = append(errs, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errs = append(errs, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errs = append(errs, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errs = append(errs, "DB_USER is required")
	}

	// Validate JWT configuration
	if cfg.JWT.UseRSAKeys {
		if cfg.JWT.PublicKey == "" {
			errs = append(errs, "JWT_PUBLIC_KEY is required when JWT_USE_RSA_KEYS is set")
		}
	} else if len(cfg.JWT.SecretKey) < 32 {
		errs = append(errs, "JWT_SECRET_KEY must be at least 32 characters long")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 || cfg.Server.IdleTimeout <= 0 {
		errs = append(errs, "SERVER_*_TIMEOUT values must be positive")
	}

	// Validate dispatch configuration
	if cfg.Dispatch.SessionDuration <= 0 {
		errs = append(errs, "SESSION_MS must be positive")
	}
	if cfg.Dispatch.ContactsPerSession <= 0 {
		errs = append(errs, "CONTACTS_PER_SESSION must be positive")
	}
	if cfg.Dispatch.SendGap < 0 {
		errs = append(errs, "GAP_MS must not be negative")
	}
	if cfg.Dispatch.MaxIdleRounds <= 0 {
		errs = append(errs, "DISPATCH_MAX_IDLE_ROUNDS must be positive")
	}
	if cfg.Dispatch.SeederChunkSize <= 0 {
		errs = append(errs, "SEEDER_CHUNK_SIZE must be positive")
	}
	if cfg.Webhook.PullSize <= 0 {
		errs = append(errs, "WEBHOOK_PULL_SIZE must be positive")
	}
	if cfg.Webhook.DefaultRatePerSecond <= 0 {
		errs = append(errs, "WEBHOOK_DEFAULT_RATE_PER_SECOND must be positive")
	}

	// Validate provider configuration
	if cfg.Provider.MaxPerCampaign <= 0 || cfg.Provider.MaxPerCampaign > 500 {
		errs = append(errs, "MAX_PER_CAMPAIGN must be between 1 and 500")
	}
	if cfg.Provider.AssistantID != "" && cfg.Provider.WorkflowID != "" {
		errs = append(errs, "only one of PROVIDER_ASSISTANT_ID and PROVIDER_WORKFLOW_ID may be set")
	}
	for key, value := range map[string]string{
		"PROVIDER_SCHEDULE_EARLIEST_AT": cfg.Provider.EarliestAt,
		"PROVIDER_SCHEDULE_LATEST_AT":   cfg.Provider.LatestAt,
	} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, value); err != nil {
			errs = append(errs, key+" must be an RFC3339 timestamp")
		}
	}

	// Validate scheduler configuration
	if cfg.Scheduler.Enabled && len(cfg.Scheduler.OwnerIDs) == 0 {
		errs = append(errs, "SCHEDULER_OWNER_IDS is required when SCHEDULER_ENABLED is set")
	}

	if cfg.Sentry.TracesSampleRate < 0 || cfg.Sentry.TracesSampleRate > 1 {
		errs = append(errs, "SENTRY_TRACES_SAMPLE_RATE must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
