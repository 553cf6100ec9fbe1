package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Arca        ArcaConfig
	Flutterwave FlutterwaveConfig
	Secrets     SecretsConfig
	Directory   DirectoryConfig
	Notify      NotifyConfig
	Jobs        JobsConfig
	Logger      LoggerConfig
}

// DirectoryConfig points at the school administration API that owns student
// and school records.
type DirectoryConfig struct {
	BaseURL string
	APIKey  string
}

// NotifyConfig points at the notification service used for receipt delivery.
type NotifyConfig struct {
	BaseURL string
	APIKey  string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int
	CallbackURL string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// ArcaConfig holds the primary gateway's credentials. The provider is
// configured iff the full credential set is present.
type ArcaConfig struct {
	BaseURL       string
	APIKey        string
	SecretKey     string
	WebhookSecret string
}

// Configured reports whether the Arca credential set is complete
func (c ArcaConfig) Configured() bool {
	return c.SecretKey != "" && c.WebhookSecret != ""
}

// FlutterwaveConfig holds the fallback gateway's credentials
type FlutterwaveConfig struct {
	BaseURL   string
	PublicKey string
	SecretKey string
}

// Configured reports whether the Flutterwave credential set is complete
func (c FlutterwaveConfig) Configured() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

// SecretsConfig selects the secrets backend. Backend is "env", "local" or
// "aws"; env reads credentials straight from the environment.
type SecretsConfig struct {
	Backend   string
	LocalPath string
	AWSRegion string
}

// JobsConfig holds background job intervals and thresholds
type JobsConfig struct {
	StaleSweepInterval time.Duration
	StaleAfter         time.Duration
	OverdueInterval    time.Duration
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort: getEnvAsInt("METRICS_PORT", 9090),
			CallbackURL: getEnv("PAYMENT_CALLBACK_URL", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "fee_payment_service"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Arca: ArcaConfig{
			BaseURL:       getEnv("ARCA_BASE_URL", "https://api.arca.ng"),
			APIKey:        getEnv("ARCA_API_KEY", ""),
			SecretKey:     getEnv("ARCA_SECRET_KEY", ""),
			WebhookSecret: getEnv("ARCA_WEBHOOK_SECRET", ""),
		},
		Flutterwave: FlutterwaveConfig{
			BaseURL:   getEnv("FLW_BASE_URL", "https://api.flutterwave.com/v3"),
			PublicKey: getEnv("FLW_PUBLIC_KEY", ""),
			SecretKey: getEnv("FLW_SECRET_KEY", ""),
		},
		Secrets: SecretsConfig{
			Backend:   getEnv("SECRETS_BACKEND", "env"),
			LocalPath: getEnv("SECRETS_LOCAL_PATH", "./secrets"),
			AWSRegion: getEnv("AWS_REGION", "af-south-1"),
		},
		Directory: DirectoryConfig{
			BaseURL: getEnv("DIRECTORY_BASE_URL", "http://localhost:8081"),
			APIKey:  getEnv("DIRECTORY_API_KEY", ""),
		},
		Notify: NotifyConfig{
			BaseURL: getEnv("NOTIFY_BASE_URL", ""),
			APIKey:  getEnv("NOTIFY_API_KEY", ""),
		},
		Jobs: JobsConfig{
			StaleSweepInterval: getEnvAsDuration("STALE_SWEEP_INTERVAL", 5*time.Minute),
			StaleAfter:         getEnvAsDuration("STALE_AFTER", 30*time.Minute),
			OverdueInterval:    getEnvAsDuration("OVERDUE_INTERVAL", 24*time.Hour),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if !cfg.Arca.Configured() && !cfg.Flutterwave.Configured() {
		return nil, fmt.Errorf("at least one payment gateway must be configured")
	}

	return cfg, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
