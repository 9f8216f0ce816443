// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"hslookup/internal/lookup"
)

// Dataset sources accepted in DATA_SOURCE.
const (
	SourceFile = "file"
	SourceS3   = "s3"
	SourceDB   = "db"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// Dataset
	DataSource     string // "file", "s3", "db"
	DataPath       string
	DataWatch      bool
	PageSize       int
	PageIncrement  int
	SearchDebounce time.Duration

	// SQL store
	DBDriver   string // "postgres", "sqlite"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	PageCacheTTL   time.Duration

	// API requests allowed per IP per minute
	APIRateLimit int

	// S3-compatible object storage
	S3Endpoint   string
	S3Region     string
	S3AccessKey  string
	S3SecretKey  string
	S3Bucket     string
	S3DataKey    string
	S3PublicURL  string
	ExportPrefix string
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error for malformed numbers
// or durations, unknown enum values, and values that must be set in
// production.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DataSource:     envOrDefault("DATA_SOURCE", SourceFile),
		DataPath:       envOrDefault("DATA_PATH", "data/hs10_lookup.json"),
		DataWatch:      envBool("DATA_WATCH", false, &errs),
		PageSize:       envInt("PAGE_SIZE", lookup.DefaultPageSize, &errs),
		PageIncrement:  envInt("PAGE_INCREMENT", lookup.DefaultIncrement, &errs),
		SearchDebounce: envDuration("SEARCH_DEBOUNCE", lookup.DefaultDebounce, &errs),

		DBDriver:   envOrDefault("DB_DRIVER", "postgres"),
		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "hslookup"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "hslookup"),
		SQLitePath: envOrDefault("SQLITE_PATH", "data/hslookup.db"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),
		PageCacheTTL:   envDuration("PAGE_CACHE_TTL", 5*time.Minute, &errs),

		APIRateLimit: envInt("API_RATE_LIMIT", 120, &errs),

		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		S3Region:     envOrDefault("S3_REGION", "fsn1"),
		S3AccessKey:  os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:  os.Getenv("S3_SECRET_KEY"),
		S3Bucket:     envOrDefault("S3_BUCKET", "hslookup"),
		S3DataKey:    envOrDefault("S3_DATA_KEY", "data/hs10_lookup.json"),
		S3PublicURL:  os.Getenv("S3_PUBLIC_URL"),
		ExportPrefix: envOrDefault("EXPORT_PREFIX", "site"),
	}

	switch cfg.DataSource {
	case SourceFile, SourceS3, SourceDB:
	default:
		errs = append(errs, fmt.Errorf("DATA_SOURCE must be file, s3 or db, got %q", cfg.DataSource))
	}
	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.DBDriver))
	}
	if cfg.DataSource == SourceS3 && cfg.S3Endpoint == "" {
		errs = append(errs, fmt.Errorf("S3_ENDPOINT must be set when DATA_SOURCE=s3"))
	}
	if cfg.PageSize <= 0 || cfg.PageIncrement <= 0 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE and PAGE_INCREMENT must be positive"))
	}
	if cfg.APIRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("API_RATE_LIMIT must be positive"))
	}

	if cfg.Env == "production" {
		if cfg.DBDriver == "postgres" && cfg.DBPassword == "changeme" {
			errs = append(errs, fmt.Errorf("POSTGRES_PASSWORD must be set in production"))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DSN returns the connection string for the configured SQL driver: a
// PostgreSQL URL, or the SQLite file path.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Paging returns the display limit rules.
func (c *Config) Paging() lookup.Paging {
	return lookup.Paging{PageSize: c.PageSize, Increment: c.PageIncrement}
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return fallback
	}
	return n
}

func envBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return fallback
	}
	return d
}
