// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the
// application. A .env file in the working directory is loaded first when
// present, so local development needs no exported shell variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection (notices, users)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible session store)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Media storage
	MediaRoot   string // directory for uploaded assets
	CatalogPath string // backing JSON document for the media catalog
	VipsThreads int    // libvips worker threads, 0 = auto

	// Optional S3-compatible evidence archive
	ArchiveEndpoint  string
	ArchiveRegion    string
	ArchiveAccessKey string
	ArchiveSecretKey string
	ArchiveBucket    string
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	// Best-effort: absence of a .env file is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "fahndung"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "fahndung"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		MediaRoot:   envOrDefault("MEDIA_ROOT", "public/uploads"),
		CatalogPath: os.Getenv("MEDIA_CATALOG"),

		ArchiveEndpoint:  os.Getenv("ARCHIVE_S3_ENDPOINT"),
		ArchiveRegion:    envOrDefault("ARCHIVE_S3_REGION", "eu-central-1"),
		ArchiveAccessKey: os.Getenv("ARCHIVE_S3_ACCESS_KEY"),
		ArchiveSecretKey: os.Getenv("ARCHIVE_S3_SECRET_KEY"),
		ArchiveBucket:    envOrDefault("ARCHIVE_S3_BUCKET", "fahndung-archive"),
	}

	if cfg.CatalogPath == "" {
		cfg.CatalogPath = filepath.Join("data", "media-database.json")
	}

	if v := os.Getenv("VIPS_THREADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("VIPS_THREADS must be a non-negative integer, got %q", v)
		}
		cfg.VipsThreads = n
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
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

// ArchiveConfigured reports whether the optional evidence archive has
// enough settings to be enabled.
func (c *Config) ArchiveConfigured() bool {
	return c.ArchiveEndpoint != "" && c.ArchiveAccessKey != "" && c.ArchiveSecretKey != ""
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
