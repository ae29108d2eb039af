// Package config manages application configuration
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Local store drivers
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Media drivers
const (
	MediaLocal = "local"
	MediaS3    = "s3"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        string `env:"AUDIOGUIDE_PORT" env-default:"8080"`
	Environment string `env:"AUDIOGUIDE_ENV" env-default:"development"` // "development" or "production"
	LogLevel    string `env:"AUDIOGUIDE_LOG_LEVEL" env-default:"info"`

	// Database
	DatabaseURL string `env:"AUDIOGUIDE_DATABASE_URL" env-default:"audioguide.db"`

	// Security
	SecretKey string `env:"AUDIOGUIDE_SECRET_KEY" env-default:"dev-secret-key-change-in-production"`

	// Session settings
	SessionDuration time.Duration `env:"AUDIOGUIDE_SESSION_DURATION" env-default:"24h"`

	// Administrator identity. DemoAdmin is "auto", "on" or "off"; auto enables
	// the demo credential pair everywhere except production.
	AdminEmail        string `env:"AUDIOGUIDE_ADMIN_EMAIL" env-default:"admin@audioguide.com"`
	DemoAdmin         string `env:"AUDIOGUIDE_DEMO_ADMIN" env-default:"auto"`
	DemoAdminPassword string `env:"AUDIOGUIDE_DEMO_ADMIN_PASSWORD" env-default:"admin123"`

	// Device-local persisted store
	LocalStore string `env:"AUDIOGUIDE_LOCAL_STORE" env-default:"sqlite"`
	Redis      Redis

	// File storage
	MediaDriver        string `env:"AUDIOGUIDE_MEDIA_DRIVER" env-default:"local"`
	PublicStorageURL   string `env:"AUDIOGUIDE_PUBLIC_STORAGE_URL" env-default:"http://localhost:8080"`
	S3                 S3
	CheckoutDelay      time.Duration `env:"AUDIOGUIDE_CHECKOUT_DELAY" env-default:"2s"`
	DeviceCookieSecure bool          `env:"AUDIOGUIDE_DEVICE_COOKIE_SECURE" env-default:"false"`
}

// Redis holds connection settings for the redis local store
type Redis struct {
	Addr     string `env:"AUDIOGUIDE_REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"AUDIOGUIDE_REDIS_PASSWORD"`
	DB       int    `env:"AUDIOGUIDE_REDIS_DB" env-default:"0"`
}

// S3 holds connection settings for the s3 media driver
type S3 struct {
	Endpoint  string `env:"AUDIOGUIDE_S3_ENDPOINT"`
	AccessKey string `env:"AUDIOGUIDE_S3_ACCESS_KEY"`
	SecretKey string `env:"AUDIOGUIDE_S3_SECRET_KEY"`
	UseSSL    bool   `env:"AUDIOGUIDE_S3_USE_SSL" env-default:"false"`
}

// Load reads configuration from an optional .env file and environment
// variables with sensible defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	switch c.LocalStore {
	case StoreSQLite, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown local store %q", c.LocalStore)
	}

	switch c.MediaDriver {
	case MediaLocal, MediaS3:
	default:
		return fmt.Errorf("unknown media driver %q", c.MediaDriver)
	}

	switch strings.ToLower(c.DemoAdmin) {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("demo admin must be auto, on or off, got %q", c.DemoAdmin)
	}

	if c.SessionDuration <= 0 {
		return errors.New("session duration must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DemoAdminEnabled reports whether the demo administrator credential pair is
// accepted without consulting the identity provider
func (c *Config) DemoAdminEnabled() bool {
	switch strings.ToLower(c.DemoAdmin) {
	case "on":
		return true
	case "off":
		return false
	default:
		return !c.IsProduction()
	}
}
