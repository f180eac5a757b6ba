package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/turnstile/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Gateway       GatewayConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// RedisConfig holds billing info cache configuration
type RedisConfig struct {
	Enabled  bool
	URL      string
	Password string
	DB       int
	TTL      time.Duration
}

// GatewayConfig holds external billing gateway configuration
type GatewayConfig struct {
	BaseURL   string
	SecretKey string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	// How far ahead the expiry sweeper looks
	ExpiryWindow time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("TURNSTILE_HOST", "0.0.0.0"),
			Port:            getEnv("TURNSTILE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("TURNSTILE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("TURNSTILE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("TURNSTILE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("TURNSTILE_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("TURNSTILE_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:         getEnv("TURNSTILE_POSTGRES_URL", ""),
			MaxConns:    getEnvInt("TURNSTILE_POSTGRES_MAX_CONNS", 25),
			MinConns:    getEnvInt("TURNSTILE_POSTGRES_MIN_CONNS", 5),
			Timeout:     getEnvDuration("TURNSTILE_POSTGRES_TIMEOUT", 10*time.Second),
			MaxLifetime: getEnvDuration("TURNSTILE_POSTGRES_MAX_LIFETIME", 30*time.Minute),
			MaxIdleTime: getEnvDuration("TURNSTILE_POSTGRES_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("TURNSTILE_CACHE_ENABLED", false),
			URL:      getEnv("TURNSTILE_REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("TURNSTILE_REDIS_PASSWORD", ""),
			DB:       getEnvInt("TURNSTILE_REDIS_DB", 0),
			TTL:      getEnvDuration("TURNSTILE_CACHE_TTL", 5*time.Minute),
		},
		Gateway: GatewayConfig{
			BaseURL:   getEnv("TURNSTILE_BILLING_API_URL", ""),
			SecretKey: getEnv("TURNSTILE_BILLING_API_SECRET_KEY", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("TURNSTILE_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("TURNSTILE_METRICS_ENABLED", true),
			ExpiryWindow:   getEnvDuration("TURNSTILE_EXPIRY_WINDOW", 7*24*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required when caching is enabled")
	}
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
