package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Upstream UpstreamConfig
	JWT      JWTConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	Liveness LivenessConfig
	Punch    PunchConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	Timezone           string
	CORSAllowedOrigins []string
}

// UpstreamConfig describes the remote HRMS API.
type UpstreamConfig struct {
	BaseURL      string
	Timeout      time.Duration
	PunchTimeout time.Duration
	MarkedBy     string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// DatabaseConfig is optional; without it punch audits stay in memory.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
}

// RedisConfig is optional; without it sessions, state and locks stay in memory.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// AMQPConfig is optional; without a URL punch events are dropped.
type AMQPConfig struct {
	URL      string
	Exchange string
}

type LivenessConfig struct {
	// EnforcePixel runs pixel heuristics for native captures too.
	EnforcePixel bool
}

type PunchConfig struct {
	LockTTL         time.Duration
	AuditRetention  time.Duration
	MaintenanceTick time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	} else if err != nil {
		log.Println("No .env file found, reading configuration from the environment")
	}

	config := &Config{}
	var err error

	// Application configuration
	config.App = AppConfig{
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Timezone:           getEnv("APP_TIMEZONE", "Asia/Kolkata"),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:8081", "http://localhost:19006"}),
	}
	if config.App.Port, err = getEnvInt("APP_PORT", 8080); err != nil {
		return nil, err
	}

	// Upstream configuration
	config.Upstream = UpstreamConfig{
		BaseURL:  strings.TrimRight(getEnv("HRMS_BASE_URL", ""), "/"),
		MarkedBy: getEnv("MARKED_BY", "mobile"),
	}
	if config.Upstream.Timeout, err = getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if config.Upstream.PunchTimeout, err = getEnvDuration("UPSTREAM_PUNCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "24h"),
	}

	// Database configuration
	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "hris_bff"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
	if config.Database.Enabled, err = getEnvBool("DB_ENABLED", false); err != nil {
		return nil, err
	}
	if config.Database.Port, err = getEnvInt("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if config.Database.MaxConns, err = getEnvInt("DB_MAX_CONNS", 10); err != nil {
		return nil, err
	}

	// Redis configuration
	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
	}
	if config.Redis.Enabled, err = getEnvBool("REDIS_ENABLED", false); err != nil {
		return nil, err
	}
	if config.Redis.DB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// AMQP configuration
	config.AMQP = AMQPConfig{
		URL:      getEnv("AMQP_URL", ""),
		Exchange: getEnv("AMQP_EXCHANGE", "hris.attendance"),
	}

	// Liveness configuration
	if config.Liveness.EnforcePixel, err = getEnvBool("LIVENESS_ENFORCE_PIXEL", false); err != nil {
		return nil, err
	}

	// Punch configuration
	if config.Punch.LockTTL, err = getEnvDuration("PUNCH_LOCK_TTL", 90*time.Second); err != nil {
		return nil, err
	}
	if config.Punch.AuditRetention, err = getEnvDuration("AUDIT_RETENTION", 90*24*time.Hour); err != nil {
		return nil, err
	}
	if config.Punch.MaintenanceTick, err = getEnvDuration("MAINTENANCE_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("HRMS_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Upstream.BaseURL, "http://") && !strings.HasPrefix(c.Upstream.BaseURL, "https://") {
		return fmt.Errorf("HRMS_BASE_URL must start with http:// or https://")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	if c.Database.Enabled && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required when DB_ENABLED is true")
	}
	if c.Upstream.Timeout <= 0 || c.Upstream.PunchTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT and UPSTREAM_PUNCH_TIMEOUT must be positive")
	}
	if minTTL := c.MinPunchLockTTL(); c.Punch.LockTTL < minTTL {
		return fmt.Errorf("PUNCH_LOCK_TTL must be at least %s (UPSTREAM_PUNCH_TIMEOUT + 2*UPSTREAM_TIMEOUT + %s)", minTTL, punchLockMargin)
	}
	return nil
}

// punchLockMargin covers capture, liveness and encoding around the upstream calls.
const punchLockMargin = 10 * time.Second

// MinPunchLockTTL is the shortest lock that outlives a punch: the prior
// action fetch, the punch itself and the refetch run back to back.
func (c *Config) MinPunchLockTTL() time.Duration {
	return c.Upstream.PunchTimeout + 2*c.Upstream.Timeout + punchLockMargin
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the configured business timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
