// Package config provides configuration management for the GreenCoach service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ulule/limiter/v3"
)

const defaultJWTSecret = "dev-secret-key-change-in-production"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Email     EmailConfig
	Redis     RedisConfig
	AMQP      AMQPConfig
	CO2       CO2Config
	News      NewsConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port               string
	Environment        string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
}

// AuthConfig holds authentication-related configuration
type AuthConfig struct {
	JWTSecret          string
	JWTAccessTokenTTL  time.Duration
	JWTRefreshTokenTTL time.Duration
	ResetCodeTTL       time.Duration
}

// EmailConfig holds email service configuration
type EmailConfig struct {
	Provider       string // Email provider: "console", "mailgun" or "mock"
	MailgunDomain  string
	MailgunAPIKey  string
	MailgunAPIBase string // e.g. https://api.eu.mailgun.net for the EU region
	FromAddress    string
	FromName       string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                   string
	Host                  string
	Port                  string
	Name                  string
	User                  string
	Password              string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
	AutoMigrate           bool
}

// RedisConfig holds the optional Redis connection used for caching and rate limiting.
// An empty URL disables Redis.
type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

// AMQPConfig holds the optional RabbitMQ connection used for community events.
// An empty URL disables publishing.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// CO2Config points at the Our World in Data emissions CSV.
type CO2Config struct {
	BaseURL       string
	CSVPath       string
	YearsLimit    int
	ClientTimeout time.Duration
}

// NewsConfig holds Naver search API settings.
type NewsConfig struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	Display       int
	ClientTimeout time.Duration
}

// RateLimitConfig holds rates in ulule/limiter format, e.g. "100-M".
type RateLimitConfig struct {
	General string
	Auth    string
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	clientTimeout := getEnvAsDuration("HTTP_CLIENT_TIMEOUT", "5s")

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			Environment:        getEnv("APP_ENV", "development"),
			ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", "10s"),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			URL:                   GetSecret("DATABASE_URL", ""),
			Host:                  getEnv("DB_HOST", "localhost"),
			Port:                  getEnv("DB_PORT", "5432"),
			Name:                  getEnv("DB_NAME", "greencoach"),
			User:                  getEnv("DB_USER", "greencoach"),
			Password:              GetSecret("DB_PASSWORD", "greencoach"),
			SSLMode:               getEnv("DB_SSLMODE", "disable"),
			MaxConnections:        getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConnections:    getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
			ConnectionMaxLifetime: getEnvAsDuration("DB_CONNECTION_MAX_LIFETIME", "5m"),
			AutoMigrate:           getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Auth: AuthConfig{
			JWTSecret:          GetSecret("JWT_SECRET", defaultJWTSecret),
			JWTAccessTokenTTL:  getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", "24h"),
			JWTRefreshTokenTTL: getEnvAsDuration("JWT_REFRESH_TOKEN_TTL", "720h"), // 30 days
			ResetCodeTTL:       getEnvAsDuration("RESET_CODE_TTL", "20m"),
		},
		Email: EmailConfig{
			Provider:       getEnv("EMAIL_PROVIDER", "console"),
			MailgunDomain:  GetSecret("MAILGUN_DOMAIN", ""),
			MailgunAPIKey:  GetSecret("MAILGUN_API_KEY", ""),
			MailgunAPIBase: getEnv("MAILGUN_API_BASE", ""),
			FromAddress:    getEnv("EMAIL_FROM_ADDRESS", "noreply@greencoach.app"),
			FromName:       getEnv("EMAIL_FROM_NAME", "GreenCoach"),
		},
		Redis: RedisConfig{
			URL:      GetSecret("REDIS_URL", ""),
			CacheTTL: getEnvAsDuration("CACHE_TTL", "10m"),
		},
		AMQP: AMQPConfig{
			URL:      GetSecret("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "greencoach.community"),
		},
		CO2: CO2Config{
			BaseURL:       getEnv("CO2_BASE_URL", "https://raw.githubusercontent.com"),
			CSVPath:       getEnv("CO2_CSV_PATH", "/owid/co2-data/master/owid-co2-data.csv"),
			YearsLimit:    getEnvAsInt("CO2_YEARS_LIMIT", 10),
			ClientTimeout: clientTimeout,
		},
		News: NewsConfig{
			BaseURL:       getEnv("NAVER_BASE_URL", "https://openapi.naver.com"),
			ClientID:      GetSecret("NAVER_CLIENT_ID", ""),
			ClientSecret:  GetSecret("NAVER_CLIENT_SECRET", ""),
			Display:       getEnvAsInt("NEWS_DISPLAY", 5),
			ClientTimeout: clientTimeout,
		},
		RateLimit: RateLimitConfig{
			General: getEnv("RATE_LIMIT_GENERAL", "100-M"),
			Auth:    getEnv("RATE_LIMIT_AUTH", "10-M"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Email.Provider == "mailgun" {
		if c.Email.MailgunAPIKey == "" {
			return errors.New("MAILGUN_API_KEY is required when EMAIL_PROVIDER=mailgun")
		}
		if c.Email.MailgunDomain == "" {
			return errors.New("MAILGUN_DOMAIN is required when EMAIL_PROVIDER=mailgun")
		}
	}

	if c.IsProduction() && c.Auth.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set when APP_ENV=production")
	}

	if _, err := limiter.NewRateFromFormatted(c.RateLimit.General); err != nil {
		return fmt.Errorf("invalid RATE_LIMIT_GENERAL %q: %w", c.RateLimit.General, err)
	}
	if _, err := limiter.NewRateFromFormatted(c.RateLimit.Auth); err != nil {
		return fmt.Errorf("invalid RATE_LIMIT_AUTH %q: %w", c.RateLimit.Auth, err)
	}

	if c.CO2.YearsLimit <= 0 {
		return errors.New("CO2_YEARS_LIMIT must be positive")
	}

	return nil
}

// IsProduction reports whether the service runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ConnectionString returns the database connection string
func (d *DatabaseConfig) ConnectionString() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
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

// getEnvAsBool gets an environment variable as a boolean or returns a default value
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

// getEnvAsDuration gets an environment variable as a duration or returns a default value
func getEnvAsDuration(key, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		defaultDuration, _ := time.ParseDuration(defaultValue)
		return defaultDuration
	}
	return value
}

// getEnvAsList splits a comma separated variable, dropping blank entries
func getEnvAsList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
