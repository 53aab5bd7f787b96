package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// PKFare provider configuration
	PKFare PKFareConfig

	// Redis configuration
	Redis RedisConfig

	// Order status poller configuration
	Poller PollerConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration.
// Access tokens are issued by the agency auth service; this API only verifies them.
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration // only used when minting development tokens
}

// PKFareConfig holds the provider credentials and webhook secret
type PKFareConfig struct {
	BaseURL          string
	PartnerID        string
	PartnerKey       string // SECRET - never log
	Timeout          time.Duration
	BreakerThreshold int64
	WebhookToken     string // SECRET - shared with the provider for X-Pkfare-Token
}

// RedisConfig holds the search cache configuration
type RedisConfig struct {
	URL            string // empty disables the search cache
	SearchCacheTTL time.Duration
}

// PollerConfig holds the order status poller configuration
type PollerConfig struct {
	Enabled    bool
	Schedule   string // cron expression with seconds field
	StaleAfter time.Duration
	BatchSize  int
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRequestLog bool
	EnableAuditLog   bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY_MINUTES", 60)) * time.Minute,
		},
		PKFare: PKFareConfig{
			BaseURL:          getEnv("PKFARE_BASE_URL", "https://api.pkfare.com"),
			PartnerID:        getEnv("PKFARE_PARTNER_ID", ""),
			PartnerKey:       getEnv("PKFARE_PARTNER_KEY", ""),
			Timeout:          time.Duration(getEnvAsInt("PKFARE_TIMEOUT_SECONDS", 60)) * time.Second,
			BreakerThreshold: int64(getEnvAsInt("PKFARE_BREAKER_THRESHOLD", 5)),
			WebhookToken:     getEnv("PKFARE_WEBHOOK_TOKEN", ""),
		},
		Redis: RedisConfig{
			URL:            getEnv("REDIS_URL", ""),
			SearchCacheTTL: time.Duration(getEnvAsInt("SEARCH_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Poller: PollerConfig{
			Enabled:    getEnvAsBool("ORDER_POLL_ENABLED", false),
			Schedule:   getEnv("ORDER_POLL_SCHEDULE", "0 */10 * * * *"),
			StaleAfter: time.Duration(getEnvAsInt("ORDER_POLL_STALE_MINUTES", 15)) * time.Minute,
			BatchSize:  getEnvAsInt("ORDER_POLL_BATCH", 50),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.PKFare.PartnerID == "" {
		return fmt.Errorf("PKFARE_PARTNER_ID is required")
	}

	if c.PKFare.PartnerKey == "" {
		return fmt.Errorf("PKFARE_PARTNER_KEY is required")
	}

	if c.PKFare.Timeout <= 0 {
		return fmt.Errorf("PKFARE_TIMEOUT_SECONDS must be positive")
	}

	// Without a token every webhook delivery is rejected
	if c.IsProduction() && c.PKFare.WebhookToken == "" {
		return fmt.Errorf("PKFARE_WEBHOOK_TOKEN is required in production")
	}

	if c.Poller.Enabled && c.Poller.BatchSize <= 0 {
		return fmt.Errorf("ORDER_POLL_BATCH must be positive when the poller is enabled")
	}

	return nil
}

// IsProduction reports whether the server runs in production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
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
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
