package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Account store backends
const (
	AccountStorePostgres = "postgres"
	AccountStoreCoreBank = "corebank"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Auth0
	Auth0Domain   string
	Auth0Audience string
	Auth0ClientID string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// AccountStore selects where accounts are read and settled
	AccountStore string
	CoreBank     CoreBankConfig

	// Redis is optional; when set, events fan out across instances
	RedisURL string

	// ClosureRateLimit is the number of closure requests per minute per operator
	ClosureRateLimit int

	// S3 voucher archive
	S3 S3Config
}

// CoreBankConfig holds the core banking REST API configuration
type CoreBankConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
}

// Enabled reports whether a voucher bucket is configured
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	timeout, err := time.ParseDuration(getEnv("COREBANK_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid COREBANK_TIMEOUT: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("CLOSURE_RATE_LIMIT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOSURE_RATE_LIMIT: %w", err)
	}

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		Auth0Domain:   getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience: getEnv("AUTH0_AUDIENCE", ""),
		Auth0ClientID: getEnv("AUTH0_CLIENT_ID", ""),
		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:           getEnv("ENV", "development"),
		AccountStore:  strings.ToLower(getEnv("ACCOUNT_STORE", AccountStorePostgres)),
		CoreBank: CoreBankConfig{
			BaseURL: strings.TrimRight(getEnv("COREBANK_BASE_URL", ""), "/"),
			APIKey:  getEnv("COREBANK_API_KEY", ""),
			Timeout: timeout,
		},
		RedisURL:         getEnv("REDIS_URL", ""),
		ClosureRateLimit: rateLimit,
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS, set for MinIO/LocalStack
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required")
	}
	switch c.AccountStore {
	case AccountStorePostgres:
	case AccountStoreCoreBank:
		if c.CoreBank.BaseURL == "" {
			return fmt.Errorf("COREBANK_BASE_URL is required when ACCOUNT_STORE=%s", AccountStoreCoreBank)
		}
	default:
		return fmt.Errorf("ACCOUNT_STORE must be %q or %q", AccountStorePostgres, AccountStoreCoreBank)
	}
	if c.ClosureRateLimit <= 0 {
		return fmt.Errorf("CLOSURE_RATE_LIMIT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
