package app

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/joho/godotenv"
)

// Store drivers selectable with ACCOUNTS_STORE.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"
)

// testTokenSecret signs tokens when ENV=test and no secret is configured,
// so fixtures can mint tokens the service accepts.
const testTokenSecret = "accounts-test-token-secret-0123456789"

type Config struct {
	Env                 string        // Environment (development, test, production) (default: development)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	Store        string // Store driver (sqlite, postgres, dynamodb, memory) (default: sqlite)
	DatabaseFile string // SQLite database file (default: accounts.db)
	DatabaseURL  string // Postgres connection string

	// DynamoDB table names per environment. TableName picks one.
	Table     string // default: users
	TableDev  string // default: users_dev
	TableTest string // default: users_test

	DynamoDBEndpoint    string // Optional: endpoint override, e.g. DynamoDB Local
	DynamoDBCreateTable bool   // Optional: create the table on startup when missing
	AWSRegion           string // default: eu-north-1
	AWSAccessKeyID      string // Optional: falls back to the default credential chain
	AWSSecretAccessKey  string

	FieldKey    string        // Key for encrypting names and dates of birth (32 bytes)
	TokenSecret string        // HS256 secret for access tokens (at least 32 bytes)
	Issuer      string        // Token issuer (default: accounts)
	TokenTTL    time.Duration // Access token lifetime (default: 1h)
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory if there is one.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Env:                 getEnvOrDefault("ENV", "development"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		Store:        strings.ToLower(getEnvOrDefault("ACCOUNTS_STORE", StoreSQLite)),
		DatabaseFile: getEnvOrDefault("ACCOUNTS_DATABASE_FILE", "accounts.db"),
		DatabaseURL:  os.Getenv("ACCOUNTS_DATABASE_URL"),

		Table:     getEnvOrDefault("ACCOUNTS_TABLE", "users"),
		TableDev:  getEnvOrDefault("ACCOUNTS_TABLE_DEV", "users_dev"),
		TableTest: getEnvOrDefault("ACCOUNTS_TABLE_TEST", "users_test"),

		DynamoDBEndpoint:    os.Getenv("ACCOUNTS_DYNAMODB_ENDPOINT"),
		DynamoDBCreateTable: getEnvBoolOrDefault("ACCOUNTS_DYNAMODB_CREATE_TABLE", false),
		AWSRegion:           getEnvOrDefault("AWS_REGION", "eu-north-1"),
		AWSAccessKeyID:      os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:  os.Getenv("AWS_SECRET_ACCESS_KEY"),

		FieldKey:    os.Getenv("ACCOUNTS_FIELD_KEY"),
		TokenSecret: os.Getenv("ACCOUNTS_TOKEN_SECRET"),
		Issuer:      getEnvOrDefault("ACCOUNTS_ISSUER", "accounts"),
		TokenTTL:    getEnvDurationOrDefault("ACCOUNTS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
	}
}

// Validate reports configuration that would stop the service from starting.
func (c Config) Validate() error {
	var errs []error

	switch c.Store {
	case StoreSQLite, StoreMemory, StoreDynamoDB:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("ACCOUNTS_DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store))
	}

	if c.FieldKey != "" && len(c.FieldKey) != cryptox.FieldKeySize {
		errs = append(errs, fmt.Errorf("ACCOUNTS_FIELD_KEY: %w", cryptox.ErrFieldKeySize))
	}
	if c.TokenSecret != "" && len(c.TokenSecret) < jwtx.MinSecretSize {
		errs = append(errs, fmt.Errorf("ACCOUNTS_TOKEN_SECRET: %w", jwtx.ErrWeakSecret))
	}

	if c.Env == "production" {
		if c.FieldKey == "" {
			errs = append(errs, errors.New("ACCOUNTS_FIELD_KEY is required in production"))
		}
		if c.TokenSecret == "" {
			errs = append(errs, errors.New("ACCOUNTS_TOKEN_SECRET is required in production"))
		}
	}

	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("ACCOUNTS_TOKEN_TTL must be positive"))
	}

	return errors.Join(errs...)
}

// TableName is the DynamoDB table for the environment.
func (c Config) TableName() string {
	switch c.Env {
	case "production":
		return c.Table
	case "test":
		return c.TableTest
	default:
		return c.TableDev
	}
}

// FieldCipherKey selects the field encryption key. ephemeral is true when a
// random key was generated for this process.
func (c Config) FieldCipherKey() (key []byte, ephemeral bool, err error) {
	return cryptox.SelectFieldKey(c.Env, c.FieldKey)
}

// SigningSecret selects the token secret following the same rules as the
// field key.
func (c Config) SigningSecret() (secret []byte, ephemeral bool, err error) {
	if c.TokenSecret != "" {
		if len(c.TokenSecret) < jwtx.MinSecretSize {
			return nil, false, jwtx.ErrWeakSecret
		}
		return []byte(c.TokenSecret), false, nil
	}

	switch c.Env {
	case "test":
		return []byte(testTokenSecret), false, nil
	case "production":
		return nil, false, errors.New("a token secret is required in production")
	}

	secret = make([]byte, jwtx.MinSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, false, fmt.Errorf("failed to generate ephemeral token secret: %w", err)
	}
	return secret, true, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
