package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port     string
	LogLevel string

	// Database configuration
	DBType            string // mysql, postgres, sqlite, sqlite-pure, sqlserver
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int

	// Authorizer configuration, optional
	AuthzURL      string
	AuthzClientID string

	// Query cache entries
	CacheSize int
}

// Load loads configuration from environment variables, after preloading
// ENV_FILE (or ./.env when present).
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	dbType := strings.ToLower(getEnv("DB_TYPE", "mysql"))
	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		DBType:            dbType,
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", defaultPort(dbType)),
		DBDatabase:        getEnv("DB_DATABASE", ""),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBConnectionLimit: getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		AuthzURL:          getEnv("AUTHZ_URL", ""),
		AuthzClientID:     getEnv("AUTHZ_CLIENT_ID", ""),
		CacheSize:         getEnvAsInt("CACHE_SIZE", 512),
	}

	// Validate required fields
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if !IsSQLite(cfg.DBType) && cfg.DBUser == "" {
		return nil, fmt.Errorf("DB_USER is required for %s", cfg.DBType)
	}
	if cfg.AuthzURL != "" && cfg.AuthzClientID == "" {
		return nil, fmt.Errorf("AUTHZ_CLIENT_ID is required when AUTHZ_URL is set")
	}
	if cfg.DBConnectionLimit < 1 {
		cfg.DBConnectionLimit = 1
	}

	return cfg, nil
}

// AuthEnabled reports whether mutating routes require an authorizer session.
func (c *Config) AuthEnabled() bool {
	return c.AuthzURL != ""
}

// IsSQLite reports whether dbType selects one of the sqlite drivers.
func IsSQLite(dbType string) bool {
	return dbType == "sqlite" || dbType == "sqlite-pure"
}

func defaultPort(dbType string) string {
	switch dbType {
	case "postgres", "postgresql":
		return "5432"
	case "sqlserver", "mssql":
		return "1433"
	case "sqlite", "sqlite-pure":
		return ""
	}
	return "3306"
}

func loadEnvFile() error {
	if name := os.Getenv("ENV_FILE"); name != "" {
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("failed to load environment file %s: %w", name, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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
