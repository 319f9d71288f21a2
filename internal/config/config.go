// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	DataDir         string // Base directory for all databases (always absolute)
	LogLevel        string
	Port            int
	DevMode         bool
	InitialBalance  decimal.Decimal // Cash every new account starts with
	QuantityScale   int32           // Decimal places a share quantity may carry (0 = whole shares)
	LeaderboardSize int
	Polygon         PolygonConfig
	Backup          BackupConfig
}

// PolygonConfig holds market data API settings
type PolygonConfig struct {
	APIKey  string
	BaseURL string
}

// BackupConfig holds ledger backup settings for S3-compatible storage
type BackupConfig struct {
	Enabled       bool
	Endpoint      string // Empty uses the AWS default endpoint
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	Schedule      string // Cron expression with seconds field
	RetentionDays int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PAPERTRADE_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	initial, err := decimal.NewFromString(getEnv("INITIAL_BALANCE", "10000"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse INITIAL_BALANCE: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("GO_PORT", 8001),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		InitialBalance:  initial,
		QuantityScale:   int32(getEnvAsInt("QUANTITY_SCALE", 8)),
		LeaderboardSize: getEnvAsInt("LEADERBOARD_SIZE", 10),
		Polygon: PolygonConfig{
			APIKey:  getEnv("POLYGON_API_KEY", ""),
			BaseURL: strings.TrimRight(getEnv("POLYGON_BASE_URL", "https://api.polygon.io"), "/"),
		},
		Backup: BackupConfig{
			Enabled:       getEnvAsBool("BACKUP_ENABLED", false),
			Endpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:        getEnv("BACKUP_S3_REGION", "us-east-1"),
			Bucket:        getEnv("BACKUP_S3_BUCKET", ""),
			AccessKey:     getEnv("BACKUP_S3_ACCESS_KEY", ""),
			SecretKey:     getEnv("BACKUP_S3_SECRET_KEY", ""),
			Schedule:      getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
			RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configured values are usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if !c.InitialBalance.IsPositive() {
		return fmt.Errorf("initial balance must be positive, got %s", c.InitialBalance)
	}
	if c.QuantityScale < 0 || c.QuantityScale > 12 {
		return fmt.Errorf("quantity scale must be between 0 and 12, got %d", c.QuantityScale)
	}
	if c.LeaderboardSize <= 0 {
		return fmt.Errorf("leaderboard size must be positive, got %d", c.LeaderboardSize)
	}
	if c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("BACKUP_S3_BUCKET is required when backups are enabled")
		}
		if c.Backup.RetentionDays < 0 {
			return fmt.Errorf("backup retention must not be negative, got %d", c.Backup.RetentionDays)
		}
	}
	// Polygon key is optional: without it every lookup fails with SYMBOL_NOT_FOUND
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
