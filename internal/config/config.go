package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all settings for the service, loaded from environment
// variables (optionally via a .env file).
type Config struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// Square API access.
	SquareBaseURL     string
	SquareAccessToken string
	SquareVersion     string

	// Sync behaviour.
	SyncSchedule      string // 6-field cron expression, seconds first
	SyncEpoch         string // window start used when no watermark exists yet
	RunTimeout        time.Duration
	RequestsPerSecond float64
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabasePath:      getEnv("DB_PATH", "salesync.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		SquareBaseURL:     getEnv("SQUARE_BASE_URL", "https://connect.squareup.com"),
		SquareAccessToken: os.Getenv("SQUARE_ACCESS_TOKEN"),
		SquareVersion:     getEnv("SQUARE_VERSION", "2024-07-17"),
		SyncSchedule:      getEnv("SYNC_SCHEDULE", "0 30 7 * * *"),
		SyncEpoch:         getEnv("SYNC_EPOCH", "2024-01-01T00:00:00Z"),
		RunTimeout:        getEnvAsDuration("RUN_TIMEOUT", 10*time.Minute),
		RequestsPerSecond: getEnvAsFloat("SQUARE_REQUESTS_PER_SECOND", 10),
	}

	if cfg.SquareAccessToken == "" {
		return nil, fmt.Errorf("SQUARE_ACCESS_TOKEN is required")
	}
	if _, err := time.Parse(time.RFC3339, cfg.SyncEpoch); err != nil {
		return nil, fmt.Errorf("SYNC_EPOCH must be RFC3339: %w", err)
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or
// returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s (%q), using default: %s", key, valueStr, fallback)
	return fallback
}

// getEnvAsFloat retrieves an environment variable as a float64 or returns a
// fallback.
func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil && value > 0 {
		return value
	}
	log.Printf("Invalid float value for %s (%q), using default: %g", key, valueStr, fallback)
	return fallback
}
