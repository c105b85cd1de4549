/*
Package config loads server configuration from the environment.

PURPOSE:
  Centralizes every tunable with a typed default. Values come from
  environment variables; cmd/server loads a local .env file first so
  development setups don't have to export anything.

VARIABLES:
  PORT                    HTTP port (default 8080)
  DATABASE_PATH           SQLite path, ":memory:" allowed (default points.db)
  SWEEP_INTERVAL          Background sweep cadence (default 1h)
  SWEEP_ENABLED           Disable the scheduler entirely (default true)
  EARN_RATE               Points per currency unit spent (default 1)
  DEFAULT_TTL_DAYS        Expiry for reasons without their own (default 365)
  CATALOG_FILE            Optional JSON reason catalog path
  LOG_LEVEL               zap level: debug, info, warn, error (default info)
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the server's runtime settings.
type Config struct {
	Port           int
	DatabasePath   string
	SweepInterval  time.Duration
	SweepEnabled   bool
	EarnRate       decimal.Decimal
	DefaultTTLDays int
	CatalogFile    string
	LogLevel       string
}

// Load reads configuration from the environment with typed defaults.
func Load() (*Config, error) {
	sweepInterval, err := getEnvDuration("SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}
	earnRate, err := getEnvDecimal("EARN_RATE", decimal.NewFromInt(1))
	if err != nil {
		return nil, err
	}
	if earnRate.Sign() <= 0 {
		return nil, fmt.Errorf("EARN_RATE must be positive, got %s", earnRate)
	}
	ttlDays := getEnvInt("DEFAULT_TTL_DAYS", 365)
	if ttlDays <= 0 {
		return nil, fmt.Errorf("DEFAULT_TTL_DAYS must be positive, got %d", ttlDays)
	}

	return &Config{
		Port:           getEnvInt("PORT", 8080),
		DatabasePath:   getEnvString("DATABASE_PATH", "points.db"),
		SweepInterval:  sweepInterval,
		SweepEnabled:   getEnvBool("SWEEP_ENABLED", true),
		EarnRate:       earnRate,
		DefaultTTLDays: ttlDays,
		CatalogFile:    getEnvString("CATALOG_FILE", ""),
		LogLevel:       getEnvString("LOG_LEVEL", "info"),
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		parsed, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		return parsed, nil
	}
	return defaultValue, nil
}
