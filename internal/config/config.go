// Package config handles loading and validating configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the extraction service.
type Config struct {
	// Explorer API
	EtherscanAPIKey  string
	EtherscanBaseURL string

	// Historical price API
	PriceAPIKey  string
	PriceBaseURL string

	// Pipeline
	MaxTransactions int
	HTTPTimeout     time.Duration

	// Storage
	PostgresDSN   string
	ClickhouseDSN string

	// Server
	ListenAddr  string
	MetricsAddr string
}

// Load reads configuration from environment variables with fallback to a
// .env file. Priority order: environment variables > .env file > defaults.
// API credentials have no working defaults; Validate fails fast when the
// explorer key is missing.
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		EtherscanAPIKey:  getEnv("ETHERSCAN_API_KEY", ""),
		EtherscanBaseURL: getEnv("ETHERSCAN_BASE_URL", ""),

		PriceAPIKey:  getEnv("PRICE_API_KEY", ""),
		PriceBaseURL: getEnv("PRICE_BASE_URL", ""),

		MaxTransactions: getEnvInt("MAX_TRANSACTIONS_PER_ADDRESS", 0),
		HTTPTimeout:     time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,

		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickhouseDSN: getEnv("CLICKHOUSE_DSN", ""),

		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
// The price API key is not required: missing pricing degrades to the
// oracle's fallback curve rather than blocking extraction.
func (c *Config) Validate() error {
	if c.EtherscanAPIKey == "" {
		return fmt.Errorf("ETHERSCAN_API_KEY is required")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive")
	}
	if c.MaxTransactions < 0 {
		return fmt.Errorf("MAX_TRANSACTIONS_PER_ADDRESS must not be negative")
	}
	return nil
}

// getEnv reads a string environment variable with a default.
func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// getEnvInt reads an integer environment variable with a default.
func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
