package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	Hub    HubConfig
	Replay ReplayConfig
}

// HubConfig holds settings shared by every hub in a graph
type HubConfig struct {
	MaxCacheSize int
}

// ReplayConfig holds replay harness configuration
type ReplayConfig struct {
	QuotesFile     string   // CSV file; empty means synthetic quotes
	QuoteCount     int      // number of synthetic quotes
	Seed           int64    // synthetic quote seed
	Chain          []string // indicator chain steps, e.g. sma:5
	Warmup         int      // quotes loaded in one batch before streaming
	LateEvery      int      // hold back every Nth quote and insert it late (0 disables)
	ResendEvery    int      // resend every Nth quote as a duplicate (0 disables)
	VWAPLookback   int      // rolling VWAP over the quote hub (0 disables)
	ReportInterval time.Duration
	DumpMetrics    bool
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Hub: HubConfig{
			MaxCacheSize: getEnvAsInt("HUB_MAX_CACHE_SIZE", 100_000),
		},
		Replay: ReplayConfig{
			QuotesFile:     getEnv("REPLAY_QUOTES_FILE", ""),
			QuoteCount:     getEnvAsInt("REPLAY_QUOTE_COUNT", 502),
			Seed:           int64(getEnvAsInt("REPLAY_SEED", 1)),
			Chain:          getEnvAsStringSlice("REPLAY_CHAIN", []string{"sma:5", "ema:10"}),
			Warmup:         getEnvAsInt("REPLAY_WARMUP", 20),
			LateEvery:      getEnvAsInt("REPLAY_LATE_EVERY", 25),
			ResendEvery:    getEnvAsInt("REPLAY_RESEND_EVERY", 10),
			VWAPLookback:   getEnvAsInt("REPLAY_VWAP_LOOKBACK", 20),
			ReportInterval: getEnvAsDuration("REPLAY_REPORT_INTERVAL", time.Second),
			DumpMetrics:    getEnvAsBool("REPLAY_DUMP_METRICS", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Hub.MaxCacheSize < 1 {
		return fmt.Errorf("HUB_MAX_CACHE_SIZE must be positive, got %d", c.Hub.MaxCacheSize)
	}
	if c.Replay.QuotesFile == "" && c.Replay.QuoteCount < 1 {
		return fmt.Errorf("REPLAY_QUOTE_COUNT must be positive, got %d", c.Replay.QuoteCount)
	}
	if len(c.Replay.Chain) == 0 {
		return fmt.Errorf("REPLAY_CHAIN must contain at least one step")
	}
	if c.Replay.Warmup < 0 {
		return fmt.Errorf("REPLAY_WARMUP cannot be negative, got %d", c.Replay.Warmup)
	}
	if c.Replay.LateEvery < 0 || c.Replay.ResendEvery < 0 || c.Replay.VWAPLookback < 0 {
		return fmt.Errorf("REPLAY_LATE_EVERY, REPLAY_RESEND_EVERY and REPLAY_VWAP_LOOKBACK cannot be negative")
	}
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
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
