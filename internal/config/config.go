// Package config loads runtime configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	RPC      RPCConfig
	Scan     ScanConfig
	Detect   DetectConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Server   ServerConfig
}

// RPCConfig holds Solana node configuration
type RPCConfig struct {
	URL        string
	WSURL      string
	Encoding   string
	Commitment string
	Timeout    time.Duration
	MaxRetries int
}

// ScanConfig bounds fetching
type ScanConfig struct {
	RateLimit        float64 // requests per second
	Burst            int
	FetchConcurrency int
	PollInterval     time.Duration
}

// DetectConfig tunes grouping and classification
type DetectConfig struct {
	Workers            int
	ArbitrageProfile   string
	MaxIndexGap        int
	RequireRepeatActor bool
}

// DatabaseConfig holds store DSNs. An empty DSN disables that store.
type DatabaseConfig struct {
	PostgresDSN   string
	ClickHouseDSN string
	Redis         RedisConfig
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// ServerConfig holds listen addresses
type ServerConfig struct {
	APIAddr     string
	MetricsAddr string
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := &Config{
		RPC: RPCConfig{
			URL:        getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
			WSURL:      getEnv("SOLANA_WS_URL", ""),
			Encoding:   getEnv("SOLANA_RPC_ENCODING", "json"),
			Commitment: getEnv("SOLANA_COMMITMENT", "confirmed"),
			Timeout:    getEnvAsDuration("SOLANA_RPC_TIMEOUT", 30*time.Second),
			MaxRetries: getEnvAsInt("SOLANA_RPC_MAX_RETRIES", 3),
		},
		Scan: ScanConfig{
			RateLimit:        getEnvAsFloat("RPC_RATE_LIMIT", 5),
			Burst:            getEnvAsInt("RPC_BURST", 5),
			FetchConcurrency: getEnvAsInt("FETCH_CONCURRENCY", 4),
			PollInterval:     getEnvAsDuration("SCAN_POLL_INTERVAL", 2*time.Second),
		},
		Detect: DetectConfig{
			Workers:            getEnvAsInt("DETECT_WORKERS", runtime.NumCPU()),
			ArbitrageProfile:   getEnv("ARBITRAGE_PROFILE", "permissive"),
			MaxIndexGap:        getEnvAsInt("MEV_MAX_INDEX_GAP", 0),
			RequireRepeatActor: getEnvAsBool("MEV_REQUIRE_REPEAT_ACTOR", false),
		},
		Database: DatabaseConfig{
			PostgresDSN:   getEnv("POSTGRES_DSN", ""),
			ClickHouseDSN: getEnv("CLICKHOUSE_DSN", ""),
			Redis: RedisConfig{
				Addr:     getEnv("REDIS_ADDR", ""),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvAsInt("REDIS_DB", 0),
			},
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Server: ServerConfig{
			APIAddr:     getEnv("API_ADDR", ":8080"),
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the scanner cannot run with.
func (c *Config) Validate() error {
	if c.RPC.URL == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if c.RPC.Encoding != "json" && c.RPC.Encoding != "base64" {
		return fmt.Errorf("SOLANA_RPC_ENCODING must be json or base64, got %q", c.RPC.Encoding)
	}
	if c.Scan.RateLimit <= 0 {
		return fmt.Errorf("RPC_RATE_LIMIT must be positive")
	}
	if c.Scan.Burst < 1 {
		return fmt.Errorf("RPC_BURST must be at least 1")
	}
	if c.Scan.FetchConcurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be at least 1")
	}
	if c.Detect.Workers < 1 {
		return fmt.Errorf("DETECT_WORKERS must be at least 1")
	}
	if c.Detect.MaxIndexGap < 0 {
		return fmt.Errorf("MEV_MAX_INDEX_GAP must not be negative")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}
