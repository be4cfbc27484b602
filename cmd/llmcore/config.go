package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process configuration loaded from environment variables.
type Config struct {
	LogLevel string // debug, info, warn, error

	// Catalog is an optional YAML catalog replacing the embedded one.
	Catalog string

	// Defaults for call, stream and serve
	Provider string
	Model    string
	User     string

	// Server
	Port string

	// Dispatch
	Timeout     time.Duration
	MaxAttempts int
	PollBudget  time.Duration

	// Usage ledgers
	LogUsage      bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MySQLDSN      string

	// Event sinks
	AMQPURL   string
	AMQPQueue string
}

// LoadConfig loads configuration from environment variables.
// It loads a .env file if present (silent fail if not found).
func LoadConfig() (*Config, error) {
	godotenv.Load() // Load .env file if present

	cfg := &Config{
		LogLevel:      getEnvOrDefault("LLMCORE_LOG_LEVEL", "info"),
		Catalog:       os.Getenv("LLMCORE_CATALOG"),
		Provider:      os.Getenv("LLMCORE_PROVIDER"),
		Model:         os.Getenv("LLMCORE_MODEL"),
		User:          os.Getenv("LLMCORE_USER"),
		Port:          getEnvOrDefault("LLMCORE_PORT", "8000"),
		Timeout:       getEnvDurationOrDefault("LLMCORE_TIMEOUT", 2*time.Minute),
		MaxAttempts:   getEnvIntOrDefault("LLMCORE_MAX_ATTEMPTS", 3),
		PollBudget:    getEnvDurationOrDefault("LLMCORE_POLL_BUDGET", 30*time.Second),
		LogUsage:      getEnvBoolOrDefault("LLMCORE_LOG_USAGE", true),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),
		MySQLDSN:      os.Getenv("MYSQL_DSN"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		AMQPQueue:     getEnvOrDefault("AMQP_QUEUE", "llmcore.events"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("LLMCORE_MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("LLMCORE_TIMEOUT must be positive, got %s", c.Timeout)
	}
	if c.PollBudget <= 0 {
		return fmt.Errorf("LLMCORE_POLL_BUDGET must be positive, got %s", c.PollBudget)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s (must be debug, info, warn, or error)", s)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
