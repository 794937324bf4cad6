package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port               string        // Service port
	ResourceDir        string        // Directory holding B2C configuration resources
	DefaultConfig      string        // Resource initialized at startup, empty to wait for init
	AuthSharedSecret   string        // Secret the application shell presents on /methods and /events
	RedisURL           string        // Optional Redis for the operation event stream
	EventStream        string        // Redis stream key
	EventReplaySize    int           // Results kept for reconnecting SSE consumers
	SSEHeartbeat       time.Duration // Interval between SSE keep-alive comments
	AuthResultCapacity int           // Auth results cached per subject
	MethodRateLimit    float64       // Method calls per second per client and method
	MethodRateBurst    int           // Burst allowed above MethodRateLimit
	MaxArgsBytes       int64         // Largest accepted method argument body
	GatewayTimeout     time.Duration // Bound on identity service round trips
	InteractiveTimeout time.Duration // Bound on a browser sign-in waiting for the user
	HSTS               bool          // Send Strict-Transport-Security
}

// LoadDotEnv loads a .env file when one is present. A missing file is not
// an error.
func LoadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	config := &Config{
		Port:             getEnv("PORT", "8890"),
		ResourceDir:      getEnv("B2C_RESOURCE_DIR", "./resources"),
		DefaultConfig:    getEnv("B2C_DEFAULT_CONFIG", ""),
		AuthSharedSecret: getEnv("AUTH_SHARED_SECRET", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		EventStream:      getEnv("EVENT_STREAM", "b2c:operations"),
		HSTS:             getEnv("HSTS_ENABLED", "false") == "true",
	}

	var errs []error
	config.EventReplaySize = parseInt("EVENT_REPLAY_SIZE", 128, &errs)
	config.AuthResultCapacity = parseInt("AUTH_RESULT_CAPACITY", 256, &errs)
	config.MethodRateBurst = parseInt("METHOD_RATE_BURST", 20, &errs)
	config.MaxArgsBytes = int64(parseInt("METHOD_MAX_ARGS_BYTES", 64<<10, &errs))
	config.SSEHeartbeat = parseDuration("SSE_HEARTBEAT", 15*time.Second, &errs)
	config.GatewayTimeout = parseDuration("GATEWAY_TIMEOUT", 10*time.Second, &errs)
	config.InteractiveTimeout = parseDuration("INTERACTIVE_TIMEOUT", 5*time.Minute, &errs)

	config.MethodRateLimit = 10
	if v := os.Getenv("METHOD_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid METHOD_RATE_LIMIT format: %w", err))
		}
		config.MethodRateLimit = f
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	if c.ResourceDir == "" {
		return fmt.Errorf("B2C_RESOURCE_DIR cannot be empty")
	}

	if c.RedisURL != "" && c.EventStream == "" {
		return fmt.Errorf("EVENT_STREAM cannot be empty when REDIS_URL is set")
	}

	if c.EventReplaySize <= 0 {
		return fmt.Errorf("EVENT_REPLAY_SIZE must be positive")
	}

	if c.AuthResultCapacity <= 0 {
		return fmt.Errorf("AUTH_RESULT_CAPACITY must be positive")
	}

	if c.MethodRateLimit <= 0 || c.MethodRateBurst <= 0 {
		return fmt.Errorf("METHOD_RATE_LIMIT and METHOD_RATE_BURST must be positive")
	}

	if c.MaxArgsBytes <= 0 {
		return fmt.Errorf("METHOD_MAX_ARGS_BYTES must be positive")
	}

	if c.SSEHeartbeat <= 0 {
		return fmt.Errorf("SSE_HEARTBEAT must be positive")
	}

	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}

	if c.InteractiveTimeout <= 0 {
		return fmt.Errorf("INTERACTIVE_TIMEOUT must be positive")
	}

	return nil
}

func parseInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s format: %w", key, err))
		return fallback
	}
	return n
}

func parseDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s format: %w", key, err))
		return fallback
	}
	return d
}

// getEnv retrieves an environment variable or returns a fallback value
func getEnv(key, fallback string) string {
	// Check for _FILE suffix
	if fileValue := os.Getenv(key + "_FILE"); fileValue != "" {
		content, err := os.ReadFile(fileValue)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
