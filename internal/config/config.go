// Package config provides configuration loading and management for the application.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/staking-dashboard/internal/types"
)

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string

	// Target network (mainnet, devnet, testnet)
	Network types.Network

	// Analytics API base URL; defaults to the network preset
	APIBaseURL string

	// Timeout for a single remote fetch
	RequestTimeout time.Duration

	// Display budget for a single chart before bucketing kicks in
	MaxChartPoints int

	// Color map persistence: JSON file path, or Redis when RedisAddr is set
	ColorStorePath string
	RedisAddr      string

	// Rate limiting for the HTTP surface
	RateLimitRPS   float64
	RateLimitBurst int

	// Circuit breaker cooldown for remote endpoints
	BreakerCooldown time.Duration

	// OpenTelemetry endpoint for observability
	OtelEndpoint string
}

// Load creates a new Config from environment variables
func Load() Config {
	network := types.Network(strings.ToLower(GetEnvOrDefault("NETWORK", string(types.NetworkMainnet))))
	if !network.Valid() {
		network = types.NetworkMainnet
	}

	return Config{
		Port:            GetEnvOrDefault("PORT", "8080"),
		Network:         network,
		APIBaseURL:      GetEnvOrDefault("API_BASE_URL", network.APIBaseURL()),
		RequestTimeout:  GetEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),
		MaxChartPoints:  GetEnvAsInt("MAX_CHART_POINTS", 100),
		ColorStorePath:  GetEnvOrDefault("COLOR_STORE_PATH", "wallet-colors.json"),
		RedisAddr:       GetEnvOrDefault("REDIS_ADDR", ""),
		RateLimitRPS:    GetEnvAsFloat("RATE_LIMIT_RPS", 10.0),
		RateLimitBurst:  GetEnvAsInt("RATE_LIMIT_BURST", 20),
		BreakerCooldown: GetEnvAsDuration("BREAKER_COOLDOWN", 30*time.Second),
		OtelEndpoint:    GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
