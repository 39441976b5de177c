package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds validated environment configuration
type Config struct {
	// Port the chat server listens on (plain TCP).
	Port string

	// OpsAddr is the host:port of the operational HTTP listener serving
	// /metrics and /health endpoints. Empty disables it.
	OpsAddr string

	// Optional variables with defaults
	LogLevel        string
	DevelopmentMode bool
}

const defaultPort = "8080"

// ValidateEnv validates all environment variables and returns a Config object
// Returns an error if any variable is invalid
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errors []string

	// Optional: PORT (valid port number, defaults to 8080)
	cfg.Port = getEnvOrDefault("PORT", defaultPort)
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	// Optional: OPS_ADDR (host:port, defaults to :9090, empty disables)
	cfg.OpsAddr = getEnvOrDefault("OPS_ADDR", ":9090")
	if cfg.OpsAddr != "" && !isValidListenAddr(cfg.OpsAddr) {
		errors = append(errors, fmt.Sprintf("OPS_ADDR must be in format 'host:port' or ':port' (got '%s')", cfg.OpsAddr))
	}

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.DevelopmentMode = os.Getenv("DEVELOPMENT_MODE") == "true"

	// If there are validation errors, return them
	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	// Log validated configuration
	slog.Info("Environment configuration validated",
		"port", cfg.Port,
		"ops_addr", cfg.OpsAddr,
		"log_level", cfg.LogLevel,
		"development_mode", cfg.DevelopmentMode,
	)

	return cfg, nil
}

// ListenAddr returns the chat listener address for the configured port.
func (c *Config) ListenAddr() string {
	return "0.0.0.0:" + c.Port
}

// isValidListenAddr checks if a string is in the format "host:port" where
// host may be empty (listen on all interfaces)
func isValidListenAddr(addr string) bool {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return false
	}

	port, err := strconv.Atoi(addr[idx+1:])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	return true
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
