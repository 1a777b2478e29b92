package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer      string // Issuer claim for device tokens (default: slidetab-pairing)
	UserinfoURL string // Required: identity provider userinfo endpoint for link approval

	NumKeys      int           // Optional: number of signing keys to generate (default: 3, min: 1, max: 10)
	DatabaseFile string        // Optional: path to SQLite database file (default: ./pairing.db)
	CodeTTL      time.Duration // Pairing code lifetime (default: 5m)
	PollInterval time.Duration // Suggested exchange polling cadence (default: 5s)
	TokenTTL     time.Duration // Device token lifetime (default: 1h)
	GraceWindow  time.Duration // Duplicate-exchange replay window (default: 10s)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               getEnvOrDefault("PAIRING_ISSUER", "slidetab-pairing"),
		UserinfoURL:          os.Getenv("PAIRING_USERINFO_URL"),
		DatabaseFile:         getEnvOrDefault("PAIRING_DATABASE_FILE", "pairing.db"),
		CodeTTL:              getEnvDurationOrDefault("PAIRING_CODE_TTL", 0),
		PollInterval:         getEnvDurationOrDefault("PAIRING_POLL_INTERVAL", 0),
		TokenTTL:             getEnvDurationOrDefault("PAIRING_TOKEN_TTL", 0),
		GraceWindow:          getEnvDurationOrDefault("PAIRING_EXCHANGE_GRACE", 0),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	// Parse number of signing keys (default handled by the key manager)
	if numKeysStr := os.Getenv("PAIRING_NUM_KEYS"); numKeysStr != "" {
		if numKeys, err := strconv.Atoi(numKeysStr); err == nil {
			cfg.NumKeys = numKeys
		}
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Accept duration strings ("5m", "90s") or bare integer minutes
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
