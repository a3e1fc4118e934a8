// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	// Document store
	MongoURI      string
	MongoDatabase string

	// Import settings
	BatchSize int

	// Geocoder
	GeocoderEndpoint  string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration

	// Custom fields never exposed on imported elements
	PrivateCustomFields []string

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from a .env file when present, then from
// environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env file is fine: plain environment variables still apply.
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:       getEnv("MONGO_DATABASE", "geodir"),
		BatchSize:           getEnvAsInt("IMPORT_BATCH_SIZE", 100),
		GeocoderEndpoint:    getEnv("GEOCODER_ENDPOINT", "https://nominatim.openstreetmap.org/search"),
		GeocoderUserAgent:   getEnv("GEOCODER_USER_AGENT", "geodir-ingress"),
		GeocoderTimeout:     time.Duration(getEnvAsInt("GEOCODER_TIMEOUT_MS", 10000)) * time.Millisecond,
		PrivateCustomFields: getEnvAsSlice("PRIVATE_CUSTOM_FIELDS"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return errors.New("document store URI is required")
	}

	if c.MongoDatabase == "" {
		return errors.New("document store database name is required")
	}

	if c.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}

	if c.GeocoderTimeout < 0 {
		return errors.New("geocoder timeout cannot be negative")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return nil
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
