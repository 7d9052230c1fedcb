package config

import (
	"os"
)

// Store kinds selectable via TASK_STORE.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	ServerPort string

	// Store settings
	MongoURI      string
	MongoDatabase string
	StoreKind     string

	// OpenTelemetry settings
	OTLPEndpoint string
	ServiceName  string
	Environment  string
}

// Load returns configuration from environment variables with sensible
// defaults. Without a MONGODB_URI the in-memory store is selected, so the
// server runs locally with no database.
func Load() *Config {
	cfg := &Config{
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "taskmanager"),
		StoreKind:     getEnv("TASK_STORE", StoreMongo),
		OTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:   getEnv("OTEL_SERVICE_NAME", "taskboard"),
		Environment:   getEnv("ENVIRONMENT", "development"),
	}
	if cfg.MongoURI == "" {
		cfg.StoreKind = StoreMemory
	}
	return cfg
}

// Development reports whether the server runs in development mode, where
// error responses include internal detail.
func (c *Config) Development() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
