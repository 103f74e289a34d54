package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Store paths
	DatabasePath string // Embedded store file
	BackupDir    string // Rotated backup copies plus metadata sidecar
	LedgerPath   string // BoltDB import ledger

	// Import settings
	ChunkSize      int // Lines per parse chunk
	BatchSize      int // Records per InsertBatch call
	CommitInterval int // Rows between intermediate commits during bulk insert
	MaxBackups     int // Rotated backups to keep

	// Parameter registry
	RegistryOverlayPath string // Optional YAML overlay with extra parameter definitions

	// Validation settings
	DuplicateWindowSec int // Readings closer than this are duplicate suspects
	MaxTimestampGapHrs int // Gaps larger than this are flagged

	// Observability
	LogLevel       string
	LogFile        string
	TracingEnabled bool
	OTLPEndpoint   string
	OTLPProtocol   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath: getEnv("HALOG_DB_PATH", "data/database/halog_water.db"),
		BackupDir:    getEnv("HALOG_BACKUP_DIR", "data/backups"),
		LedgerPath:   getEnv("HALOG_LEDGER_PATH", "data/import_ledger.db"),

		ChunkSize:      getEnvInt("CHUNK_SIZE", 1000),
		BatchSize:      getEnvInt("BATCH_SIZE", 1000),
		CommitInterval: getEnvInt("COMMIT_INTERVAL", 10000),
		MaxBackups:     getEnvInt("MAX_BACKUPS", 3),

		RegistryOverlayPath: getEnv("REGISTRY_OVERLAY_PATH", ""),

		DuplicateWindowSec: getEnvInt("DUPLICATE_WINDOW_SEC", 30),
		MaxTimestampGapHrs: getEnvInt("MAX_TIMESTAMP_GAP_HRS", 24),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", ""),
		OTLPProtocol:   getEnv("OTLP_PROTOCOL", "grpc"),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("HALOG_DB_PATH is required")
	}
	if c.BackupDir == "" {
		return fmt.Errorf("HALOG_BACKUP_DIR is required")
	}
	if c.LedgerPath == "" {
		return fmt.Errorf("HALOG_LEDGER_PATH is required")
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("CHUNK_SIZE must be at least 1")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be at least 1")
	}
	if c.CommitInterval < c.BatchSize {
		return fmt.Errorf("COMMIT_INTERVAL must be at least BATCH_SIZE")
	}
	if c.MaxBackups < 1 {
		return fmt.Errorf("MAX_BACKUPS must be at least 1")
	}
	if c.DuplicateWindowSec < 1 {
		return fmt.Errorf("DUPLICATE_WINDOW_SEC must be at least 1")
	}
	if c.MaxTimestampGapHrs < 1 {
		return fmt.Errorf("MAX_TIMESTAMP_GAP_HRS must be at least 1")
	}
	if c.OTLPProtocol != "grpc" && c.OTLPProtocol != "http" {
		return fmt.Errorf("OTLP_PROTOCOL must be 'grpc' or 'http'")
	}

	return nil
}

// DuplicateWindow returns the duplicate detection window as a duration.
func (c *Config) DuplicateWindow() time.Duration {
	return time.Duration(c.DuplicateWindowSec) * time.Second
}

// MaxTimestampGap returns the gap threshold as a duration.
func (c *Config) MaxTimestampGap() time.Duration {
	return time.Duration(c.MaxTimestampGapHrs) * time.Hour
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
