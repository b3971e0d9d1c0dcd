package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// SSOT: every environment variable is read here and nowhere else.
type Config struct {
	// Server (prediction API)
	Port string
	Env  string // development, staging, production

	// Pipeline
	Data DataConfig

	// Training
	Train TrainConfig

	// Database (optional, run-summary audit only)
	Database DatabaseConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DataConfig holds dataset-build configuration
type DataConfig struct {
	// Dir is the root of all persisted pipeline state
	// (behavior/, ml/train/, ml/meta/, ml/models/).
	Dir string

	// EventsDir holds the append-only raw simulation event logs.
	EventsDir string

	// Variant is the canonical execution-size line per decision.
	Variant string

	LookbackDays int
	MinQty       float64
	IncludeLive  bool
}

// TrainConfig holds model-training configuration
type TrainConfig struct {
	Rounds       int
	LearningRate float64
	ValFraction  float64
	// MinRows is the row count below which train/validation collapse
	// into the same set instead of splitting.
	MinRows int
}

// DatabaseConfig holds PostgreSQL configuration for the optional run log.
// Leaving URL empty disables the mirror entirely.
type DatabaseConfig struct {
	URL string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Load reads configuration from environment variables
// SSOT: only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8093"),
		Env:  getEnv("ENV", "development"),

		Data: DataConfig{
			Dir:          getEnv("DATA_DIR", "data"),
			EventsDir:    getEnv("EVENTS_DIR", ""),
			Variant:      getEnv("EVENT_VARIANT", "pro"),
			LookbackDays: getEnvAsInt("LOOKBACK_DAYS", 365),
			MinQty:       getEnvAsFloat("MIN_QTY", 1),
			IncludeLive:  getEnvAsBool("INCLUDE_LIVE", false),
		},

		Train: TrainConfig{
			Rounds:       getEnvAsInt("TRAIN_ROUNDS", 120),
			LearningRate: getEnvAsFloat("TRAIN_LEARNING_RATE", 0.1),
			ValFraction:  getEnvAsFloat("VAL_FRACTION", 0.2),
			MinRows:      getEnvAsInt("TRAIN_MIN_ROWS", 50),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if cfg.Data.EventsDir == "" {
		cfg.Data.EventsDir = filepath.Join(cfg.Data.Dir, "events")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Train.ValFraction <= 0 || c.Train.ValFraction >= 1 {
		return fmt.Errorf("VAL_FRACTION must be in (0, 1)")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
