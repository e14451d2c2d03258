package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every knob the storage layer reads. All fields have working
// defaults so a zero-configuration deployment runs on the embedded backends.
type Config struct {
	// Relational engine selection and connection parameters.
	DBBackend     string // "sqlite" or "postgres"
	DBPath        string // sqlite database file
	DBHost        string
	DBPort        int
	DBName        string
	DBUser        string
	DBPassword    string
	DBPoolSize    int
	DBMaxOverflow int

	// Backend selection per store family.
	VectorStorage     string // "local" or "postgres"
	AttachmentStorage string
	ContentStorage    string

	// Root directory for the file-based backends.
	DataDir string

	// Similarity search defaults.
	SearchLimit     int
	SearchThreshold float64
}

// Load reads configuration from environment variables, applying defaults for
// everything that is unset. A .env file in the working directory is honored;
// variables already present in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBBackend:         getEnv("DB_BACKEND", "sqlite"),
		DBPath:            getEnv("TRACE_DB_PATH", "./data/kbstore.db"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBName:            getEnv("DB_NAME", "kbai"),
		DBUser:            getEnv("DB_USER", "kbai_user"),
		DBPassword:        getEnv("DB_PASSWORD", "kbai_password"),
		VectorStorage:     getEnv("VECTOR_STORAGE", "local"),
		AttachmentStorage: getEnv("ATTACHMENT_STORAGE", "local"),
		ContentStorage:    getEnv("CONTENT_STORAGE", "local"),
		DataDir:           getEnv("DATA_DIR", "./data"),
	}

	var err error
	if cfg.DBPort, err = getEnvInt("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.DBPoolSize, err = getEnvInt("DB_POOL_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.DBMaxOverflow, err = getEnvInt("DB_MAX_OVERFLOW", 20); err != nil {
		return nil, err
	}
	if cfg.SearchLimit, err = getEnvInt("SEARCH_LIMIT", 10); err != nil {
		return nil, err
	}

	threshold := getEnv("SEARCH_THRESHOLD", "0.7")
	cfg.SearchThreshold, err = strconv.ParseFloat(threshold, 64)
	if err != nil {
		return nil, fmt.Errorf("SEARCH_THRESHOLD must be a number: %w", err)
	}

	return cfg, nil
}

// PostgresDSN builds the connection string for the configured postgres engine.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
