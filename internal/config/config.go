package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
// An empty Host means no primary backend is configured and the service runs
// on in-process storage only.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// Configured reports whether a primary backend was set up at all.
func (c DatabaseConfig) Configured() bool {
	return c.Host != ""
}

// UploadConfig bounds the ingestion path.
type UploadConfig struct {
	MinFileSize     int64 // 0 disables the minimum check
	MaxFileSize     int64
	MaxRequestSize  int64 // aggregate across all files in one request
	StreamThreshold int64 // at or above this, files stay on disk regardless of pool space
	TempDir         string
}

// PoolConfig sizes the in-memory payload tier.
type PoolConfig struct {
	Ratio         float64 // share of available memory after the reserved floor
	ReservedBytes int64
}

// RateLimitConfig bounds per-client request rates.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost         string
	Port            string
	Database        DatabaseConfig
	Upload          UploadConfig
	Pool            PoolConfig
	RateLimit       RateLimitConfig
	CleanupInterval time.Duration
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Upload: UploadConfig{
			MinFileSize:     int64(getEnvInt("DROP_MIN_FILE_SIZE_MB", 0)) * 1024 * 1024,
			MaxFileSize:     int64(getEnvInt("DROP_MAX_FILE_SIZE_GB", 5)) * 1024 * 1024 * 1024,
			MaxRequestSize:  int64(getEnvInt("DROP_MAX_TOTAL_SIZE_GB", 10)) * 1024 * 1024 * 1024,
			StreamThreshold: int64(getEnvInt("DROP_STREAM_THRESHOLD_MB", 50)) * 1024 * 1024,
			TempDir:         getEnv("DROP_TEMP_DIR", "./temp"),
		},
		Pool: PoolConfig{
			Ratio:         getEnvFloat("DROP_MEMORY_POOL_RATIO", 0.5),
			ReservedBytes: int64(getEnvInt("DROP_RESERVED_MEMORY_MB", 200)) * 1024 * 1024,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: getEnvInt("DROP_RATE_LIMIT_RPM", 60),
			Window:      time.Duration(getEnvInt("DROP_RATE_LIMIT_WINDOW_SEC", 60)) * time.Second,
		},
		CleanupInterval: time.Duration(getEnvInt("DROP_CLEANUP_INTERVAL_SEC", 300)) * time.Second,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvFloat parses ratio-style values; out-of-range ratios fall back to the
// default rather than producing a zero or oversized pool.
func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil && f > 0 && f <= 1.0 {
			return f
		}
	}
	return def
}
