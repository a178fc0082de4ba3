/**
 * @description
 * Configuration loader for the SoleTrack Backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 * - standard "fmt": For error reporting
 *
 * @notes
 * - Fails fast if critical variables (Database URL) are missing.
 * - Pipeline tuning knobs (staleness, debounce, worker budget) all have sane defaults
 *   so a bare environment still produces a working worker.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	Providers ProvidersConfig
	Pipeline  PipelineConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development" or "production"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// ProvidersConfig holds marketplace API endpoints and credentials
type ProvidersConfig struct {
	StockXBaseURL string
	StockXAPIKey  string
	AliasBaseURL  string
	AliasToken    string
}

// PipelineConfig holds ingestion pipeline tuning knobs
type PipelineConfig struct {
	StalenessThreshold time.Duration // items with no price newer than this qualify for background refresh
	DebounceWindow     time.Duration // minimum gap between background scans per user
	WorkerBudget       time.Duration // wall-clock budget for one worker invocation
	ViewRefreshEvery   time.Duration // cadence of the latest-price view rebuild
	MaxJobAttempts     int
	RetryBaseDelay     time.Duration // base for exponential backoff on retryable provider errors
	MaxRetries         int           // per-call retry bound for provider requests
	CallTimeout        time.Duration // per outbound provider call
	InterRegionDelay   time.Duration // courtesy pause between secondary-region fetches
	JobSecret          string        // shared secret guarding mutation endpoints
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (prod might inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Providers: ProvidersConfig{
			StockXBaseURL: getEnv("STOCKX_BASE_URL", "https://api.stockx.example.com"),
			StockXAPIKey:  sanitizeCredential(getEnv("STOCKX_API_KEY", "")),
			AliasBaseURL:  getEnv("ALIAS_BASE_URL", "https://api.alias.example.com"),
			AliasToken:    sanitizeCredential(getEnv("ALIAS_TOKEN", "")),
		},
		Pipeline: PipelineConfig{
			StalenessThreshold: getEnvAsDuration("STALENESS_THRESHOLD", 6*time.Hour),
			DebounceWindow:     getEnvAsDuration("SCAN_DEBOUNCE_WINDOW", time.Hour),
			WorkerBudget:       getEnvAsDuration("WORKER_BUDGET", 50*time.Second),
			ViewRefreshEvery:   getEnvAsDuration("VIEW_REFRESH_EVERY", 2*time.Minute),
			MaxJobAttempts:     getEnvAsInt("MAX_JOB_ATTEMPTS", 3),
			RetryBaseDelay:     getEnvAsDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
			MaxRetries:         getEnvAsInt("MAX_CALL_RETRIES", 4),
			CallTimeout:        getEnvAsDuration("CALL_TIMEOUT", 15*time.Second),
			InterRegionDelay:   getEnvAsDuration("INTER_REGION_DELAY", 2*time.Second),
			JobSecret:          sanitizeCredential(getEnv("JOB_SECRET", "")),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Pipeline.MaxJobAttempts < 1 {
		return fmt.Errorf("MAX_JOB_ATTEMPTS must be at least 1")
	}
	if cfg.Pipeline.JobSecret == "" && cfg.Server.Env != "development" && cfg.Server.Env != "test" {
		fmt.Println("Warning: JOB_SECRET is missing. Mutation endpoints will reject all requests.")
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// Helper to get env var as duration ("6h", "30m", "500ms")
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}
