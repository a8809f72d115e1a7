package config

import (
	"os"
	"strconv"
	"time"

	apperr "autoalert/listingworker/pkg/errors"
)

// Config represents the application configuration. Infrastructure settings
// come from the environment; the searches themselves live in a separate
// file (see LoadSearches). The webhook URL is deliberately env-only so the
// secret never lands in a persisted file.
type Config struct {
	// Durable listing store
	StorePath string

	// Searches file (YAML)
	SearchesFile string

	// Notification transport
	WebhookURL     string
	NotifyInterval time.Duration
	NotifyMaxAge   time.Duration

	// Optional rate-limit block cache
	MemcacheAddr string

	// Optional new-listing event stream
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Run behavior
	RunMode               string
	CheckInterval         time.Duration
	MaxConcurrentSearches int
	CleanupAge            time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAXLEN", "500"))
	checkInterval, _ := strconv.Atoi(getEnv("CHECK_INTERVAL_MINUTES", "15"))
	notifyInterval, _ := strconv.Atoi(getEnv("NOTIFY_INTERVAL_MS", "1000"))
	notifyMaxAgeDays, _ := strconv.Atoi(getEnv("NOTIFY_MAX_AGE_DAYS", "0"))
	cleanupDays, _ := strconv.Atoi(getEnv("CLEANUP_AGE_DAYS", "0"))
	maxConcurrent, _ := strconv.Atoi(getEnv("MAX_CONCURRENT_SEARCHES", "3"))

	return Config{
		StorePath:             getEnv("STORE_PATH", "./data/listings"),
		SearchesFile:          getEnv("SEARCHES_FILE", "./searches.yaml"),
		WebhookURL:            os.Getenv("WEBHOOK_URL"),
		NotifyInterval:        time.Duration(notifyInterval) * time.Millisecond,
		NotifyMaxAge:          time.Duration(notifyMaxAgeDays) * 24 * time.Hour,
		MemcacheAddr:          os.Getenv("MEMCACHE_ADDR"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisDB:               redisDB,
		RedisStream:           getEnv("REDIS_STREAM", "listings"),
		RedisStreamMaxLength:  streamMaxLen,
		RunMode:               getEnv("RUN_MODE", "once"),
		CheckInterval:         time.Duration(checkInterval) * time.Minute,
		MaxConcurrentSearches: maxConcurrent,
		CleanupAge:            time.Duration(cleanupDays) * 24 * time.Hour,
		Environment:           getEnv("ALERT_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration can support a run
func (c Config) Validate() error {
	if c.StorePath == "" {
		return apperr.NewConfiguration("STORE_PATH must not be empty", nil)
	}
	if c.SearchesFile == "" {
		return apperr.NewConfiguration("SEARCHES_FILE must not be empty", nil)
	}
	if c.RunMode != "once" && c.RunMode != "continuous" {
		return apperr.NewConfiguration("RUN_MODE must be once or continuous", nil)
	}
	if c.MaxConcurrentSearches < 1 {
		return apperr.NewConfiguration("MAX_CONCURRENT_SEARCHES must be at least 1", nil)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}
