// Package configs provides application configuration loaded from environment variables.
// All configuration is externalized via environment variables for 12-factor app compliance.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// DatabaseDSN is the PostgreSQL connection string.
	DatabaseDSN string

	// Kafka contains connection settings for the scrape-job topic.
	Kafka KafkaConfig

	// Worker contains settings for the scrape worker pool.
	Worker WorkerConfig

	// Scrape contains timeouts and identity for browser sessions.
	Scrape ScrapeConfig

	// Scheduler contains settings for the periodic fan-out.
	Scheduler SchedulerConfig

	// ServerPort is the HTTP API listen port.
	ServerPort string
}

// KafkaConfig holds Kafka connection settings for the job queue.
type KafkaConfig struct {
	// Broker is the Kafka broker address (e.g., "localhost:9092").
	Broker string

	// Topic is the Kafka topic carrying scrape jobs.
	Topic string

	// GroupID is the consumer group ID for the worker pool.
	GroupID string
}

// WorkerConfig holds settings for the worker pool.
type WorkerConfig struct {
	// Count is the number of concurrent scrape workers.
	Count int

	// RatePerSecond caps outbound scrapes across the whole pool.
	// Zero or negative disables the cap.
	RatePerSecond float64
}

// ScrapeConfig holds per-job browser settings.
type ScrapeConfig struct {
	// UserAgent identifies the scraper to target sites.
	UserAgent string

	// NavigationTimeout bounds a single page navigation.
	NavigationTimeout time.Duration

	// SettleDelay is the wait after content-loaded before reading the page,
	// so client-side rendering can finish.
	SettleDelay time.Duration

	// PolitenessMin and PolitenessMax bound the randomized pause taken
	// before contacting a target site, on every attempt.
	PolitenessMin time.Duration
	PolitenessMax time.Duration
}

// SchedulerConfig holds settings for the fan-out scheduler.
type SchedulerConfig struct {
	// Interval is the cadence of the "scrape everything" fan-out.
	Interval time.Duration
}

// getDatabaseDSN constructs the PostgreSQL DSN from environment variables.
func getDatabaseDSN() string {
	dbUser := getEnv("POSTGRES_USER", "fluxmon")
	dbPassword := getEnv("POSTGRES_PASSWORD", "fluxmon")
	dbHost := getEnv("POSTGRES_HOST", "localhost")
	dbPort := getEnv("POSTGRES_PORT", "5432")
	dbName := getEnv("POSTGRES_DB", "fluxmon")
	sslMode := getEnv("POSTGRES_SSLMODE", "disable")

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbHost, dbPort, dbUser, dbPassword, dbName, sslMode,
	)
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	return &AppConfig{
		DatabaseDSN: getDatabaseDSN(),
		Kafka: KafkaConfig{
			Broker:  getEnv("KAFKA_BROKER", "localhost:9092"),
			Topic:   getEnv("KAFKA_JOBS_TOPIC", "fluxmon_scrape_jobs"),
			GroupID: getEnv("KAFKA_JOBS_GROUP_ID", "fluxmon-workers"),
		},
		Worker: WorkerConfig{
			Count:         getEnvInt("WORKER_COUNT", 4),
			RatePerSecond: getEnvFloat("SCRAPE_RATE_PER_SECOND", 1.0),
		},
		Scrape: ScrapeConfig{
			UserAgent:         getEnv("SCRAPE_USER_AGENT", "fluxmon/1.0 (+https://example.local)"),
			NavigationTimeout: getEnvDuration("SCRAPE_NAVIGATION_TIMEOUT", 45*time.Second),
			SettleDelay:       getEnvDuration("SCRAPE_SETTLE_DELAY", 500*time.Millisecond),
			PolitenessMin:     getEnvDuration("SCRAPE_POLITENESS_MIN", 500*time.Millisecond),
			PolitenessMax:     getEnvDuration("SCRAPE_POLITENESS_MAX", 2*time.Second),
		},
		Scheduler: SchedulerConfig{
			Interval: getEnvDuration("DISPATCH_INTERVAL", time.Hour),
		},
		ServerPort: getEnv("SERVER_PORT", "8000"),
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
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

// getEnvFloat returns the environment variable as float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration returns the environment variable as a duration string
// (e.g. "45s") or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
