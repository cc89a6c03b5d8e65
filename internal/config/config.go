// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shedboard/shedboard-api/internal/crypto"
)

// ServerConfig holds configuration for the HTTP server process.
type ServerConfig struct {
	Port int

	// Database
	DatabaseURL string

	// Tenancy
	BaseDomain       string // e.g. "shedboard.au"
	MarketingURL     string // 302 target for the bare/base domain
	AllowLocalhost   bool   // dev: accept localhost with DevClubSubdomain
	DevClubSubdomain string

	// Authentication
	JWTSecret     string
	JWTExpiry     time.Duration
	EncryptionKey []byte // 32-byte key for AES-256-GCM

	// Rate limits (requests per minute)
	PublicRateLimitPerMin     int
	AdminRateLimitPerMin      int
	LoginRateLimitPerIPPerMin int

	// Scraper settings used by the on-demand executor
	Scraper ScraperConfig
}

// ScraperConfig holds configuration for the scraper engine.
type ScraperConfig struct {
	DaysAhead       int           // calendar window: [today, today+DaysAhead]
	CalendarWorkers int           // bounded fan-out for per-boat calendar fetches
	RequestTimeout  time.Duration // per upstream HTTP call
	PostLoginDelay  time.Duration // upstream needs a beat to establish the session
	Debug           bool
}

// SchedulerConfig holds configuration for the scheduler process.
type SchedulerConfig struct {
	DatabaseURL   string
	EncryptionKey []byte

	TickInterval     time.Duration // cron evaluation cadence, must be <= 1 minute
	MaxConcurrent    int           // global cap on in-flight scrapes
	ShutdownDeadline time.Duration // drain window for in-flight scrapes
	StaleJobAge      time.Duration // running jobs older than this are failed on startup

	Scraper ScraperConfig
}

// LoadServer reads server configuration from environment variables.
// Missing required values terminate startup with an error.
func LoadServer() (*ServerConfig, error) {
	cfg := &ServerConfig{
		Port:             getEnvInt("PORT", 8080),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		BaseDomain:       strings.ToLower(os.Getenv("BASE_DOMAIN")),
		MarketingURL:     getEnv("MARKETING_URL", "https://shedboard.au"),
		AllowLocalhost:   getEnvBool("ALLOW_LOCALHOST", false),
		DevClubSubdomain: getEnv("DEV_CLUB_SUBDOMAIN", "dev"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTExpiry: getEnvDuration("JWT_EXPIRY", time.Hour),

		PublicRateLimitPerMin:     getEnvInt("PUBLIC_RATE_LIMIT_PER_MIN", 120),
		AdminRateLimitPerMin:      getEnvInt("ADMIN_RATE_LIMIT_PER_MIN", 60),
		LoginRateLimitPerIPPerMin: getEnvInt("LOGIN_RATE_LIMIT_PER_IP_PER_MIN", 5),

		Scraper: loadScraper(),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.BaseDomain == "" {
		return nil, fmt.Errorf("BASE_DOMAIN is required")
	}

	key, err := loadEncryptionKey()
	if err != nil {
		return nil, err
	}
	cfg.EncryptionKey = key

	return cfg, nil
}

// LoadScheduler reads scheduler configuration from environment variables.
func LoadScheduler() (*SchedulerConfig, error) {
	cfg := &SchedulerConfig{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		TickInterval:     getEnvDuration("SCHEDULER_TICK_INTERVAL", 30*time.Second),
		MaxConcurrent:    getEnvInt("SCHEDULER_MAX_CONCURRENT", 4),
		ShutdownDeadline: getEnvDuration("SCHEDULER_SHUTDOWN_DEADLINE", 30*time.Second),
		StaleJobAge:      getEnvDuration("SCHEDULER_STALE_JOB_AGE", time.Hour),
		Scraper:          loadScraper(),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.TickInterval > time.Minute {
		return nil, fmt.Errorf("SCHEDULER_TICK_INTERVAL must not exceed 1m")
	}

	key, err := loadEncryptionKey()
	if err != nil {
		return nil, err
	}
	cfg.EncryptionKey = key

	return cfg, nil
}

func loadScraper() ScraperConfig {
	return ScraperConfig{
		DaysAhead:       getEnvInt("DAYS_AHEAD", 7),
		CalendarWorkers: getEnvInt("SCRAPER_CALENDAR_WORKERS", 4),
		RequestTimeout:  getEnvDuration("SCRAPER_REQUEST_TIMEOUT", 30*time.Second),
		PostLoginDelay:  getEnvDuration("SCRAPER_POST_LOGIN_DELAY", time.Second),
		Debug:           getEnvBool("SCRAPER_DEBUG", false),
	}
}

// loadEncryptionKey parses ENCRYPTION_KEY (32 bytes hex). The process must
// refuse to start when the key is missing or the wrong length.
func loadEncryptionKey() ([]byte, error) {
	raw := os.Getenv("ENCRYPTION_KEY")
	if raw == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required (64 hex chars)")
	}
	key, err := crypto.ParseKeyHex(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
	}
	return key, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
