package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// State backends.
const (
	StateBackendFile     = "file"
	StateBackendPostgres = "postgres"
)

// Config holds all application configuration. It is built once at startup
// and handed to each component's constructor.
type Config struct {
	BaseURL      string  `validate:"required,url"`
	SiteID       string  `validate:"required"`
	Region       string  `validate:"required,len=2"`
	PageSize     int     `validate:"min=1,max=500"`
	MaxListings  int     `validate:"min=0"`
	Concurrency  int     `validate:"min=1,max=16"`
	DelaySeconds float64 `validate:"min=0"`
	StaleHours   int     `validate:"min=0"`
	MaxRetries   int     `validate:"min=1"`
	Headless     bool

	SessionTimeout time.Duration `validate:"min=1s"`
	PageTimeout    time.Duration `validate:"min=1s"`

	FeedPath     string `validate:"required"`
	StatePath    string `validate:"required"`
	StateBackend string `validate:"oneof=file postgres"`

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ChromeBin string
	LogLevel  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		BaseURL:      strings.TrimRight(getEnv("SCRAPER_BASE_URL", "https://bradschmett.com"), "/"),
		SiteID:       getEnv("SCRAPER_SITE_ID", "128008"),
		Region:       getEnv("SCRAPER_REGION", "CA"),
		PageSize:     getEnvInt("SCRAPER_PAGE_SIZE", 100),
		MaxListings:  getEnvInt("SCRAPER_MAX_LISTINGS", 0),
		Concurrency:  getEnvInt("SCRAPER_CONCURRENCY", 3),
		DelaySeconds: getEnvFloat("SCRAPER_DELAY_SECONDS", 2.0),
		StaleHours:   getEnvInt("SCRAPER_STALE_HOURS", 12),
		MaxRetries:   getEnvInt("SCRAPER_MAX_RETRIES", 2),
		Headless:     getEnvBool("SCRAPER_HEADLESS", true),

		SessionTimeout: time.Duration(getEnvInt("SCRAPER_SESSION_TIMEOUT_SECONDS", 75)) * time.Second,
		PageTimeout:    time.Duration(getEnvInt("SCRAPER_PAGE_TIMEOUT_SECONDS", 45)) * time.Second,

		FeedPath:     getEnv("SCRAPER_FEED_PATH", "docs/feed.csv"),
		StatePath:    getEnv("SCRAPER_STATE_PATH", "state/listings.json"),
		StateBackend: getEnv("SCRAPER_STATE_BACKEND", StateBackendFile),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "listing_feed"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ChromeBin: getEnv("CHROME_BIN", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks field constraints and returns the first violations found.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Delay returns the base pacing delay between sequential requests.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.DelaySeconds * float64(time.Second))
}

// StaleWindow returns how long a scraped listing stays fresh.
func (c *Config) StaleWindow() time.Duration {
	return time.Duration(c.StaleHours) * time.Hour
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
