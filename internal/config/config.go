package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider names accepted by PROVIDER.
const (
	ProviderMock   = "mock"
	ProviderPortal = "portal"
)

// Database drivers accepted by DATABASE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Host string
	Port string

	// Database settings
	DatabaseDriver string
	DatabasePath   string
	DatabaseDSN    string

	// Logging settings
	LogLevel  string
	LogFormat string

	// Provider settings
	Provider             string
	CourtBaseURL         string
	DistrictCourtBaseURL string
	CourtsFile           string

	// Judgment downloads
	DownloadDir      string
	MaxDocumentBytes int64

	// Scraper settings
	ScraperTimeout time.Duration
	HeadlessMode   bool
	UserAgent      string
	BrowserPath    string

	// API settings
	APIRateLimit  int
	APIRateWindow time.Duration
	CORSOrigins   []string
	HistoryLimit  int

	// PendingSweepAfter is the age after which a pending query is
	// considered abandoned at startup. Zero disables the sweep.
	PendingSweepAfter time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not an error if .env doesn't exist
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Host:                 getEnv("HOST", "0.0.0.0"),
		Port:                 getEnv("PORT", "8080"),
		DatabaseDriver:       strings.ToLower(getEnv("DATABASE_DRIVER", DriverSQLite)),
		DatabasePath:         getEnv("DATABASE_PATH", "./data/court_data.db"),
		DatabaseDSN:          getEnv("DATABASE_DSN", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
		Provider:             strings.ToLower(getEnv("PROVIDER", ProviderMock)),
		CourtBaseURL:         getEnv("COURT_BASE_URL", "https://services.ecourts.gov.in/ecourtindia_v6/"),
		DistrictCourtBaseURL: getEnv("DISTRICT_COURT_BASE_URL", "https://districts.ecourts.gov.in/india-dco-beta/"),
		CourtsFile:           getEnv("COURTS_FILE", ""),
		DownloadDir:          getEnv("DOWNLOAD_DIR", "./data/downloads"),
		UserAgent:            getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
		BrowserPath:          getEnv("ROD_BROWSER_PATH", ""),
		CORSOrigins:          splitList(getEnv("CORS_ORIGINS", "*")),
	}

	// Parse integer values
	var err error
	maxDocumentMB, err := strconv.Atoi(getEnv("MAX_DOCUMENT_SIZE_MB", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_DOCUMENT_SIZE_MB: %w", err)
	}
	cfg.MaxDocumentBytes = int64(maxDocumentMB) * 1024 * 1024

	scraperTimeout, err := strconv.Atoi(getEnv("SCRAPER_TIMEOUT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_TIMEOUT: %w", err)
	}
	cfg.ScraperTimeout = time.Duration(scraperTimeout) * time.Second

	cfg.HeadlessMode = getEnv("HEADLESS_MODE", "true") == "true"

	cfg.APIRateLimit, err = strconv.Atoi(getEnv("API_RATE_LIMIT", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_RATE_LIMIT: %w", err)
	}

	apiRateWindow, err := strconv.Atoi(getEnv("API_RATE_WINDOW", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_RATE_WINDOW: %w", err)
	}
	cfg.APIRateWindow = time.Duration(apiRateWindow) * time.Second

	cfg.HistoryLimit, err = strconv.Atoi(getEnv("HISTORY_LIMIT", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_LIMIT: %w", err)
	}

	cfg.PendingSweepAfter, err = time.ParseDuration(getEnv("PENDING_SWEEP_AFTER", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PENDING_SWEEP_AFTER: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks combinations that cannot be caught while parsing.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.Provider {
	case ProviderMock, ProviderPortal:
	default:
		return fmt.Errorf("unsupported PROVIDER %q", c.Provider)
	}

	if c.MaxDocumentBytes <= 0 {
		return fmt.Errorf("MAX_DOCUMENT_SIZE_MB must be positive")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive")
	}
	if c.ScraperTimeout <= 0 {
		return fmt.Errorf("SCRAPER_TIMEOUT must be positive")
	}
	if c.PendingSweepAfter < 0 {
		return fmt.Errorf("PENDING_SWEEP_AFTER must not be negative")
	}
	if c.PendingSweepAfter > 0 {
		if err := c.CheckSweepAge(c.PendingSweepAfter); err != nil {
			return fmt.Errorf("PENDING_SWEEP_AFTER: %w", err)
		}
	}
	return nil
}

// CheckSweepAge rejects sweep ages that could fail a query whose fetch is
// still running.
func (c *Config) CheckSweepAge(age time.Duration) error {
	if age <= c.ScraperTimeout {
		return fmt.Errorf("sweep age %s must be greater than SCRAPER_TIMEOUT (%s)", age, c.ScraperTimeout)
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
