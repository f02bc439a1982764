package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Detail fetch modes
const (
	DetailFetchBrowser = "browser"
	DetailFetchHTTP    = "http"
)

// Config represents the application configuration
type Config struct {
	// HTTP API
	Port        string
	DatabaseURL string
	CORSOrigins []string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string

	// Pagination
	DefaultPageSize int
	MaxPageSize     int

	// Scraper configuration
	ScrapeBaseURL     string
	ScrapeAPIBase     string
	ScrapeLimit       int
	ScrapeHeadless    bool
	ScrapeDetailFetch string
	ScrapeSchedule    string
	ScrapeBlockTime   time.Duration

	// Bulk submission
	BulkChunkSize int
	BulkPause     time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	port := getEnv("PORT", "5000")

	return &Config{
		Port:                 port,
		DatabaseURL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
		CORSOrigins:          getEnvList("CORS_ORIGINS", "http://localhost:5173"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "jobs"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		DefaultPageSize:      getEnvInt("PAGINATION_DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:          getEnvInt("PAGINATION_MAX_PAGE_SIZE", 50),
		ScrapeBaseURL:        getEnv("SCRAPE_BASE_URL", "https://www.actuarylist.com/experience-levels/senior-actuary"),
		ScrapeAPIBase:        getEnv("SCRAPE_API_BASE", "http://localhost:"+port+"/api"),
		ScrapeLimit:          getEnvInt("SCRAPE_LIMIT", 60),
		ScrapeHeadless:       getEnvBool("SCRAPE_HEADLESS", true),
		ScrapeDetailFetch:    getEnv("SCRAPE_DETAIL_FETCH", DetailFetchBrowser),
		ScrapeSchedule:       os.Getenv("SCRAPE_SCHEDULE"),
		ScrapeBlockTime:      time.Duration(getEnvInt("SCRAPE_BLOCK_SECONDS", 600)) * time.Second,
		BulkChunkSize:        getEnvInt("BULK_CHUNK_SIZE", 50),
		BulkPause:            time.Duration(getEnvInt("BULK_PAUSE_MS", 400)) * time.Millisecond,
		Environment:          getEnv("JOBWORKER_ENVIRONMENT", "development"),
	}
}

// Validate checks values that cannot be defaulted sensibly
func (c *Config) Validate() error {
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("PAGINATION_DEFAULT_PAGE_SIZE must be at least 1, got %d", c.DefaultPageSize)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("PAGINATION_MAX_PAGE_SIZE (%d) must not be below the default page size (%d)", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.RedisStreamCount < 1 {
		return fmt.Errorf("REDIS_STREAM_COUNT must be at least 1, got %d", c.RedisStreamCount)
	}
	if c.BulkChunkSize < 1 {
		return fmt.Errorf("BULK_CHUNK_SIZE must be at least 1, got %d", c.BulkChunkSize)
	}
	if c.ScrapeLimit < 1 {
		return fmt.Errorf("SCRAPE_LIMIT must be at least 1, got %d", c.ScrapeLimit)
	}
	switch c.ScrapeDetailFetch {
	case DetailFetchBrowser, DetailFetchHTTP:
	default:
		return fmt.Errorf("SCRAPE_DETAIL_FETCH must be %q or %q, got %q", DetailFetchBrowser, DetailFetchHTTP, c.ScrapeDetailFetch)
	}
	return nil
}

// ValidateServer additionally requires the settings only the API server needs
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// IsProduction reports whether the process runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvList splits a comma-separated variable, dropping empty entries
func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, defaultValue), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
