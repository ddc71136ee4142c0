package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Listing  ListingConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Object   ObjectConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type ListingConfig struct {
	URL           string
	ProductPrefix string
	PageSize      int
	PageCount     int
}

type ScraperConfig struct {
	RawDataDir   string
	RateLimitMin time.Duration
	RateLimitMax time.Duration
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	TileTimeout    time.Duration
	SettleDelay    time.Duration
	ViewportWidth  int
	ViewportHeight int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	SeenKey  string
}

type ServerConfig struct {
	StatusAddr string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Listing: ListingConfig{
			URL:           getEnvOrDefault("LISTING_URL", "https://www.epicgames.com/store/en-US/browse?sortBy=releaseDate&sortDir=DESC"),
			ProductPrefix: getEnvOrDefault("PRODUCT_PREFIX", "https://www.epicgames.com/store/en-US/p"),
			PageSize:      getIntOrDefault("LISTING_PAGE_SIZE", 100),
			PageCount:     getIntOrDefault("LISTING_PAGE_COUNT", 10),
		},
		Scraper: ScraperConfig{
			RawDataDir:   getEnvOrDefault("RAW_DATA_DIR", "raw_data"),
			RateLimitMin: getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", 2*time.Second),
			RateLimitMax: getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 5*time.Second),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			TileTimeout:    getDurationOrDefault("BROWSER_TILE_TIMEOUT", 20*time.Second),
			SettleDelay:    getDurationOrDefault("BROWSER_SETTLE_DELAY", 5*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "epicstore"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Object: ObjectConfig{
			Endpoint:  getEnvOrDefault("OBJECT_ENDPOINT", ""),
			AccessKey: getEnvOrDefault("OBJECT_ACCESS_KEY", ""),
			SecretKey: getEnvOrDefault("OBJECT_SECRET_KEY", ""),
			UseSSL:    getBoolOrDefault("OBJECT_USE_SSL", true),
			Bucket:    getEnvOrDefault("OBJECT_BUCKET", "epicstore-raw"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			SeenKey:  getEnvOrDefault("REDIS_SEEN_KEY", "epicstore:seen_urls"),
		},
		Server: ServerConfig{
			StatusAddr: getEnvOrDefault("STATUS_ADDR", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Listing.URL == "" {
		return fmt.Errorf("LISTING_URL must not be empty")
	}

	if c.Listing.PageSize < 1 {
		return fmt.Errorf("LISTING_PAGE_SIZE must be at least 1")
	}

	if c.Listing.PageCount < 1 {
		return fmt.Errorf("LISTING_PAGE_COUNT must be at least 1")
	}

	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
