package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.epicgames.com/store/en-US/p", cfg.Listing.ProductPrefix)
	assert.Equal(t, 100, cfg.Listing.PageSize)
	assert.Equal(t, 10, cfg.Listing.PageCount)
	assert.Equal(t, "raw_data", cfg.Scraper.RawDataDir)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "epicstore", cfg.Database.DBName)
	assert.Equal(t, "epicstore:seen_urls", cfg.Redis.SeenKey)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LISTING_PAGE_SIZE", "25")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("SCRAPER_RATE_LIMIT_MIN", "500ms")
	t.Setenv("RAW_DATA_DIR", "/tmp/raw")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Listing.PageSize)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 500*time.Millisecond, cfg.Scraper.RateLimitMin)
	assert.Equal(t, "/tmp/raw", cfg.Scraper.RawDataDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		hasError bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "empty listing url", mutate: func(c *Config) { c.Listing.URL = "" }, hasError: true},
		{name: "zero page size", mutate: func(c *Config) { c.Listing.PageSize = 0 }, hasError: true},
		{name: "zero page count", mutate: func(c *Config) { c.Listing.PageCount = 0 }, hasError: true},
		{
			name:     "rate limit min above max",
			mutate:   func(c *Config) { c.Scraper.RateLimitMin = 10 * time.Second; c.Scraper.RateLimitMax = time.Second },
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.hasError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
