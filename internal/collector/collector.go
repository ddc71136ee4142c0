package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/storefront-tools/epicscraper/internal/browser"
)

const (
	tileSelector    = `.css-1jx3eyg`
	consentSelector = `#onetrust-accept-btn-handler`
)

// Options controls the fixed pagination sequence and the readiness waits.
type Options struct {
	ListingURL   string
	PageSize     int
	PageCount    int
	TileTimeout  time.Duration
	SettleDelay  time.Duration
	PageInterval time.Duration
}

func DefaultOptions(listingURL string) Options {
	return Options{
		ListingURL:   listingURL,
		PageSize:     100,
		PageCount:    10,
		TileTimeout:  20 * time.Second,
		SettleDelay:  5 * time.Second,
		PageInterval: 2 * time.Second,
	}
}

// LinkCollector paginates the listing endpoint and accumulates detail-page
// URLs in page order, then within-page order. A single page that fails to
// render aborts the whole collection.
type LinkCollector struct {
	browser *browser.Browser
	opts    Options
	logger  *slog.Logger
}

func New(b *browser.Browser, opts Options) *LinkCollector {
	return &LinkCollector{
		browser: b,
		opts:    opts,
		logger:  slog.Default().With("component", "link_collector"),
	}
}

// Collect returns the ordered sequence of distinct candidate product URLs.
// Bundle filtering is the caller's job, via FilterProductLinks.
func (c *LinkCollector) Collect(ctx context.Context) ([]string, error) {
	page, err := c.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	var links []string
	seen := make(map[string]struct{})

	for pageNum := 0; pageNum < c.opts.PageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pageURL := c.pageURL(pageNum)
		c.logger.Info("fetching listing page", "page", pageNum+1, "url", pageURL)

		if err := c.browser.Navigate(page, pageURL); err != nil {
			return nil, fmt.Errorf("listing page %d: %w", pageNum+1, err)
		}

		if pageNum == 0 {
			c.browser.AcceptConsent(page, consentSelector, c.opts.TileTimeout)
		}

		c.browser.WaitForTiles(page, tileSelector, c.opts.TileTimeout, c.opts.SettleDelay)

		pageLinks, err := c.collectPageLinks(page)
		if err != nil {
			return nil, fmt.Errorf("listing page %d: %w", pageNum+1, err)
		}

		added := 0
		for _, link := range pageLinks {
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			links = append(links, link)
			added++
		}

		c.logger.Info("collected listing page", "page", pageNum+1, "links", added)

		if pageNum < c.opts.PageCount-1 {
			if err := wait(ctx, c.opts.PageInterval); err != nil {
				return nil, err
			}
		}
	}

	c.logger.Info("link collection finished", "total", len(links))
	return links, nil
}

func (c *LinkCollector) collectPageLinks(page playwright.Page) ([]string, error) {
	tiles := page.Locator(tileSelector)

	count, err := tiles.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count listing tiles: %w", err)
	}

	var links []string
	for i := 0; i < count; i++ {
		href, err := tiles.Nth(i).GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		links = append(links, href)
	}

	return links, nil
}

// wait blocks for d or until the context is cancelled.
func wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (c *LinkCollector) pageURL(pageNum int) string {
	sep := "?"
	if strings.Contains(c.opts.ListingURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%scount=%d&start=%d", c.opts.ListingURL, sep, c.opts.PageSize, pageNum*c.opts.PageSize)
}

// FilterProductLinks drops non-product links (bundle pages) by URL-prefix
// test, preserving order.
func FilterProductLinks(links []string, productPrefix string) []string {
	filtered := make([]string, 0, len(links))
	for _, link := range links {
		if strings.HasPrefix(link, productPrefix) {
			filtered = append(filtered, link)
		}
	}
	return filtered
}
