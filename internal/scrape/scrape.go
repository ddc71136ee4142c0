package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/storefront-tools/epicscraper/internal/httputil"
	"github.com/storefront-tools/epicscraper/internal/models"
	"github.com/storefront-tools/epicscraper/internal/parser"
	"github.com/storefront-tools/epicscraper/internal/store"
)

// ErrFetch wraps page and network failures. A fetch failure at item
// granularity is not absorbed: it stops the run.
var ErrFetch = errors.New("page fetch failed")

// ItemScraper fetches one detail page, extracts its record, and hands it
// to the local store. Items are processed strictly sequentially: one item
// is fully written before the next begins.
type ItemScraper struct {
	client *http.Client
	parser parser.Parser
	store  *store.LocalStore
	logger *slog.Logger
}

func NewItemScraper(client *http.Client, p parser.Parser, s *store.LocalStore) *ItemScraper {
	if client == nil {
		client = httputil.NewClient(nil)
	}
	return &ItemScraper{
		client: client,
		parser: p,
		store:  s,
		logger: slog.Default().With("component", "item_scraper"),
	}
}

// ScrapeItem processes a single listing reference end to end. The
// identifier on the returned record is the caller-supplied one from ref.
func (s *ItemScraper) ScrapeItem(ctx context.Context, ref models.ListingRef) (*models.Game, error) {
	s.logger.Info("scraping item", "id", ref.ID, "url", ref.URL)

	html, err := httputil.Get(ctx, s.client, ref.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	detail, err := s.parser.ParseDetailPage(string(html), ref.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", ref.URL, err)
	}

	for name, status := range detail.Sections {
		if !status.OK {
			s.logger.Debug("section absent", "id", ref.ID, "section", name, "reason", status.Reason)
		}
	}

	game := detail.Game
	game.ID = ref.ID

	if errs := game.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid record for %s: %s", ref.URL, strings.Join(errs, ", "))
	}

	if err := s.store.Save(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", ref.ID, err)
	}

	return game, nil
}
