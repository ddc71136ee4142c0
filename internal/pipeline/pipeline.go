// Package pipeline wires the run: dedup index, link collection, per-item
// extraction and storage, table building, and upload.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/storefront-tools/epicscraper/internal/api"
	"github.com/storefront-tools/epicscraper/internal/collector"
	"github.com/storefront-tools/epicscraper/internal/database"
	"github.com/storefront-tools/epicscraper/internal/dedup"
	"github.com/storefront-tools/epicscraper/internal/models"
	"github.com/storefront-tools/epicscraper/internal/objstore"
	"github.com/storefront-tools/epicscraper/internal/ratelimit"
	"github.com/storefront-tools/epicscraper/internal/store"
	"github.com/storefront-tools/epicscraper/internal/tables"
)

// LinkSource produces the ordered candidate product URLs.
type LinkSource interface {
	Collect(ctx context.Context) ([]string, error)
}

// ItemSource turns one listing reference into a stored record.
type ItemSource interface {
	ScrapeItem(ctx context.Context, ref models.ListingRef) (*models.Game, error)
}

// SeenRecorder persists freshly ingested URLs into the advisory cache.
type SeenRecorder interface {
	Record(ctx context.Context, urls []string) error
}

type Options struct {
	ProductPrefix string
	RawDataDir    string
	SkipUpload    bool
}

// Pipeline runs one fixed scrape-and-ingest pass. Every stage blocks the
// next; items are processed strictly one at a time.
type Pipeline struct {
	links    LinkSource
	items    ItemSource
	seen     dedup.SeenIndex
	cache    SeenRecorder
	db       *database.DB
	mirror   *objstore.Mirror
	limiter  ratelimit.RateLimiter
	progress *api.Progress
	opts     Options
	logger   *slog.Logger
}

func New(links LinkSource, items ItemSource, seen dedup.SeenIndex, db *database.DB, opts Options) *Pipeline {
	return &Pipeline{
		links:    links,
		items:    items,
		seen:     seen,
		db:       db,
		opts:     opts,
		progress: api.NewProgress(),
		logger:   slog.Default().With("component", "pipeline"),
	}
}

// WithMirror enables the object-storage mirror stage.
func (p *Pipeline) WithMirror(m *objstore.Mirror) *Pipeline {
	p.mirror = m
	return p
}

// WithSeenCache records freshly ingested URLs into the advisory cache.
func (p *Pipeline) WithSeenCache(c SeenRecorder) *Pipeline {
	p.cache = c
	return p
}

func (p *Pipeline) WithLimiter(l ratelimit.RateLimiter) *Pipeline {
	p.limiter = l
	return p
}

func (p *Pipeline) Progress() *api.Progress {
	return p.progress
}

// Run executes the whole pass. Failures at item granularity or above
// (fetch, mandatory title, storage) stop the run; only per-section
// extraction failures are absorbed further down.
func (p *Pipeline) Run(ctx context.Context) error {
	p.progress.SetStage("indexing")
	seen, err := p.seen.Seen(ctx)
	if err != nil {
		return fmt.Errorf("failed to build dedup index: %w", err)
	}
	p.logger.Info("dedup index loaded", "known_urls", len(seen))

	p.progress.SetStage("collecting")
	links, err := p.links.Collect(ctx)
	if err != nil {
		return fmt.Errorf("link collection failed: %w", err)
	}

	products := collector.FilterProductLinks(links, p.opts.ProductPrefix)
	fresh := dedup.FilterUnseen(products, seen)

	p.progress.Update(func(pr *api.Progress) {
		pr.Discovered = len(links)
		pr.Products = len(products)
		pr.Skipped = len(products) - len(fresh)
	})
	p.logger.Info("links filtered",
		"discovered", len(links),
		"products", len(products),
		"skipped", len(products)-len(fresh),
		"new", len(fresh))

	p.progress.SetStage("scraping")
	storedURLs, err := p.scrapeAll(ctx, fresh)
	if err != nil {
		return err
	}

	p.progress.SetStage("building")
	pattern := filepath.Join(p.opts.RawDataDir, "*", store.RecordFile)
	games, err := tables.LoadGames(pattern)
	if err != nil {
		return fmt.Errorf("failed to build games table: %w", err)
	}

	images, err := tables.BuildImageRefs(p.opts.RawDataDir, games)
	if err != nil {
		return fmt.Errorf("failed to build images table: %w", err)
	}

	if !p.opts.SkipUpload {
		if err := p.upload(ctx, games, images, seen); err != nil {
			return err
		}
	}

	// The cache must stay a subset of the destination table: a URL cached
	// on a skip-upload run would never be uploaded by later runs.
	if !p.opts.SkipUpload && p.cache != nil && len(storedURLs) > 0 {
		if err := p.cache.Record(ctx, storedURLs); err != nil {
			p.logger.Warn("failed to update seen cache", "error", err)
		}
	}

	p.progress.SetStage("done")
	return nil
}

func (p *Pipeline) scrapeAll(ctx context.Context, links []string) ([]string, error) {
	var storedURLs []string

	for _, link := range links {
		select {
		case <-ctx.Done():
			return storedURLs, ctx.Err()
		default:
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return storedURLs, err
			}
		}

		ref := models.ListingRef{ID: uuid.NewString(), URL: link}

		if _, err := p.items.ScrapeItem(ctx, ref); err != nil {
			return storedURLs, fmt.Errorf("item %s: %w", link, err)
		}

		storedURLs = append(storedURLs, link)
		p.progress.Update(func(pr *api.Progress) { pr.Stored++ })
	}

	return storedURLs, nil
}

// upload appends only rows for URLs not already in the destination table,
// so repeated table builds over the full local tree stay append-only.
func (p *Pipeline) upload(ctx context.Context, games []*models.Game, images []models.ImageRef, seen map[string]struct{}) error {
	p.progress.SetStage("uploading")

	newGames := make([]*models.Game, 0, len(games))
	newIDs := make(map[string]struct{})
	for _, g := range games {
		if _, ok := seen[g.URL]; ok {
			continue
		}
		newGames = append(newGames, g)
		newIDs[g.ID] = struct{}{}
	}

	newImages := make([]models.ImageRef, 0, len(images))
	for _, img := range images {
		if _, ok := newIDs[img.GameID]; ok {
			newImages = append(newImages, img)
		}
	}

	if err := p.db.EnsureSchema(ctx); err != nil {
		return err
	}

	if len(newGames) == 0 {
		p.logger.Info("no new items to store")
	} else {
		count, err := p.db.AppendGames(ctx, newGames)
		if err != nil {
			return err
		}
		p.progress.Update(func(pr *api.Progress) { pr.UploadedGames = count })
		p.logger.Info("appended games", "rows", count)
	}

	if len(newImages) == 0 {
		p.logger.Info("no new images to store")
	} else {
		count, err := p.db.AppendImages(ctx, newImages)
		if err != nil {
			return err
		}
		p.progress.Update(func(pr *api.Progress) { pr.UploadedImages = count })
		p.logger.Info("appended images", "rows", count)
	}

	if p.mirror != nil {
		p.progress.SetStage("mirroring")
		uploaded, err := p.mirror.Sync(ctx, p.opts.RawDataDir)
		if err != nil {
			return err
		}
		p.progress.Update(func(pr *api.Progress) { pr.Mirrored = uploaded })
	}

	return nil
}
