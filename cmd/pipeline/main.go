package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront-tools/epicscraper/internal/api"
	"github.com/storefront-tools/epicscraper/internal/browser"
	"github.com/storefront-tools/epicscraper/internal/collector"
	"github.com/storefront-tools/epicscraper/internal/config"
	"github.com/storefront-tools/epicscraper/internal/database"
	"github.com/storefront-tools/epicscraper/internal/dedup"
	"github.com/storefront-tools/epicscraper/internal/httputil"
	"github.com/storefront-tools/epicscraper/internal/objstore"
	"github.com/storefront-tools/epicscraper/internal/parser"
	"github.com/storefront-tools/epicscraper/internal/pipeline"
	"github.com/storefront-tools/epicscraper/internal/ratelimit"
	"github.com/storefront-tools/epicscraper/internal/scrape"
	"github.com/storefront-tools/epicscraper/internal/store"
	"github.com/storefront-tools/epicscraper/pkg/logger"
)

func main() {
	var (
		headless   = flag.Bool("headless", true, "Run browser in headless mode")
		skipUpload = flag.Bool("skip-upload", false, "Scrape and store locally without uploading")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting catalog pipeline")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = *headless
	browserOpts.Timeout = cfg.Browser.Timeout
	browserOpts.ViewportWidth = cfg.Browser.ViewportWidth
	browserOpts.ViewportHeight = cfg.Browser.ViewportHeight

	b, err := browser.New(browserOpts)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	collectorOpts := collector.DefaultOptions(cfg.Listing.URL)
	collectorOpts.PageSize = cfg.Listing.PageSize
	collectorOpts.PageCount = cfg.Listing.PageCount
	collectorOpts.TileTimeout = cfg.Browser.TileTimeout
	collectorOpts.SettleDelay = cfg.Browser.SettleDelay

	links := collector.New(b, collectorOpts)

	client := httputil.NewClient(nil)
	localStore := store.New(cfg.Scraper.RawDataDir, client)
	items := scrape.NewItemScraper(client, parser.NewEpicParser(), localStore)

	seen := dedup.SeenIndex(dedup.NewPostgresIndex(db, database.GamesTable, database.URLColumn))

	var seenCache *dedup.RedisIndex
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, continuing without seen cache", "error", err)
		} else {
			seenCache = dedup.NewRedisIndex(redisClient, cfg.Redis.SeenKey)
			seen = unionIndex{seen, seenCache}
		}
	}

	run := pipeline.New(links, items, seen, db, pipeline.Options{
		ProductPrefix: cfg.Listing.ProductPrefix,
		RawDataDir:    cfg.Scraper.RawDataDir,
		SkipUpload:    *skipUpload,
	})

	run.WithLimiter(ratelimit.NewSimpleRateLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax))

	if seenCache != nil {
		run.WithSeenCache(seenCache)
	}

	if cfg.Object.Endpoint != "" && !*skipUpload {
		mirror, err := objstore.New(objstore.Config{
			Endpoint:  cfg.Object.Endpoint,
			AccessKey: cfg.Object.AccessKey,
			SecretKey: cfg.Object.SecretKey,
			UseSSL:    cfg.Object.UseSSL,
			Bucket:    cfg.Object.Bucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", "error", err)
			os.Exit(1)
		}
		run.WithMirror(mirror)
	}

	var statusServer *http.Server
	if cfg.Server.StatusAddr != "" {
		statusServer = api.NewServer(cfg.Server.StatusAddr, run.Progress(), logger)
		go func() {
			logger.Info("status server listening", "addr", cfg.Server.StatusAddr)
			if err := statusServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed", "error", err)
			}
		}()
	}

	runErr := run.Run(ctx)

	if statusServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("status server shutdown failed", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("pipeline failed", "error", runErr)
		os.Exit(1)
	}

	logger.Info("pipeline completed")
}

// unionIndex merges the destination-table index with the advisory cache.
type unionIndex []dedup.SeenIndex

func (u unionIndex) Seen(ctx context.Context) (map[string]struct{}, error) {
	return dedup.Union(ctx, u...)
}
