package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/storefront-tools/epicscraper/internal/httputil"
	"github.com/storefront-tools/epicscraper/internal/models"
)

const (
	// RecordFile is the JSON document written per item directory.
	RecordFile = "data.json"
	// ImagesDir holds image files named by zero-based position.
	ImagesDir = "images"
	// ImageExt is the fixed extension for downloaded images.
	ImageExt = ".jpg"
)

// LocalStore persists one directory per item under a root: the record as
// data.json plus an images subdirectory of positionally named downloads.
// The Nth URL in a record's image_urls corresponds to the Nth file on disk.
type LocalStore struct {
	root   string
	client *http.Client
	logger *slog.Logger
}

func New(root string, client *http.Client) *LocalStore {
	if client == nil {
		client = httputil.NewClient(nil)
	}
	return &LocalStore{
		root:   root,
		client: client,
		logger: slog.Default().With("component", "local_store"),
	}
}

func (s *LocalStore) Root() string {
	return s.root
}

// Save writes the record and downloads its images sequentially. Directory
// creation is idempotent. A failed download aborts the remaining downloads
// for this item, which keeps the positional invariant between image_urls
// and the files on disk.
func (s *LocalStore) Save(ctx context.Context, game *models.Game) error {
	itemDir := filepath.Join(s.root, game.ID)
	if err := os.MkdirAll(itemDir, 0o755); err != nil {
		return fmt.Errorf("failed to create item directory: %w", err)
	}

	if err := s.writeRecord(itemDir, game); err != nil {
		return err
	}

	if err := s.downloadImages(ctx, itemDir, game); err != nil {
		return err
	}

	s.logger.Info("stored item", "id", game.ID, "title", game.Title, "images", len(game.ImageURLs))
	return nil
}

func (s *LocalStore) writeRecord(itemDir string, game *models.Game) error {
	data, err := json.MarshalIndent(game, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	path := filepath.Join(itemDir, RecordFile)

	// Write to temp file first for atomicity.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	return nil
}

func (s *LocalStore) downloadImages(ctx context.Context, itemDir string, game *models.Game) error {
	if len(game.ImageURLs) == 0 {
		return nil
	}

	imagesDir := filepath.Join(itemDir, ImagesDir)
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create images directory: %w", err)
	}

	for i, url := range game.ImageURLs {
		body, err := httputil.Get(ctx, s.client, url)
		if err != nil {
			return fmt.Errorf("failed to download image %d for %s: %w", i, game.ID, err)
		}

		path := filepath.Join(imagesDir, strconv.Itoa(i)+ImageExt)
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return fmt.Errorf("failed to write image %d for %s: %w", i, game.ID, err)
		}
	}

	return nil
}
