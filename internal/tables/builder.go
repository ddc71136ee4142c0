// Package tables reassembles locally stored JSON documents into the two
// flat tables uploaded to the destination store.
package tables

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/storefront-tools/epicscraper/internal/models"
	"github.com/storefront-tools/epicscraper/internal/store"
)

// LoadGames loads every persisted record matched by the glob pattern,
// one row per document, sorted by identifier for a stable table order.
func LoadGames(pattern string) ([]*models.Game, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
	}

	games := make([]*models.Game, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		var game models.Game
		if err := json.Unmarshal(data, &game); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}

		games = append(games, &game)
	}

	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })

	return games, nil
}

// BuildImageRefs derives the images table from the games table. For each
// game the local image files are listed in filename order and zipped
// positionally against the record's image_urls: the builder relies on both
// being written zero-indexed by the same process in the same order.
func BuildImageRefs(root string, games []*models.Game) ([]models.ImageRef, error) {
	logger := slog.Default().With("component", "table_builder")

	var refs []models.ImageRef
	for _, game := range games {
		imagesDir := filepath.Join(root, game.ID, store.ImagesDir)

		files, err := listImageFiles(imagesDir)
		if err != nil {
			return nil, err
		}

		if len(files) != len(game.ImageURLs) {
			logger.Warn("image count mismatch, zipping common prefix",
				"id", game.ID, "files", len(files), "urls", len(game.ImageURLs))
		}

		n := len(files)
		if len(game.ImageURLs) < n {
			n = len(game.ImageURLs)
		}

		for i := 0; i < n; i++ {
			refs = append(refs, models.ImageRef{
				PhotoID:   uuid.NewString(),
				URL:       game.ImageURLs[i],
				LocalPath: filepath.Join(imagesDir, files[i]),
				GameID:    game.ID,
			})
		}
	}

	return refs, nil
}

// listImageFiles returns image filenames sorted by their positional index.
func listImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, entry.Name())
	}

	sort.Slice(files, func(i, j int) bool {
		return positionOf(files[i]) < positionOf(files[j])
	})

	return files, nil
}

func positionOf(name string) int {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	n, err := strconv.Atoi(stem)
	if err != nil {
		return -1
	}
	return n
}
