package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/storefront-tools/epicscraper/internal/models"
)

const (
	GamesTable  = "games"
	ImagesTable = "images"

	// URLColumn is the games column scanned to build the dedup index.
	URLColumn = "url"
)

// EnsureSchema creates the destination tables if they do not exist. The
// tables are append-only; there are no updates or upserts.
func (db *DB) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			discounted_from_price DOUBLE PRECISION,
			discount_percent INTEGER,
			developer TEXT,
			publisher TEXT,
			genres TEXT[] NOT NULL DEFAULT '{}',
			release_date DATE,
			critic_recommend_percent INTEGER,
			critic_top_average TEXT,
			image_urls TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS images (
			photo_id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			local_path TEXT NOT NULL,
			game_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	return nil
}

// AppendGames bulk-appends game rows via COPY. Returns the row count.
func (db *DB) AppendGames(ctx context.Context, games []*models.Game) (int64, error) {
	if len(games) == 0 {
		return 0, nil
	}

	columns := []string{
		"id", "url", "title", "price", "discounted_from_price",
		"discount_percent", "developer", "publisher", "genres",
		"release_date", "critic_recommend_percent", "critic_top_average",
		"image_urls",
	}

	rows := make([][]interface{}, 0, len(games))
	for _, g := range games {
		var released *time.Time
		if g.ReleaseDate != nil {
			t := g.ReleaseDate.Time
			released = &t
		}

		rows = append(rows, []interface{}{
			g.ID, g.URL, g.Title, g.Price, g.DiscountedFromPrice,
			g.DiscountPercent, g.Developer, g.Publisher, g.Genres,
			released, g.CriticRecommendPercent, g.CriticTopAverage,
			g.ImageURLs,
		})
	}

	count, err := db.pool.CopyFrom(ctx, pgx.Identifier{GamesTable}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to append games: %w", err)
	}

	return count, nil
}

// AppendImages bulk-appends image rows via COPY. Returns the row count.
func (db *DB) AppendImages(ctx context.Context, refs []models.ImageRef) (int64, error) {
	if len(refs) == 0 {
		return 0, nil
	}

	columns := []string{"photo_id", "url", "local_path", "game_id"}

	rows := make([][]interface{}, 0, len(refs))
	for _, ref := range refs {
		rows = append(rows, []interface{}{ref.PhotoID, ref.URL, ref.LocalPath, ref.GameID})
	}

	count, err := db.pool.CopyFrom(ctx, pgx.Identifier{ImagesTable}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to append images: %w", err)
	}

	return count, nil
}
