package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-tools/epicscraper/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := NewFromDSN(context.Background(), dsn, Config{})
	require.NoError(t, err)

	return db
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	require.NoError(t, db.EnsureSchema(ctx))
	require.NoError(t, db.EnsureSchema(ctx))
}

func TestColumnValuesMissingTable(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	values, err := db.ColumnValues(ctx, "no_such_table_"+uuid.NewString()[:8], "url")
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestAppendGamesAndScanBack(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	require.NoError(t, db.EnsureSchema(ctx))

	released := models.NewDate(time.Date(2020, time.May, 14, 0, 0, 0, 0, time.UTC))
	developer := "Rockstar North"
	game := &models.Game{
		ID:          uuid.NewString(),
		URL:         "https://store.example/p/" + uuid.NewString(),
		Title:       "Append Test",
		Price:       24.99,
		Developer:   &developer,
		Genres:      []string{"Action"},
		ReleaseDate: released,
		ImageURLs:   []string{"https://cdn.example/0.jpg"},
	}

	count, err := db.AppendGames(ctx, []*models.Game{game})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	seen, err := db.ColumnValues(ctx, GamesTable, URLColumn)
	require.NoError(t, err)
	assert.Contains(t, seen, game.URL)
}

func TestAppendImages(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	require.NoError(t, db.EnsureSchema(ctx))

	ref := models.ImageRef{
		PhotoID:   uuid.NewString(),
		URL:       "https://cdn.example/0.jpg",
		LocalPath: "raw_data/x/images/0.jpg",
		GameID:    uuid.NewString(),
	}

	count, err := db.AppendImages(ctx, []models.ImageRef{ref})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAppendEmptySlices(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	count, err := db.AppendGames(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = db.AppendImages(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}
