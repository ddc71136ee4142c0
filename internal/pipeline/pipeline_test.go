package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-tools/epicscraper/internal/dedup"
	"github.com/storefront-tools/epicscraper/internal/models"
)

type fakeLinks struct {
	links []string
	err   error
}

func (f *fakeLinks) Collect(_ context.Context) ([]string, error) {
	return f.links, f.err
}

type fakeItems struct {
	scraped []models.ListingRef
	err     error
}

func (f *fakeItems) ScrapeItem(_ context.Context, ref models.ListingRef) (*models.Game, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.scraped = append(f.scraped, ref)
	return &models.Game{ID: ref.ID, URL: ref.URL, Title: "t"}, nil
}

const productPrefix = "https://store.example/p"

func newTestPipeline(t *testing.T, links *fakeLinks, items *fakeItems, seen dedup.SeenIndex) *Pipeline {
	t.Helper()
	return New(links, items, seen, nil, Options{
		ProductPrefix: productPrefix,
		RawDataDir:    t.TempDir(),
		SkipUpload:    true,
	})
}

func TestRunSkipsAlreadyIngested(t *testing.T) {
	links := &fakeLinks{links: []string{
		"https://store.example/p/a",
		"https://store.example/p/b",
		"https://store.example/p/c",
	}}
	items := &fakeItems{}
	seen := dedup.StaticIndex{
		"https://store.example/p/a": {},
		"https://store.example/p/b": {},
	}

	p := newTestPipeline(t, links, items, seen)
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, items.scraped, 1)
	assert.Equal(t, "https://store.example/p/c", items.scraped[0].URL)
	assert.NotEmpty(t, items.scraped[0].ID)

	snap := p.Progress().Snapshot()
	assert.Equal(t, "done", snap.Stage)
	assert.Equal(t, 3, snap.Discovered)
	assert.Equal(t, 3, snap.Products)
	assert.Equal(t, 2, snap.Skipped)
	assert.Equal(t, 1, snap.Stored)
}

func TestRunFiltersBundleLinks(t *testing.T) {
	links := &fakeLinks{links: []string{
		"https://store.example/p/a",
		"https://store.example/bundles/pack",
		"https://store.example/p/b",
	}}
	items := &fakeItems{}

	p := newTestPipeline(t, links, items, dedup.StaticIndex{})
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, items.scraped, 2)
	assert.Equal(t, "https://store.example/p/a", items.scraped[0].URL)
	assert.Equal(t, "https://store.example/p/b", items.scraped[1].URL)

	snap := p.Progress().Snapshot()
	assert.Equal(t, 3, snap.Discovered)
	assert.Equal(t, 2, snap.Products)
}

func TestRunEachItemGetsDistinctID(t *testing.T) {
	links := &fakeLinks{links: []string{
		"https://store.example/p/a",
		"https://store.example/p/b",
	}}
	items := &fakeItems{}

	p := newTestPipeline(t, links, items, dedup.StaticIndex{})
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, items.scraped, 2)
	assert.NotEqual(t, items.scraped[0].ID, items.scraped[1].ID)
}

func TestRunStopsOnItemError(t *testing.T) {
	links := &fakeLinks{links: []string{"https://store.example/p/a"}}
	boom := errors.New("fetch blew up")
	items := &fakeItems{err: boom}

	p := newTestPipeline(t, links, items, dedup.StaticIndex{})
	err := p.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunStopsOnCollectError(t *testing.T) {
	boom := errors.New("listing page unreachable")
	links := &fakeLinks{err: boom}
	items := &fakeItems{}

	p := newTestPipeline(t, links, items, dedup.StaticIndex{})
	err := p.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, items.scraped)
}

func TestRunStopsOnIndexError(t *testing.T) {
	boom := errors.New("index unavailable")
	links := &fakeLinks{links: []string{"https://store.example/p/a"}}
	items := &fakeItems{}

	p := newTestPipeline(t, links, items, failingIndex{err: boom})
	err := p.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, items.scraped)
}

type fakeRecorder struct {
	recorded []string
}

func (f *fakeRecorder) Record(_ context.Context, urls []string) error {
	f.recorded = append(f.recorded, urls...)
	return nil
}

func TestRunSkipUploadDoesNotAdvanceSeenCache(t *testing.T) {
	links := &fakeLinks{links: []string{"https://store.example/p/a"}}
	items := &fakeItems{}
	rec := &fakeRecorder{}

	p := newTestPipeline(t, links, items, dedup.StaticIndex{})
	p.WithSeenCache(rec)

	require.NoError(t, p.Run(context.Background()))

	// The item was scraped and stored locally, but its URL must not be
	// marked seen until it reaches the destination table.
	require.Len(t, items.scraped, 1)
	assert.Empty(t, rec.recorded)
}

type failingIndex struct{ err error }

func (f failingIndex) Seen(_ context.Context) (map[string]struct{}, error) {
	return nil, f.err
}
