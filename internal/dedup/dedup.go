// Package dedup provides the already-ingested predicate used to skip URLs
// on repeat runs. The index is advisory: a race between two runs can
// duplicate work but not corrupt data, since identifiers are locally
// generated and unique per run.
package dedup

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/storefront-tools/epicscraper/internal/database"
)

// SeenIndex reports the set of URLs already ingested. It is queried once
// per run, before per-page extraction starts.
type SeenIndex interface {
	Seen(ctx context.Context) (map[string]struct{}, error)
}

// PostgresIndex scans one column of the destination table. A missing
// table (first run) yields an empty set.
type PostgresIndex struct {
	db     *database.DB
	table  string
	column string
}

func NewPostgresIndex(db *database.DB, table, column string) *PostgresIndex {
	return &PostgresIndex{db: db, table: table, column: column}
}

func (p *PostgresIndex) Seen(ctx context.Context) (map[string]struct{}, error) {
	return p.db.ColumnValues(ctx, p.table, p.column)
}

// RedisIndex keeps a URL set as a cheap advisory cache between runs. It
// never replaces the destination-table scan; the pipeline unions both.
type RedisIndex struct {
	client *redis.Client
	key    string
}

func NewRedisIndex(client *redis.Client, key string) *RedisIndex {
	return &RedisIndex{client: client, key: key}
}

func (r *RedisIndex) Seen(ctx context.Context) (map[string]struct{}, error) {
	members, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read seen set: %w", err)
	}

	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		seen[m] = struct{}{}
	}

	return seen, nil
}

// Record adds freshly ingested URLs to the cache set.
func (r *RedisIndex) Record(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	members := make([]interface{}, 0, len(urls))
	for _, u := range urls {
		members = append(members, u)
	}

	if err := r.client.SAdd(ctx, r.key, members...).Err(); err != nil {
		return fmt.Errorf("failed to record seen urls: %w", err)
	}

	return nil
}

// StaticIndex wraps a fixed set, used in tests and as the union result.
type StaticIndex map[string]struct{}

func (s StaticIndex) Seen(_ context.Context) (map[string]struct{}, error) {
	return s, nil
}

// Union queries every index and merges the results.
func Union(ctx context.Context, indexes ...SeenIndex) (map[string]struct{}, error) {
	merged := make(map[string]struct{})
	for _, idx := range indexes {
		seen, err := idx.Seen(ctx)
		if err != nil {
			return nil, err
		}
		for url := range seen {
			merged[url] = struct{}{}
		}
	}
	return merged, nil
}

// FilterUnseen keeps only links absent from the seen set, preserving order.
func FilterUnseen(links []string, seen map[string]struct{}) []string {
	unseen := make([]string, 0, len(links))
	for _, link := range links {
		if _, ok := seen[link]; !ok {
			unseen = append(unseen, link)
		}
	}
	return unseen
}
