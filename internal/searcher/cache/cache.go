// Package cache memoizes query results of persisted indexes in Redis.
// Keys are scoped to one crawl cache entry, so a recrawl (new entry id or
// creation time) never serves results computed against an older index.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

// Store is the key-value backend; *redis.Client from pkg/redis satisfies it.
type Store interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Scope identifies the index a result was computed against.
type Scope struct {
	EntryID   int64
	CreatedAt time.Time
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache writing entries with the given TTL. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, scope Scope, query string, limit int) ([]model.QueryResult, bool) {
	key := buildKey(scope, query, limit)
	data, ok, err := c.store.GetBytes(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	if err != nil || !ok {
		c.miss()
		return nil, false
	}
	var results []model.QueryResult
	if err := json.Unmarshal(data, &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.ResultCacheTotal.WithLabelValues("hit").Inc()
	}
	c.logger.Debug("cache hit", "query", query, "key", key)
	return results, true
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.ResultCacheTotal.WithLabelValues("miss").Inc()
	}
}

func (c *QueryCache) Set(ctx context.Context, scope Scope, query string, limit int, results []model.QueryResult) {
	key := buildKey(scope, query, limit)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.SetBytes(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns cached results or computes, stores and returns
// them. Concurrent callers for the same key share one computation. Errors
// from computeFn are returned as-is and never cached.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	scope Scope,
	query string,
	limit int,
	computeFn func() ([]model.QueryResult, error),
) ([]model.QueryResult, bool, error) {
	if results, ok := c.Get(ctx, scope, query, limit); ok {
		return results, true, nil
	}
	key := buildKey(scope, query, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		results, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, scope, query, limit, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]model.QueryResult), false, nil
}

// Invalidate drops every cached result of one crawl cache entry.
func (c *QueryCache) Invalidate(ctx context.Context, entryID int64) error {
	deleted, err := c.store.FlushByPattern(ctx, fmt.Sprintf("%s%d:*", keyPrefix, entryID))
	if err != nil {
		return fmt.Errorf("invalidating cached results of entry %d: %w", entryID, err)
	}
	c.logger.Info("cache invalidate", "entry_id", entryID, "keys_deleted", deleted)
	return nil
}

// InvalidateAll drops every cached result.
func (c *QueryCache) InvalidateAll(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func buildKey(scope Scope, query string, limit int) string {
	raw := fmt.Sprintf("%d|%s|limit=%d",
		scope.CreatedAt.UTC().UnixNano(), normalizeQuery(query), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%d:%x", keyPrefix, scope.EntryID, hash[:16])
}

// normalizeQuery renders the parsed form of query, so spacing and keyword
// spelling (AND vs &&) do not split the cache. Unparseable input falls back
// to whitespace-collapsed text.
func normalizeQuery(query string) string {
	if q, err := parser.Parse(query); err == nil {
		return q.String()
	}
	return strings.Join(strings.Fields(query), " ")
}
