// Package orchestrator runs one search request end to end: it decides
// between a cached index and a fresh crawl, builds or opens the index and
// executes the query.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/crawlcache"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/tracing"
)

type Request struct {
	Seed         string
	MaxDepth     int
	ForceRecrawl bool
	Query        string
	Limit        int
}

// Source says where the results of a run came from.
type Source string

const (
	SourceCrawl       Source = "live"
	SourceCache       Source = "cached"
	SourceResultCache Source = "result_cache"
)

// Outcome is the full answer to a Request.
type Outcome struct {
	RunID   string
	Results []model.QueryResult
	Source  Source
	// Crawl is zero when no crawl ran.
	Crawl crawler.Stats
	// QueryTime covers query evaluation only, not crawling.
	QueryTime time.Duration
	// ParseErr is set when the query was malformed; Results is then empty.
	ParseErr error
	// Trace times the phases of the run.
	Trace *tracing.Span
}

type Options struct {
	// Cache persists indexes across runs. Nil keeps every index in memory.
	Cache   *crawlcache.Manager
	Fetcher crawler.Fetcher
	Crawler crawler.Options
	// Index supplies analyzer, boosts and default limit. Dir is set per run.
	Index indexer.Options
	// Results memoizes query results of cached indexes. May be nil.
	Results *cache.QueryCache
	Metrics *metrics.Metrics
}

type Orchestrator struct {
	opts Options
}

func New(opts Options) *Orchestrator {
	if opts.Index.DefaultLimit <= 0 {
		opts.Index.DefaultLimit = indexer.DefaultLimit
	}
	if opts.Metrics != nil {
		opts.Index.Metrics = opts.Metrics
		opts.Crawler.Metrics = opts.Metrics
	}
	return &Orchestrator{opts: opts}
}

// Validate checks a request before any work is done.
func Validate(req Request) error {
	u, err := url.Parse(req.Seed)
	if err != nil {
		return fmt.Errorf("%w: seed %q: %v", apperrors.ErrInvalidInput, req.Seed, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: seed %q must be an absolute http(s) URL", apperrors.ErrInvalidInput, req.Seed)
	}
	if req.MaxDepth < 1 {
		return fmt.Errorf("%w: depth must be at least 1, got %d", apperrors.ErrInvalidInput, req.MaxDepth)
	}
	return nil
}

// RunSearch answers req and returns only the ranked results.
func (o *Orchestrator) RunSearch(ctx context.Context, req Request) ([]model.QueryResult, error) {
	out, err := o.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Run answers req. A malformed query is not an error: it is logged and
// reported through Outcome.ParseErr with empty results.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Outcome, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).With("component", "orchestrator", "seed", req.Seed, "depth", req.MaxDepth)
	start := time.Now()
	ctx, span := tracing.Start(ctx, "run", runID)
	defer func() {
		span.End()
		span.Log(log)
	}()

	out := &Outcome{RunID: runID, Trace: span}
	ix, entry, err := o.prepare(ctx, log, req, out)
	if err != nil {
		o.observeQuery("error")
		return nil, err
	}
	defer ix.Close()

	limit := req.Limit
	if limit <= 0 {
		limit = o.opts.Index.DefaultLimit
	}

	qctx, qspan := tracing.StartChild(ctx, "query")
	results, err := o.search(qctx, ix, entry, out, req.Query, limit)
	qspan.End()
	out.QueryTime = qspan.Duration
	qspan.SetAttr("results", len(results))

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrQueryParse):
		log.Warn("query could not be parsed", "query", req.Query, "error", err)
		out.ParseErr = err
		results = []model.QueryResult{}
		o.observeQuery("parse_error")
	case errors.Is(err, apperrors.ErrCachePersistence):
		log.Error("index could not be persisted", "error", err)
		o.invalidate(ctx, log, entry)
		o.observeQuery("error")
		return nil, err
	default:
		o.observeQuery("error")
		return nil, err
	}

	out.Results = results
	if out.ParseErr == nil {
		if len(results) == 0 {
			o.observeQuery("zero_result")
		} else {
			o.observeQuery("hit")
		}
	}
	if m := o.opts.Metrics; m != nil {
		m.SearchLatency.WithLabelValues(string(out.Source)).Observe(time.Since(start).Seconds())
		m.SearchResultsCount.Observe(float64(len(results)))
	}
	log.Info("search complete",
		"source", out.Source,
		"query", req.Query,
		"results", len(results),
		"query_us", out.QueryTime.Microseconds(),
		"total_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// prepare returns a searchable index for req, crawling when no valid cache
// entry exists. entry is nil when the cache is disabled.
func (o *Orchestrator) prepare(ctx context.Context, log *slog.Logger, req Request, out *Outcome) (*indexer.Index, *crawlcache.Entry, error) {
	if o.opts.Cache == nil {
		ix, err := o.crawlInto(ctx, log, req, "", out)
		return ix, nil, err
	}

	_, lspan := tracing.StartChild(ctx, "cache_lookup")
	existing, ok, err := o.opts.Cache.Lookup(req.Seed, req.MaxDepth)
	lspan.SetAttr("hit", ok)
	lspan.End()
	if err != nil {
		return nil, nil, err
	}
	if ok && req.ForceRecrawl {
		log.Info("forced recrawl, dropping cache entry", "entry_id", existing.ID)
		if _, err := o.opts.Cache.Invalidate(req.Seed, req.MaxDepth); err != nil {
			return nil, nil, err
		}
		o.forgetResults(ctx, log, existing.ID)
		ok = false
	}

	if ok {
		opts := o.opts.Index
		opts.Dir = existing.Location()
		_, ospan := tracing.StartChild(ctx, "open_index")
		ix, err := indexer.Open(indexer.ModeCached, opts)
		ospan.End()
		if err != nil {
			log.Error("cached index unreadable", "entry_id", existing.ID, "error", err)
			o.invalidate(ctx, log, &existing)
			return nil, nil, err
		}
		log.Info("using cached index", "entry_id", existing.ID, "created_at", existing.CreatedAt)
		out.Source = SourceCache
		return ix, &existing, nil
	}

	entry, err := o.opts.Cache.Reserve(req.Seed, req.MaxDepth)
	if err != nil {
		return nil, nil, err
	}
	ix, err := o.crawlInto(ctx, log, req, entry.Location(), out)
	if err != nil {
		o.invalidate(ctx, log, &entry)
		return nil, nil, err
	}
	return ix, &entry, nil
}

func (o *Orchestrator) crawlInto(ctx context.Context, log *slog.Logger, req Request, dir string, out *Outcome) (*indexer.Index, error) {
	opts := o.opts.Index
	opts.Dir = dir
	ix, err := indexer.Open(indexer.ModeLive, opts)
	if err != nil {
		return nil, err
	}
	w, _ := ix.Writer()

	log.Info("crawling", "persist", dir != "")
	cctx, span := tracing.StartChild(ctx, "crawl")
	c := crawler.New(o.opts.Fetcher, o.opts.Crawler)
	stats, err := c.Crawl(cctx, req.Seed, req.MaxDepth, func(doc model.Document) error {
		_, err := w.Add(doc)
		return err
	})
	span.SetAttr("emitted", stats.Emitted)
	span.End()
	out.Crawl = stats
	out.Source = SourceCrawl
	if err != nil {
		ix.Close()
		return nil, fmt.Errorf("crawling %s: %w", req.Seed, err)
	}
	return ix, nil
}

func (o *Orchestrator) search(ctx context.Context, ix *indexer.Index, entry *crawlcache.Entry, out *Outcome, query string, limit int) ([]model.QueryResult, error) {
	if o.opts.Results == nil || entry == nil {
		return ix.Search(query, limit)
	}
	scope := cache.Scope{EntryID: entry.ID, CreatedAt: entry.CreatedAt}

	if out.Source == SourceCrawl {
		// Sealing happens inside Search; only a persisted index may seed
		// the result cache.
		results, err := ix.Search(query, limit)
		if err == nil {
			o.opts.Results.Set(ctx, scope, query, limit, results)
		}
		return results, err
	}

	results, hit, err := o.opts.Results.GetOrCompute(ctx, scope, query, limit, func() ([]model.QueryResult, error) {
		return ix.Search(query, limit)
	})
	if hit {
		out.Source = SourceResultCache
	}
	return results, err
}

// invalidate drops a broken or incomplete entry so the next run recrawls.
func (o *Orchestrator) invalidate(ctx context.Context, log *slog.Logger, entry *crawlcache.Entry) {
	if entry == nil || o.opts.Cache == nil {
		return
	}
	if _, err := o.opts.Cache.Invalidate(entry.Seed, entry.Depth); err != nil {
		log.Warn("failed to invalidate cache entry", "entry_id", entry.ID, "error", err)
	}
	o.forgetResults(ctx, log, entry.ID)
}

func (o *Orchestrator) forgetResults(ctx context.Context, log *slog.Logger, entryID int64) {
	if o.opts.Results == nil {
		return
	}
	if err := o.opts.Results.Invalidate(ctx, entryID); err != nil {
		log.Warn("failed to drop cached results", "entry_id", entryID, "error", err)
	}
}

func (o *Orchestrator) observeQuery(resultType string) {
	if o.opts.Metrics != nil {
		o.opts.Metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	}
}
