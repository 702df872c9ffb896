// Package crawler walks a site depth-first from a seed URL, turning every
// fetched page into a model.Document.
//
// Depth counts from 1 at the seed. A page at depth maxDepth is never
// fetched, so crawling to depth 1 yields nothing and depth 2 yields only the
// seed. A page that cannot be fetched ends its branch. A malformed link
// drops that link and, by default, every later link of the same page.
package crawler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"
	apperrors "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/metrics"
)

// Sink receives each crawled document. An error from Sink aborts the crawl.
type Sink func(model.Document) error

type Options struct {
	// Workers > 1 fetches independent branches concurrently.
	Workers int
	// Dedupe skips URLs already visited in this crawl.
	Dedupe bool
	// TruncateOnMalformedLink drops the rest of a page's links after the
	// first malformed one. When false only the malformed link is skipped.
	TruncateOnMalformedLink bool
	Metrics                 *metrics.Metrics
}

func DefaultOptions() Options {
	return Options{Workers: 1, TruncateOnMalformedLink: true}
}

type Stats struct {
	Fetched        int
	Emitted        int
	FetchFailures  int
	MalformedLinks int
}

type Crawler struct {
	fetcher Fetcher
	opts    Options
	logger  *slog.Logger
}

func New(fetcher Fetcher, opts Options) *Crawler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Crawler{
		fetcher: fetcher,
		opts:    opts,
		logger:  slog.Default().With("component", "crawler"),
	}
}

type frame struct {
	url   string
	depth int
}

// run holds the state of one Crawl call.
type run struct {
	c        *Crawler
	maxDepth int
	sink     Sink
	logger   *slog.Logger

	mu      sync.Mutex
	stats   Stats
	visited map[string]bool
}

// Crawl visits seed and its descendants in pre-order, calling sink for each
// fetched page. It returns when the traversal ends, the sink fails or ctx is
// cancelled.
func (c *Crawler) Crawl(ctx context.Context, seed string, maxDepth int, sink Sink) (Stats, error) {
	start := time.Now()
	r := &run{
		c:        c,
		maxDepth: maxDepth,
		sink:     sink,
		logger:   c.logger.With("seed", seed, "max_depth", maxDepth),
	}
	if c.opts.Dedupe {
		r.visited = make(map[string]bool)
	}

	var err error
	if c.opts.Workers > 1 {
		err = r.parallel(ctx, seed)
	} else {
		err = r.sequential(ctx, seed)
	}

	if c.opts.Metrics != nil {
		c.opts.Metrics.CrawlDuration.Observe(time.Since(start).Seconds())
	}
	st := r.snapshot()
	if err != nil {
		r.logger.Warn("crawl aborted", "error", err, "emitted", st.Emitted)
		return st, err
	}
	r.logger.Info("crawl complete",
		"fetched", st.Fetched,
		"emitted", st.Emitted,
		"fetch_failures", st.FetchFailures,
		"malformed_links", st.MalformedLinks,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return st, nil
}

// CrawlAll collects the documents of a crawl into a slice.
func (c *Crawler) CrawlAll(ctx context.Context, seed string, maxDepth int) ([]model.Document, Stats, error) {
	var docs []model.Document
	st, err := c.Crawl(ctx, seed, maxDepth, func(d model.Document) error {
		docs = append(docs, d)
		return nil
	})
	return docs, st, err
}

// sequential keeps an explicit LIFO frontier. Children are pushed in
// reverse so they pop in document order, which reproduces a recursive
// pre-order walk.
func (r *run) sequential(ctx context.Context, seed string) error {
	stack := []frame{{url: seed, depth: 1}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := r.visit(ctx, f)
		if err != nil {
			return err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{url: children[i], depth: f.depth + 1})
		}
	}
	return nil
}

// parallel runs each child branch in the errgroup when a worker slot is
// free and inline otherwise, so the number of goroutines stays bounded.
func (r *run) parallel(ctx context.Context, seed string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.c.opts.Workers)

	var branch func(f frame) error
	branch = func(f frame) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		children, err := r.visit(gctx, f)
		if err != nil {
			return err
		}
		for _, child := range children {
			next := frame{url: child, depth: f.depth + 1}
			if g.TryGo(func() error { return branch(next) }) {
				continue
			}
			if err := branch(next); err != nil {
				return err
			}
		}
		return nil
	}

	g.Go(func() error { return branch(frame{url: seed, depth: 1}) })
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// visit fetches one frame, emits its document and returns the child URLs
// to descend into. A returned error aborts the whole crawl; fetch failures
// only end the branch and are not returned.
func (r *run) visit(ctx context.Context, f frame) ([]string, error) {
	if f.depth >= r.maxDepth {
		return nil, nil
	}
	if r.visited != nil {
		r.mu.Lock()
		seen := r.visited[f.url]
		r.visited[f.url] = true
		r.mu.Unlock()
		if seen {
			return nil, nil
		}
	}

	fetchStart := time.Now()
	page, err := r.c.fetcher.Fetch(ctx, f.url)
	if m := r.c.opts.Metrics; m != nil {
		m.FetchLatency.Observe(time.Since(fetchStart).Seconds())
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.fetchFailed(f, err)
		return nil, nil
	}

	r.mu.Lock()
	r.stats.Fetched++
	err = r.sink(model.Document{URL: f.url, Title: page.Title, Body: page.Body})
	if err == nil {
		r.stats.Emitted++
	}
	r.mu.Unlock()
	if m := r.c.opts.Metrics; m != nil {
		m.PagesFetchedTotal.Inc()
	}
	if err != nil {
		return nil, err
	}

	if f.depth+1 >= r.maxDepth {
		return nil, nil
	}
	return r.children(page), nil
}

func (r *run) children(page *Page) []string {
	out := make([]string, 0, len(page.Links))
	for _, link := range page.Links {
		if link.Err == nil {
			out = append(out, link.URL.String())
			continue
		}
		r.mu.Lock()
		r.stats.MalformedLinks++
		r.mu.Unlock()
		if m := r.c.opts.Metrics; m != nil {
			m.MalformedLinksTotal.Inc()
		}
		if r.c.opts.TruncateOnMalformedLink {
			r.logger.Debug("malformed link, dropping remaining links of page",
				"page", page.URL, "href", link.Raw, "dropped", len(page.Links)-len(out))
			break
		}
		r.logger.Debug("malformed link skipped", "page", page.URL, "href", link.Raw)
	}
	return out
}

func (r *run) fetchFailed(f frame, err error) {
	reason := apperrors.ReasonTransport
	var fe *apperrors.FetchError
	if errors.As(err, &fe) {
		reason = fe.Reason
	}
	r.mu.Lock()
	r.stats.FetchFailures++
	r.mu.Unlock()
	if m := r.c.opts.Metrics; m != nil {
		m.FetchFailuresTotal.WithLabelValues(string(reason)).Inc()
	}
	r.logger.Debug("fetch failed, branch ends", "url", f.url, "depth", f.depth, "reason", reason, "error", err)
}

func (r *run) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
