package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/crawlcache"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var pages = map[string]string{
	"/":        `<title>Travel</title><body>Guides for <a href="/tokyo">Tokyo</a> and <a href="/kyoto">Kyoto</a></body>`,
	"/tokyo":   `<title>Tokyo</title><body>The capital. <a href="/weather">weather</a></body>`,
	"/kyoto":   `<title>Kyoto</title><body>Temples near Tokyo.</body>`,
	"/weather": `<title>Weather</title><body>Rain in Tokyo.</body>`,
}

func travelSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html>%s</html>", body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type countingFetcher struct {
	crawler.Fetcher
	calls atomic.Int64
}

func (f *countingFetcher) Fetch(ctx context.Context, rawURL string) (*crawler.Page, error) {
	f.calls.Add(1)
	return f.Fetcher.Fetch(ctx, rawURL)
}

type fixture struct {
	orch    *Orchestrator
	fetcher *countingFetcher
	cache   *crawlcache.Manager
	metrics *metrics.Metrics
	root    string
}

func newFixture(t *testing.T, clock func() time.Time) *fixture {
	t.Helper()
	root := t.TempDir()
	cm, err := crawlcache.New(crawlcache.Config{Root: root, TTL: time.Hour, Clock: clock})
	if err != nil {
		t.Fatal(err)
	}
	f := &countingFetcher{Fetcher: crawler.NewHTTPFetcher(config.Default().Crawler, nil)}
	m := metrics.New(nil)
	return &fixture{
		orch: New(Options{
			Cache:   cm,
			Fetcher: f,
			Crawler: crawler.DefaultOptions(),
			Metrics: m,
		}),
		fetcher: f,
		cache:   cm,
		metrics: m,
		root:    root,
	}
}

func TestFreshCrawlThenCacheHit(t *testing.T) {
	srv := travelSite(t)
	fx := newFixture(t, nil)
	req := Request{Seed: srv.URL + "/", MaxDepth: 3, Query: "Tokyo"}

	first, err := fx.orch.Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if first.Source != SourceCrawl {
		t.Errorf("source = %s", first.Source)
	}
	// Depth 3 fetches the seed and its two children.
	if n := fx.fetcher.calls.Load(); n != 3 {
		t.Errorf("fetches = %d, want 3", n)
	}
	if len(first.Results) != 3 || first.Results[0].Document.Title != "Tokyo" {
		t.Fatalf("results = %+v", first.Results)
	}
	if first.RunID == "" {
		t.Error("missing run id")
	}

	second, err := fx.orch.Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if second.Source != SourceCache {
		t.Errorf("source = %s, want cached", second.Source)
	}
	if n := fx.fetcher.calls.Load(); n != 3 {
		t.Errorf("cache hit must not crawl, fetches = %d", n)
	}
	if len(second.Results) != len(first.Results) {
		t.Fatalf("cached results %d != live results %d", len(second.Results), len(first.Results))
	}
	for i := range first.Results {
		a, b := first.Results[i], second.Results[i]
		if a.Document.URL != b.Document.URL || a.Rank != b.Rank || a.Score != b.Score {
			t.Errorf("result %d differs: live %+v cached %+v", i, a, b)
		}
	}
	if first.RunID == second.RunID {
		t.Error("run ids must differ")
	}
}

func TestForceRecrawlReplacesEntry(t *testing.T) {
	srv := travelSite(t)
	fx := newFixture(t, nil)
	req := Request{Seed: srv.URL + "/", MaxDepth: 2, Query: "travel"}

	if _, err := fx.orch.Run(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	before, ok, _ := fx.cache.Lookup(req.Seed, req.MaxDepth)
	if !ok {
		t.Fatal("first run did not create a cache entry")
	}

	req.ForceRecrawl = true
	out, err := fx.orch.Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if out.Source != SourceCrawl || fx.fetcher.calls.Load() != 2 {
		t.Errorf("source=%s fetches=%d", out.Source, fx.fetcher.calls.Load())
	}
	after, ok, _ := fx.cache.Lookup(req.Seed, req.MaxDepth)
	if !ok || after.ID == before.ID {
		t.Errorf("entry not replaced: before %d after %+v", before.ID, after)
	}
	if _, err := os.Stat(before.Location()); !os.IsNotExist(err) {
		t.Error("old storage should be deleted")
	}
}

func TestExpiredEntryIsRecrawled(t *testing.T) {
	srv := travelSite(t)
	now := time.Now()
	fx := newFixture(t, func() time.Time { return now })
	req := Request{Seed: srv.URL + "/", MaxDepth: 2, Query: "travel"}

	fx.orch.Run(context.Background(), req)
	now = now.Add(2 * time.Hour)
	out, err := fx.orch.Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if out.Source != SourceCrawl || fx.fetcher.calls.Load() != 2 {
		t.Errorf("expired entry should recrawl: source=%s fetches=%d", out.Source, fx.fetcher.calls.Load())
	}
}

func TestParseErrorYieldsEmptyResults(t *testing.T) {
	srv := travelSite(t)
	fx := newFixture(t, nil)

	out, err := fx.orch.Run(context.Background(), Request{Seed: srv.URL + "/", MaxDepth: 3, Query: "title:(tokyo"})
	if err != nil {
		t.Fatalf("parse errors must not fail the run: %v", err)
	}
	if out.Results == nil || len(out.Results) != 0 {
		t.Errorf("results = %#v, want empty", out.Results)
	}
	if !errors.Is(out.ParseErr, apperrors.ErrQueryParse) {
		t.Errorf("parse err = %v", out.ParseErr)
	}
	if got := testutil.ToFloat64(fx.metrics.SearchQueriesTotal.WithLabelValues("parse_error")); got != 1 {
		t.Errorf("parse_error count = %v", got)
	}

	// The crawl still populated the cache.
	if _, ok, _ := fx.cache.Lookup(srv.URL+"/", 3); !ok {
		t.Error("index should be cached despite the bad query")
	}
}

func TestBrokenCachedIndexIsInvalidated(t *testing.T) {
	srv := travelSite(t)
	fx := newFixture(t, nil)
	req := Request{Seed: srv.URL + "/", MaxDepth: 2, Query: "travel"}
	fx.orch.Run(context.Background(), req)

	entry, _, _ := fx.cache.Lookup(req.Seed, req.MaxDepth)
	if err := os.WriteFile(filepath.Join(entry.Location(), "index.seg"), []byte("corrupt"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := fx.orch.Run(context.Background(), req)
	if !errors.Is(err, apperrors.ErrCachePersistence) {
		t.Fatalf("got %v, want persistence error", err)
	}
	if _, ok, _ := fx.cache.Lookup(req.Seed, req.MaxDepth); ok {
		t.Error("broken entry should be invalidated")
	}

	out, err := fx.orch.Run(context.Background(), req)
	if err != nil || out.Source != SourceCrawl {
		t.Errorf("next run should recrawl: out=%+v err=%v", out, err)
	}
}

func TestCancelledCrawlLeavesNoEntry(t *testing.T) {
	srv := travelSite(t)
	fx := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.orch.Run(ctx, Request{Seed: srv.URL + "/", MaxDepth: 3, Query: "tokyo"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
	if len(fx.cache.Entries()) != 0 {
		t.Error("aborted crawl must not leave a cache entry")
	}
}

func TestDisabledCacheKeepsIndexInMemory(t *testing.T) {
	srv := travelSite(t)
	f := &countingFetcher{Fetcher: crawler.NewHTTPFetcher(config.Default().Crawler, nil)}
	orch := New(Options{Fetcher: f, Crawler: crawler.DefaultOptions()})
	req := Request{Seed: srv.URL + "/", MaxDepth: 3, Query: "title:\"Tokyo\"", Limit: 5}

	for i := 0; i < 2; i++ {
		results, err := orch.RunSearch(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].Document.Title != "Tokyo" {
			t.Fatalf("results = %+v", results)
		}
	}
	if n := f.calls.Load(); n != 6 {
		t.Errorf("every run should crawl without a cache, fetches = %d", n)
	}
}

func TestValidate(t *testing.T) {
	bad := []Request{
		{Seed: "", MaxDepth: 2},
		{Seed: "example.com", MaxDepth: 2},
		{Seed: "ftp://example.com/", MaxDepth: 2},
		{Seed: "http://example.com/", MaxDepth: 0},
		{Seed: "http://%zz", MaxDepth: 2},
	}
	for _, req := range bad {
		if err := Validate(req); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("Validate(%+v) = %v", req, err)
		}
	}
	if err := Validate(Request{Seed: "https://example.com/", MaxDepth: 1}); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}

type memStore struct {
	data map[string][]byte
}

func (s *memStore) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) SetBytes(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.data[key] = value
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	prefix := pattern[:len(pattern)-1]
	var n int64
	for k := range s.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func TestResultCacheServesRepeatedQueries(t *testing.T) {
	srv := travelSite(t)
	fx := newFixture(t, nil)
	store := &memStore{data: map[string][]byte{}}
	fx.orch.opts.Results = cache.New(store, time.Minute, fx.metrics)
	req := Request{Seed: srv.URL + "/", MaxDepth: 3, Query: "tokyo"}

	first, err := fx.orch.Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(store.data) != 1 {
		t.Fatalf("fresh crawl should populate the result cache, keys = %d", len(store.data))
	}
	second, err := fx.orch.Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if second.Source != SourceResultCache {
		t.Errorf("source = %s", second.Source)
	}
	if len(second.Results) != len(first.Results) || second.Results[0].Document.URL != first.Results[0].Document.URL {
		t.Errorf("cached results differ: %+v vs %+v", second.Results, first.Results)
	}

	req.ForceRecrawl = true
	if _, err := fx.orch.Run(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if len(store.data) != 1 {
		t.Errorf("recrawl should drop the old entry's results and store new ones, keys = %d", len(store.data))
	}
}
