// Package metrics defines the Prometheus metric collectors used by the
// crawler, the index engine, the crawl cache and the orchestrator, and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	PagesFetchedTotal   prometheus.Counter
	FetchFailuresTotal  *prometheus.CounterVec
	MalformedLinksTotal prometheus.Counter
	FetchLatency        prometheus.Histogram
	CrawlDuration       prometheus.Histogram
	DocsIndexedTotal    prometheus.Counter
	IndexSealsTotal     *prometheus.CounterVec
	SearchQueriesTotal  *prometheus.CounterVec
	SearchLatency       *prometheus.HistogramVec
	SearchResultsCount  prometheus.Histogram
	CacheLookupsTotal   *prometheus.CounterVec
	CacheEntries        prometheus.Gauge
	ResultCacheTotal    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry, which keeps repeated construction in tests safe.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		PagesFetchedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_pages_fetched_total",
				Help: "Total pages fetched and parsed successfully.",
			},
		),
		FetchFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_fetch_failures_total",
				Help: "Fetch failures by reason (timeout, http_status, unsupported_content_type, ...).",
			},
			[]string{"reason"},
		),
		MalformedLinksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_malformed_links_total",
				Help: "Links that could not be resolved to an absolute URL.",
			},
		),
		FetchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_fetch_latency_seconds",
				Help:    "Page fetch latency in seconds.",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		),
		CrawlDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_crawl_duration_seconds",
				Help:    "Wall time of a complete crawl.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_docs_indexed_total",
				Help: "Total documents added to live indexes.",
			},
		),
		IndexSealsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_seals_total",
				Help: "Live index seal operations by status.",
			},
			[]string{"status"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, parse_error, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "End-to-end search latency in seconds by index source.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"source"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawl_cache_lookups_total",
				Help: "Crawl cache lookups by outcome (hit, miss, expired).",
			},
			[]string{"outcome"},
		),
		CacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawl_cache_entries",
				Help: "Entries currently recorded in the crawl cache directory.",
			},
		),
		ResultCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "result_cache_requests_total",
				Help: "Redis result cache requests by outcome (hit, miss).",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(
		m.PagesFetchedTotal,
		m.FetchFailuresTotal,
		m.MalformedLinksTotal,
		m.FetchLatency,
		m.CrawlDuration,
		m.DocsIndexedTotal,
		m.IndexSealsTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheLookupsTotal,
		m.CacheEntries,
		m.ResultCacheTotal,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Handler returns the scrape handler for the registry the metrics were
// registered with.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
