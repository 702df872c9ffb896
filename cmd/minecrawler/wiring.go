package main

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/crawlcache"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/orchestrator"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/config"
	pkgredis "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/redis"
)

// redisNamespace prefixes every key the result cache writes.
const redisNamespace = config.AppName

func (a *app) openCache() (*crawlcache.Manager, error) {
	return crawlcache.New(crawlcache.Config{
		Root:    a.cfg.Cache.Dir,
		TTL:     a.cfg.Cache.TTL,
		Metrics: a.metrics,
	})
}

// openResultCache connects to Redis when enabled. An unreachable server
// only disables result caching.
func (a *app) openResultCache() (*cache.QueryCache, func()) {
	if !a.cfg.Redis.Enabled {
		return nil, func() {}
	}
	client, err := pkgredis.NewClient(a.cfg.Redis, redisNamespace)
	if err != nil {
		slog.Warn("redis unavailable, result caching disabled", "error", err)
		return nil, func() {}
	}
	slog.Info("result cache enabled", "addr", a.cfg.Redis.Addr, "ttl", a.cfg.Redis.CacheTTL)
	return cache.New(client, a.cfg.Redis.CacheTTL, a.metrics), func() { client.Close() }
}

func (a *app) newOrchestrator() (*orchestrator.Orchestrator, func(), error) {
	cfg := a.cfg
	opts := orchestrator.Options{
		Fetcher: crawler.NewHTTPFetcher(cfg.Crawler, nil),
		Crawler: crawler.Options{
			Workers:                 cfg.Crawler.Workers,
			Dedupe:                  cfg.Crawler.Dedupe,
			TruncateOnMalformedLink: !cfg.Crawler.SkipMalformedLinks,
		},
		Index: indexer.Options{
			Analyzer: tokenizer.Config{
				StopWords: cfg.Index.StopWords,
				Stem:      cfg.Index.Stem,
				MinLength: tokenizer.DefaultConfig().MinLength,
			},
			Boosts:       ranker.Boosts{Title: cfg.Index.TitleBoost, Body: cfg.Index.BodyBoost},
			DefaultLimit: cfg.Index.DefaultLimit,
		},
		Metrics: a.metrics,
	}
	if cfg.Cache.Disabled {
		return orchestrator.New(opts), func() {}, nil
	}

	cm, err := a.openCache()
	if err != nil {
		return nil, nil, err
	}
	opts.Cache = cm
	var closeRedis func()
	opts.Results, closeRedis = a.openResultCache()
	return orchestrator.New(opts), closeRedis, nil
}
