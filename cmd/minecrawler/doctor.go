package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/health"
	pkgredis "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/redis"
)

var errUnhealthy = errors.New("environment check failed")

func newDoctorCmd(a *app) *cobra.Command {
	var seed string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the cache directory, Redis and optionally a seed URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checker := a.healthChecker(seed)
			report := checker.Run(cmdContext(cmd), 5*time.Second)
			if err := writeHealthTable(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.Status == health.StatusDown {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "also check that this page can be fetched")
	return cmd
}

func (a *app) healthChecker(seed string) *health.Checker {
	cfg := a.cfg
	c := health.NewChecker()

	if cfg.Cache.Disabled {
		c.Register("cache_dir", health.Static(health.StatusUp, "disabled"))
	} else {
		c.Register("cache_dir", health.DirWritable(cfg.Cache.Dir))
	}

	if cfg.Redis.Enabled {
		c.Register("redis", health.Ping(func(ctx context.Context) error {
			client, err := pkgredis.NewClient(cfg.Redis, redisNamespace)
			if err != nil {
				return err
			}
			defer client.Close()
			return client.Ping(ctx)
		}))
	} else {
		c.Register("redis", health.Static(health.StatusUp, "disabled"))
	}

	if seed != "" {
		fetcher := crawler.NewHTTPFetcher(cfg.Crawler, nil)
		c.Register("seed", func(ctx context.Context) health.ComponentHealth {
			page, err := fetcher.Fetch(ctx, seed)
			if err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{
				Status:  health.StatusUp,
				Message: fmt.Sprintf("%q, %d links", page.Title, len(page.Links)),
			}
		})
	}
	return c
}

func writeHealthTable(w io.Writer, report health.Report) error {
	rows := make([][]string, 0, len(report.Components))
	for _, comp := range report.Components {
		msg := comp.Message
		if msg == "" {
			msg = "-"
		}
		rows = append(rows, []string{
			comp.Name,
			string(comp.Status),
			comp.Latency.Round(time.Millisecond).String(),
			msg,
		})
	}
	md := markdown.NewMarkdown(w)
	md.Table(markdown.TableSet{
		Header: []string{"Check", "Status", "Latency", "Detail"},
		Rows:   rows,
	})
	md.PlainTextf("Overall: %s", report.Status)
	return md.Build()
}
