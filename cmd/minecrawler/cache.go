package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/crawlcache"
	apperrors "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/errors"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the on-disk index cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cm, err := a.cacheManager()
			if err != nil {
				return err
			}
			return writeCacheTable(cmd.OutOrStdout(), cm, a.cfg.Cache.Dir)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Remove expired indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cm, err := a.cacheManager()
			if err != nil {
				return err
			}
			n, err := cm.Purge()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries\n", n)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached index and cached query result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cm, err := a.cacheManager()
			if err != nil {
				return err
			}
			n, err := cm.Clear()
			if err != nil {
				return err
			}
			if results, closeFn := a.openResultCache(); results != nil {
				ctx, cancel := context.WithTimeout(cmdContext(cmd), 5*time.Second)
				if err := results.InvalidateAll(ctx); err != nil {
					slog.Warn("failed to flush cached results", "error", err)
				}
				cancel()
				closeFn()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", n)
			return nil
		},
	})
	return cmd
}

func (a *app) cacheManager() (*crawlcache.Manager, error) {
	if a.cfg.Cache.Disabled {
		return nil, fmt.Errorf("%w: the cache is disabled in the configuration", apperrors.ErrInvalidInput)
	}
	return a.openCache()
}

func writeCacheTable(w io.Writer, cm *crawlcache.Manager, root string) error {
	entries := cm.Entries()
	md := markdown.NewMarkdown(w)
	md.PlainTextf("Cache root: %s", root)
	md.PlainText("")
	if len(entries) == 0 {
		md.PlainText("No cached indexes.")
		return md.Build()
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := "valid"
		if cm.Expired(e) {
			status = "expired"
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.Seed,
			strconv.Itoa(e.Depth),
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			status,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Seed", "Depth", "Created", "Status"},
		Rows:   rows,
	})
	return md.Build()
}
