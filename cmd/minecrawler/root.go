package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/metrics"
)

// app is the state shared by every subcommand once the root's pre-run has
// loaded configuration.
type app struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsPort int

	cfg         *config.Config
	metrics     *metrics.Metrics
	stopMetrics func(context.Context) error
}

func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "minecrawler",
		Short: "Crawl a website and search it",
		Long: `minecrawler crawls a website depth-first from a seed URL, builds a
full-text index of every page it reaches and answers a query against it.

Indexes are cached on disk per seed and depth for one hour (configurable),
so repeated searches of the same site skip the crawl.

Run without arguments on a terminal to start the interactive wizard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !stdinIsTerminal(cmd) {
				return cmd.Help()
			}
			return runWizard(cmd, a)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	cmd.PersistentFlags().IntVar(&a.metricsPort, "metrics-port", 0, "serve Prometheus metrics on this port while running")

	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newCacheCmd(a))
	cmd.AddCommand(newDoctorCmd(a))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if a.metricsPort > 0 {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Port = a.metricsPort
	}
	a.cfg = cfg

	// Results go to stdout; logs stay on stderr.
	logger.Setup(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	a.metrics = metrics.New(nil)
	if cfg.Metrics.Enabled {
		a.stopMetrics = metrics.StartServer(cfg.Metrics.Port, a.metrics.Handler())
	}
	slog.Debug("configuration loaded",
		"config", a.configPath,
		"cache_dir", cfg.Cache.Dir,
		"cache_disabled", cfg.Cache.Disabled,
		"redis", cfg.Redis.Enabled,
	)
	return nil
}

func (a *app) teardown() error {
	if a.stopMetrics == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.stopMetrics(ctx); err != nil {
		return fmt.Errorf("stopping metrics server: %w", err)
	}
	return nil
}
