package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/orchestrator"
	apperrors "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/errors"
)

const (
	outputConsole = "console"
	outputFile    = "file"

	formatText     = "text"
	formatMarkdown = "markdown"

	defaultDepth = 5
)

type searchOptions struct {
	seed   string
	depth  int
	query  string
	limit  int
	force  bool
	output string
	format string
	trace  bool
}

func (o searchOptions) validate() error {
	if o.output != outputConsole && o.output != outputFile {
		return fmt.Errorf("%w: --output must be %q or %q", apperrors.ErrInvalidInput, outputConsole, outputFile)
	}
	if o.format != formatText && o.format != formatMarkdown {
		return fmt.Errorf("%w: --format must be %q or %q", apperrors.ErrInvalidInput, formatText, formatMarkdown)
	}
	if o.seed == "" {
		return fmt.Errorf("%w: --seed is required", apperrors.ErrInvalidInput)
	}
	return nil
}

func newSearchCmd(a *app) *cobra.Command {
	so := searchOptions{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Crawl a site (or reuse its cached index) and run a query",
		Long: `Search crawls the site below --seed up to --depth, indexes every page and
evaluates --query against the title and body of each page.

Depth counts from 1 at the seed: depth 1 fetches nothing, depth 2 only the
seed, depth 3 the seed and the pages it links to.

Query syntax:
  tokyo weather         either term, pages with both rank higher
  +tokyo -rain          tokyo required, rain excluded
  tokyo AND weather     both required
  "tokyo tower"         phrase
  title:tokyo           field restricted (title, body)
  title:[a TO m]        inclusive term range, {a TO m} exclusive
  tokyo^3               clause boost

Examples:
  minecrawler search --seed https://example.com --depth 3 --query tokyo
  minecrawler search --seed https://example.com --query 'title:"tokyo tower"' --output file --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().NFlag() == 0 && stdinIsTerminal(cmd) {
				return runWizard(cmd, a)
			}
			return runSearch(cmd, a, so)
		},
	}

	cmd.Flags().StringVarP(&so.seed, "seed", "s", "", "URL to start crawling from")
	cmd.Flags().IntVarP(&so.depth, "depth", "d", defaultDepth, "maximum crawl depth, counting the seed as 1")
	cmd.Flags().StringVarP(&so.query, "query", "q", "", "search query")
	cmd.Flags().IntVarP(&so.limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().BoolVarP(&so.force, "force", "f", false, "ignore a cached index and crawl again")
	cmd.Flags().StringVarP(&so.output, "output", "o", outputConsole, "where to write results: console or file")
	cmd.Flags().StringVar(&so.format, "format", formatText, "result format: text or markdown")
	cmd.Flags().BoolVar(&so.trace, "trace", false, "print phase timings to stderr")
	return cmd
}

func runSearch(cmd *cobra.Command, a *app, so searchOptions) error {
	if err := so.validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, closeFn, err := a.newOrchestrator()
	if err != nil {
		return err
	}
	defer closeFn()

	start := time.Now()
	out, err := orch.Run(ctx, orchestrator.Request{
		Seed:         so.seed,
		MaxDepth:     so.depth,
		ForceRecrawl: so.force,
		Query:        so.query,
		Limit:        so.limit,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("search interrupted: %w", err)
		}
		return err
	}

	r := &report{
		Seed:     so.seed,
		Depth:    so.depth,
		Query:    so.query,
		Source:   string(out.Source),
		Elapsed:  time.Since(start),
		Results:  out.Results,
		ParseErr: out.ParseErr,
	}
	stdout := cmd.OutOrStdout()
	writeSummary(stdout, r)

	if so.output == outputFile {
		path, err := writeResultFile(".", so.format, r)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Results were written to %s\n", path)
	} else if err := writeResults(stdout, so.format, r); err != nil {
		return err
	}

	if so.trace && out.Trace != nil {
		out.Trace.Fprint(cmd.ErrOrStderr())
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func stdinIsTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
