package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/errors"
)

// wizard asks for the search parameters one line at a time.
type wizard struct {
	in  *bufio.Reader
	out io.Writer
}

func runWizard(cmd *cobra.Command, a *app) error {
	so, err := newWizard(cmd.InOrStdin(), cmd.OutOrStdout()).ask()
	if err != nil {
		return err
	}
	return runSearch(cmd, a, so)
}

func newWizard(in io.Reader, out io.Writer) *wizard {
	return &wizard{in: bufio.NewReader(in), out: out}
}

func (w *wizard) ask() (searchOptions, error) {
	so := searchOptions{limit: 10, format: formatText}
	var err error
	if so.seed, err = w.askSeed(); err != nil {
		return so, err
	}
	if so.depth, err = w.askDepth(); err != nil {
		return so, err
	}
	console, err := w.askYesNo("Print the results on the console (Y) or write them to a file (N)?")
	if err != nil {
		return so, err
	}
	so.output = outputFile
	if console {
		so.output = outputConsole
	}
	if so.force, err = w.askYesNo("Ignore a cached index and crawl again (Y) or use the cache if possible (N)?"); err != nil {
		return so, err
	}
	fmt.Fprintln(w.out, "Enter your search query")
	if so.query, err = w.line(); err != nil {
		return so, err
	}
	return so, nil
}

func (w *wizard) line() (string, error) {
	s, err := w.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: input ended before the wizard finished", apperrors.ErrInvalidInput)
		}
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (w *wizard) askSeed() (string, error) {
	fmt.Fprintln(w.out, "URL to start crawling from")
	for {
		s, err := w.line()
		if err != nil {
			return "", err
		}
		if u, err := url.Parse(s); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
			return s, nil
		}
		fmt.Fprintln(w.out, "This is not a valid http(s) URL, please enter another one")
	}
}

func (w *wizard) askDepth() (int, error) {
	fmt.Fprintf(w.out, "Maximum crawl depth (enter nothing for the default %d)\n", defaultDepth)
	s, err := w.line()
	if err != nil {
		return 0, err
	}
	if s == "" {
		return defaultDepth, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		fmt.Fprintf(w.out, "Not a positive number, using %d\n", defaultDepth)
		return defaultDepth, nil
	}
	return n, nil
}

func (w *wizard) askYesNo(question string) (bool, error) {
	fmt.Fprintln(w.out, question)
	s, err := w.line()
	if err != nil {
		return false, err
	}
	return strings.EqualFold(s, "y"), nil
}
