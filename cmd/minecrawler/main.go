// Command minecrawler crawls a site from a seed URL, indexes every page it
// reaches and answers a query against that index. Indexes are cached on
// disk per (seed, depth) for an hour.
//
// Usage:
//
//	minecrawler search --seed https://example.com --depth 3 --query 'title:tokyo'
//	minecrawler cache list
//	minecrawler              (interactive wizard)
package main

import (
	"fmt"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/errors"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "minecrawler:", err)
		os.Exit(apperrors.ExitCode(err))
	}
}
