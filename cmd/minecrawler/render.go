package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/nao1215/markdown"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"
)

// report is everything one search prints.
type report struct {
	Seed     string
	Depth    int
	Query    string
	Source   string
	Elapsed  time.Duration
	Results  []model.QueryResult
	ParseErr error
}

var label = color.New(color.Bold).SprintFunc()

// formatElapsed splits d into whole seconds, milliseconds and microseconds.
func formatElapsed(d time.Duration) string {
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	d -= ms * time.Millisecond
	us := d / time.Microsecond
	return fmt.Sprintf("Query executed in %ds %dms %dmicro", s, ms, us)
}

func writeSummary(w io.Writer, r *report) {
	fmt.Fprintf(w, "Max Depth: %d\n", r.Depth)
	fmt.Fprintf(w, "Query: %s\n", r.Query)
	if r.ParseErr != nil {
		fmt.Fprintf(w, "Invalid query: %v\n", r.ParseErr)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Results: %d\n", len(r.Results))
	fmt.Fprintln(w, formatElapsed(r.Elapsed))
	fmt.Fprintln(w)
}

func writeResults(w io.Writer, format string, r *report) error {
	if format == formatMarkdown {
		return writeMarkdown(w, r)
	}
	writeText(w, r.Results)
	return nil
}

func writeText(w io.Writer, results []model.QueryResult) {
	for _, res := range results {
		fmt.Fprintf(w, "%s %d\n", label("Rank:"), res.Rank)
		fmt.Fprintf(w, "%s %s\n", label("Score:"), formatScore(res.Score))
		fmt.Fprintf(w, "%s %s\n", label("URL:"), res.Document.URL)
		fmt.Fprintf(w, "%s %s\n", label("Title:"), res.Document.Title)
		fmt.Fprintf(w, "%s %s\n", label("Text:"), res.Document.Body)
		fmt.Fprintln(w)
	}
}

func writeMarkdown(w io.Writer, r *report) error {
	md := markdown.NewMarkdown(w)
	md.H1("Search results")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", r.Seed},
			{"Max depth", strconv.Itoa(r.Depth)},
			{"Query", "`" + r.Query + "`"},
			{"Index", r.Source},
			{"Results", strconv.Itoa(len(r.Results))},
			{"Elapsed", r.Elapsed.Round(time.Microsecond).String()},
		},
	})
	md.PlainText("")

	if len(r.Results) == 0 {
		md.PlainText("No documents matched.")
		return md.Build()
	}
	for _, res := range r.Results {
		title := res.Document.Title
		if title == "" {
			title = res.Document.URL
		}
		md.H2(fmt.Sprintf("%d. %s", res.Rank, escapeMarkdown(title)))
		md.PlainText("")
		md.BulletList(
			"Score: "+formatScore(res.Score),
			"URL: <"+res.Document.URL+">",
		)
		md.PlainText("")
		md.PlainText(escapeMarkdown(res.Document.Body))
		md.PlainText("")
	}
	return md.Build()
}

// writeResultFile writes the results to the first unused result<i> file in
// dir and returns its path.
func writeResultFile(dir, format string, r *report) (string, error) {
	ext := ".txt"
	if format == formatMarkdown {
		ext = ".md"
	}
	f, err := createResultFile(dir, ext)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if format == formatMarkdown {
		err = writeMarkdown(f, r)
	} else {
		writeText(f, r.Results)
	}
	if err == nil {
		err = f.Close()
	}
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}

func createResultFile(dir, ext string) (*os.File, error) {
	for i := 0; ; i++ {
		path := filepath.Join(dir, "result"+strconv.Itoa(i)+ext)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating result file: %w", err)
		}
	}
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'g', 6, 64)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`, "<", `&lt;`, ">", `&gt;`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
