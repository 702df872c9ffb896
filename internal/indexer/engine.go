// Package indexer is the index engine: a Live index built incrementally
// from crawl output and sealed at its first query, or a Cached index opened
// read-only from a sealed segment on disk.
package indexer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/metrics"
)

// Mode selects the index lifecycle.
type Mode int

const (
	// ModeLive is writable until the first Search seals it.
	ModeLive Mode = iota
	// ModeCached is read-only from the start.
	ModeCached
)

func (m Mode) String() string {
	if m == ModeCached {
		return "cached"
	}
	return "live"
}

// DefaultLimit is used when Search is called with a non-positive limit and
// Options does not set one.
const DefaultLimit = 10

// Options configures an index. Dir is the storage location: a Live index
// with an empty Dir lives in memory only; a Cached index requires one.
// Analyzer is ignored in ModeCached, where the configuration persisted at
// seal time is used instead.
type Options struct {
	Dir          string
	Analyzer     tokenizer.Config
	Boosts       ranker.Boosts
	DefaultLimit int
	Metrics      *metrics.Metrics
}

// Writer is the write capability of an unsealed Live index.
type Writer interface {
	Add(doc model.Document) (model.DocID, error)
}

type Stats struct {
	Mode   Mode
	Dir    string
	Docs   int
	Terms  int
	Sealed bool
}

// Index is one index engine instance. All methods are safe for concurrent
// use; Add may run from several crawl workers at once.
type Index struct {
	mode     Mode
	opts     Options
	analyzer *tokenizer.Analyzer
	logger   *slog.Logger

	mu     sync.RWMutex
	sealed bool
	mem    *index.MemoryIndex
	reader *segment.Reader
	exec   *executor.Executor
	closed bool
}

var errIndexClosed = errors.New("index is closed")

// Open creates a fresh Live index or opens the Cached index stored in
// opts.Dir.
func Open(mode Mode, opts Options) (*Index, error) {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.Boosts == (ranker.Boosts{}) {
		opts.Boosts = ranker.DefaultBoosts()
	}
	ix := &Index{
		mode:   mode,
		opts:   opts,
		logger: slog.Default().With("component", "indexer", "mode", mode.String()),
	}

	switch mode {
	case ModeLive:
		ix.mem = index.NewMemoryIndex()
		ix.analyzer = tokenizer.New(opts.Analyzer)
		return ix, nil
	case ModeCached:
		if opts.Dir == "" {
			return nil, fmt.Errorf("opening cached index: %w: no directory", apperrors.ErrInvalidInput)
		}
		reader, err := segment.OpenReader(opts.Dir)
		if err != nil {
			return nil, apperrors.Persistence("opening index", opts.Dir, err)
		}
		ix.reader = reader
		ix.analyzer = tokenizer.New(reader.Analyzer())
		ix.sealed = true
		ix.exec = executor.New(reader, ix.analyzer, opts.Boosts)
		ix.logger.Info("cached index opened",
			"dir", opts.Dir,
			"docs", reader.DocCount(),
			"terms", reader.TermCount(),
		)
		return ix, nil
	}
	return nil, fmt.Errorf("opening index: %w: unknown mode %d", apperrors.ErrInvalidInput, mode)
}

// Writer returns the index's write capability, or false once the index is
// sealed or when it was opened cached.
func (ix *Index) Writer() (Writer, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.mode != ModeLive || ix.sealed {
		return nil, false
	}
	return liveWriter{ix}, true
}

type liveWriter struct{ ix *Index }

func (w liveWriter) Add(doc model.Document) (model.DocID, error) { return w.ix.Add(doc) }

// Add analyzes and indexes doc. It fails with ErrIndexSealed after the
// first Search and always on a cached index.
func (ix *Index) Add(doc model.Document) (model.DocID, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.mode != ModeLive || ix.sealed {
		return 0, fmt.Errorf("adding %s: %w", doc.URL, apperrors.ErrIndexSealed)
	}
	id := ix.mem.AddDocument(doc, map[string][]tokenizer.Token{
		model.FieldTitle: ix.analyzer.Analyze(doc.Title),
		model.FieldBody:  ix.analyzer.Analyze(doc.Body),
	})
	if ix.opts.Metrics != nil {
		ix.opts.Metrics.DocsIndexedTotal.Inc()
	}
	ix.logger.Debug("document indexed", "doc_id", id, "url", doc.URL)
	return id, nil
}

// Seal ends the write phase of a Live index and, when Dir is set, persists
// it as a segment. Sealing happens once; later calls are no-ops. A
// persistence failure still leaves the index sealed and searchable in
// memory.
func (ix *Index) Seal() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.sealLocked()
}

func (ix *Index) sealLocked() error {
	if ix.sealed {
		return nil
	}
	ix.sealed = true
	ix.exec = executor.New(ix.mem, ix.analyzer, ix.opts.Boosts)
	if ix.opts.Dir == "" {
		ix.observeSeal("memory")
		ix.logger.Info("index sealed", "docs", ix.mem.DocCount(), "terms", ix.mem.TermCount())
		return nil
	}

	start := time.Now()
	entries, docs := ix.mem.Snapshot()
	path, err := segment.Write(ix.opts.Dir, segment.Contents{
		Entries:  entries,
		Docs:     docs,
		Analyzer: ix.analyzer.Config(),
	})
	if err != nil {
		ix.observeSeal("error")
		return apperrors.Persistence("writing index", ix.opts.Dir, err)
	}
	ix.observeSeal("persisted")
	ix.logger.Info("index sealed",
		"segment", path,
		"docs", len(docs),
		"terms", len(entries),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (ix *Index) observeSeal(status string) {
	if ix.opts.Metrics != nil {
		ix.opts.Metrics.IndexSealsTotal.WithLabelValues(status).Inc()
	}
}

// Search evaluates query and returns at most limit results ranked by
// descending score. The first call on a Live index seals it. Malformed
// syntax yields an empty result slice together with a *parser.ParseError.
func (ix *Index) Search(query string, limit int) ([]model.QueryResult, error) {
	var sealErr error
	ix.mu.RLock()
	if !ix.sealed {
		ix.mu.RUnlock()
		ix.mu.Lock()
		sealErr = ix.sealLocked()
		ix.mu.Unlock()
		ix.mu.RLock()
	}
	defer ix.mu.RUnlock()

	if sealErr != nil {
		return []model.QueryResult{}, sealErr
	}
	if limit <= 0 {
		limit = ix.opts.DefaultLimit
	}

	if ix.closed {
		return []model.QueryResult{}, errIndexClosed
	}
	q, err := parser.Parse(query)
	if err != nil {
		ix.logger.Debug("query rejected", "query", query, "error", err)
		return []model.QueryResult{}, err
	}
	res, err := ix.exec.Execute(q, limit)
	if err != nil {
		return []model.QueryResult{}, fmt.Errorf("executing %q: %w", query, err)
	}

	results := make([]model.QueryResult, 0, len(res.Results))
	for i, sd := range res.Results {
		doc, ok := ix.document(sd.DocID)
		if !ok {
			return []model.QueryResult{}, fmt.Errorf("document %d missing from stored fields", sd.DocID)
		}
		results = append(results, model.QueryResult{
			Document: doc,
			Rank:     i + 1,
			Score:    sd.Score,
		})
	}
	ix.logger.Debug("search complete",
		"query", query,
		"total_hits", res.TotalHits,
		"returned", len(results),
	)
	return results, nil
}

func (ix *Index) document(id model.DocID) (model.Document, bool) {
	if ix.reader != nil {
		return ix.reader.Document(id)
	}
	return ix.mem.Document(id)
}

func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	st := Stats{Mode: ix.mode, Dir: ix.opts.Dir, Sealed: ix.sealed}
	if ix.reader != nil {
		st.Docs, st.Terms = ix.reader.DocCount(), ix.reader.TermCount()
	} else {
		st.Docs, st.Terms = ix.mem.DocCount(), ix.mem.TermCount()
	}
	return st
}

// Close releases the segment file of a cached index. Closing a Live index
// does not seal it.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.reader == nil || ix.closed {
		return nil
	}
	ix.closed = true
	if err := ix.reader.Close(); err != nil {
		return fmt.Errorf("closing segment: %w", err)
	}
	return nil
}
