// Package executor evaluates parsed queries against a TermSource and
// scores the matching documents.
package executor

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/ranker"
)

// TermSource is the read side of an index: the in-memory index of a live
// engine and the segment reader of a cached one both satisfy it.
type TermSource interface {
	DocCount() int
	Postings(field, term string) (index.PostingList, error)
	DocFreq(field, term string) int
	Terms(field string) []string
	FieldLength(field string, id model.DocID) int
}

type SearchResult struct {
	TotalHits int
	Results   []ranker.ScoredDoc
}

type Executor struct {
	src      TermSource
	analyzer *tokenizer.Analyzer
	boosts   ranker.Boosts
	logger   *slog.Logger
}

func New(src TermSource, analyzer *tokenizer.Analyzer, boosts ranker.Boosts) *Executor {
	return &Executor{
		src:      src,
		analyzer: analyzer,
		boosts:   boosts,
		logger:   slog.Default().With("component", "query-executor"),
	}
}

// scores maps matching documents to their score for one clause.
type scores map[model.DocID]float64

var searchable = func() map[string]bool {
	m := make(map[string]bool, len(model.SearchableFields))
	for _, f := range model.SearchableFields {
		m[f] = true
	}
	return m
}()

// Execute evaluates q and returns the top limit documents.
func (e *Executor) Execute(q *parser.BooleanQuery, limit int) (*SearchResult, error) {
	matched, _, err := e.eval(q)
	if err != nil {
		return nil, err
	}
	ranked := ranker.TopK(matched, limit)
	total := 0
	for _, s := range matched {
		if s > 0 {
			total++
		}
	}
	e.logger.Debug("query executed",
		"query", q.String(),
		"candidates", total,
		"results", len(ranked),
	)
	return &SearchResult{TotalHits: total, Results: ranked}, nil
}

// eval returns the scored matches of node. present is false when analysis
// removed the clause entirely (a stop-word only term, say); such clauses
// neither restrict nor count towards coordination.
func (e *Executor) eval(node parser.Node) (scores, bool, error) {
	switch q := node.(type) {
	case *parser.TermQuery:
		if q.Field == "" {
			return e.eval(expand(func(f string) parser.Node {
				return &parser.TermQuery{Field: f, Text: q.Text, Boost: q.Boost}
			}))
		}
		return e.evalText(q.Field, q.Text, q.Boost)
	case *parser.PhraseQuery:
		if q.Field == "" {
			return e.eval(expand(func(f string) parser.Node {
				return &parser.PhraseQuery{Field: f, Text: q.Text, Boost: q.Boost}
			}))
		}
		return e.evalText(q.Field, q.Text, q.Boost)
	case *parser.RangeQuery:
		if q.Field == "" {
			return e.eval(expand(func(f string) parser.Node {
				c := *q
				c.Field = f
				return &c
			}))
		}
		return e.evalRange(q)
	case *parser.BooleanQuery:
		return e.evalBoolean(q)
	}
	return nil, false, fmt.Errorf("unsupported query node %T", node)
}

func expand(with func(field string) parser.Node) *parser.BooleanQuery {
	bq := &parser.BooleanQuery{Boost: 1}
	for _, f := range model.SearchableFields {
		bq.Clauses = append(bq.Clauses, parser.Clause{Occur: parser.Should, Query: with(f)})
	}
	return bq
}

// evalText analyzes text for field. One token is a term lookup; several
// tokens must appear as a phrase.
func (e *Executor) evalText(field, text string, boost float64) (scores, bool, error) {
	tokens := e.analyzer.Analyze(text)
	if len(tokens) == 0 {
		return nil, false, nil
	}
	if !searchable[field] {
		return scores{}, true, nil
	}
	if len(tokens) == 1 {
		s, err := e.evalTerm(field, tokens[0].Term, boost)
		return s, true, err
	}
	s, err := e.evalPhrase(field, tokens, boost)
	return s, true, err
}

func (e *Executor) evalTerm(field, term string, boost float64) (scores, error) {
	postings, err := e.src.Postings(field, term)
	if err != nil {
		return nil, fmt.Errorf("reading postings for %s:%s: %w", field, term, err)
	}
	out := make(scores, len(postings))
	if len(postings) == 0 {
		return out, nil
	}
	idf := ranker.IDF(e.src.DocCount(), len(postings))
	fieldBoost := e.boosts.For(field)
	for _, p := range postings {
		out[p.DocID] = ranker.TermWeight(p.Frequency, idf, fieldBoost, boost, e.src.FieldLength(field, p.DocID))
	}
	return out, nil
}

func (e *Executor) evalPhrase(field string, tokens []tokenizer.Token, boost float64) (scores, error) {
	lists := make([]map[model.DocID][]int, len(tokens))
	idf := 0.0
	for i, tok := range tokens {
		postings, err := e.src.Postings(field, tok.Term)
		if err != nil {
			return nil, fmt.Errorf("reading postings for %s:%s: %w", field, tok.Term, err)
		}
		if len(postings) == 0 {
			return scores{}, nil
		}
		idf += ranker.IDF(e.src.DocCount(), len(postings))
		byDoc := make(map[model.DocID][]int, len(postings))
		for _, p := range postings {
			byDoc[p.DocID] = p.Positions
		}
		lists[i] = byDoc
	}

	out := make(scores)
	fieldBoost := e.boosts.For(field)
	for id, firstPositions := range lists[0] {
		freq := 0
		for _, start := range firstPositions {
			if phraseAt(lists, tokens, id, start) {
				freq++
			}
		}
		if freq > 0 {
			out[id] = ranker.TermWeight(freq, idf, fieldBoost, boost, e.src.FieldLength(field, id))
		}
	}
	return out, nil
}

// phraseAt reports whether every token occurs in doc id at its offset from
// start. Offsets come from the query's own positions, so stop-word gaps in
// the query must match gaps in the document.
func phraseAt(lists []map[model.DocID][]int, tokens []tokenizer.Token, id model.DocID, start int) bool {
	for i := 1; i < len(tokens); i++ {
		positions, ok := lists[i][id]
		if !ok {
			return false
		}
		want := start + tokens[i].Position - tokens[0].Position
		j := sort.SearchInts(positions, want)
		if j >= len(positions) || positions[j] != want {
			return false
		}
	}
	return true
}

func (e *Executor) evalRange(q *parser.RangeQuery) (scores, bool, error) {
	out := make(scores)
	if !searchable[q.Field] {
		return out, true, nil
	}
	terms := e.src.Terms(q.Field)
	i := 0
	if q.Lower != "" {
		i = sort.SearchStrings(terms, q.Lower)
	}
	for ; i < len(terms); i++ {
		term := terms[i]
		if q.Lower != "" && !q.IncludeLower && term == q.Lower {
			continue
		}
		if q.Upper != "" {
			if term > q.Upper || (!q.IncludeUpper && term == q.Upper) {
				break
			}
		}
		postings, err := e.src.Postings(q.Field, term)
		if err != nil {
			return nil, true, fmt.Errorf("reading postings for %s:%s: %w", q.Field, term, err)
		}
		for _, p := range postings {
			out[p.DocID] = q.Boost
		}
	}
	return out, true, nil
}

func (e *Executor) evalBoolean(q *parser.BooleanQuery) (scores, bool, error) {
	var must, should, mustNot []scores
	for _, c := range q.Clauses {
		s, present, err := e.eval(c.Query)
		if err != nil {
			return nil, false, err
		}
		if !present {
			continue
		}
		switch c.Occur {
		case parser.Must:
			must = append(must, s)
		case parser.MustNot:
			mustNot = append(mustNot, s)
		default:
			should = append(should, s)
		}
	}
	scoring := len(must) + len(should)
	if scoring == 0 {
		return scores{}, len(mustNot) > 0, nil
	}

	candidates := make(map[model.DocID]struct{})
	if len(must) > 0 {
		for id := range must[0] {
			candidates[id] = struct{}{}
		}
		for _, s := range must[1:] {
			for id := range candidates {
				if _, ok := s[id]; !ok {
					delete(candidates, id)
				}
			}
		}
	} else {
		for _, s := range should {
			for id := range s {
				candidates[id] = struct{}{}
			}
		}
	}
	for _, s := range mustNot {
		for id := range s {
			delete(candidates, id)
		}
	}

	boost := q.Boost
	if boost == 0 {
		boost = 1
	}
	out := make(scores, len(candidates))
	for id := range candidates {
		sum, matched := 0.0, 0
		for _, list := range [][]scores{must, should} {
			for _, s := range list {
				if v, ok := s[id]; ok {
					sum += v
					matched++
				}
			}
		}
		out[id] = sum * ranker.Coord(matched, scoring) * boost
	}
	return out, true, nil
}
