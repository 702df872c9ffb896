package benchmark

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/ranker"
)

var queries = []struct {
	name  string
	query string
}{
	{"term", "tokyo"},
	{"two_terms", "tokyo weather"},
	{"boolean", "+tokyo -museum market"},
	{"and_or", "tokyo AND (temple OR garden)"},
	{"phrase", `"tokyo near"`},
	{"field", "title:tower"},
	{"range", "body:[ma TO tz]"},
	{"boosted", "tokyo^3 title:garden^2"},
}

// BenchmarkQueryParse measures parsing latency for queries of varying
// complexity.
func BenchmarkQueryParse(b *testing.B) {
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := parser.Parse(q.query); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkTopK measures selection of the best ten scores.
func BenchmarkTopK(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		scores := make(map[model.DocID]float64, n)
		for i := 0; i < n; i++ {
			scores[model.DocID(i)] = float64((i*7919)%1000) / 100
		}
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = ranker.TopK(scores, 10)
			}
		})
	}
}

// BenchmarkExecutor evaluates parsed queries over 10 000 documents held in
// memory.
func BenchmarkExecutor(b *testing.B) {
	mi := filledMemoryIndex(10000)
	exec := executor.New(mi, tokenizer.New(tokenizer.DefaultConfig()), ranker.DefaultBoosts())
	for _, q := range queries {
		parsed, err := parser.Parse(q.query)
		if err != nil {
			b.Fatal(err)
		}
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := exec.Execute(parsed, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSearchLiveVsCached compares end-to-end Search on a sealed live
// index with the same index reopened from disk.
func BenchmarkSearchLiveVsCached(b *testing.B) {
	dir := b.TempDir()
	live, err := indexer.Open(indexer.ModeLive, indexer.Options{Dir: dir})
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 5000; i++ {
		live.Add(page(i))
	}
	if err := live.Seal(); err != nil {
		b.Fatal(err)
	}
	cached, err := indexer.Open(indexer.ModeCached, indexer.Options{Dir: dir})
	if err != nil {
		b.Fatal(err)
	}
	defer cached.Close()

	for name, ix := range map[string]*indexer.Index{"live": live, "cached": cached} {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := ix.Search("tokyo weather", 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSearchParallel measures concurrent Search throughput on one
// sealed index.
func BenchmarkSearchParallel(b *testing.B) {
	ix, err := indexer.Open(indexer.ModeLive, indexer.Options{})
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 5000; i++ {
		ix.Add(page(i))
	}
	ix.Seal()
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := ix.Search(terms[i%len(terms)], 10); err != nil {
				b.Fatal(err)
			}
			i++
		}
	})
}
