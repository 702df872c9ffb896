package executor

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/searcher/ranker"
)

func newExecutor(t *testing.T, docs ...model.Document) *Executor {
	t.Helper()
	a := tokenizer.New(tokenizer.DefaultConfig())
	mi := index.NewMemoryIndex()
	for _, d := range docs {
		mi.AddDocument(d, map[string][]tokenizer.Token{
			model.FieldTitle: a.Analyze(d.Title),
			model.FieldBody:  a.Analyze(d.Body),
		})
	}
	return New(mi, a, ranker.DefaultBoosts())
}

func run(t *testing.T, e *Executor, query string) []ranker.ScoredDoc {
	t.Helper()
	q, err := parser.Parse(query)
	if err != nil {
		t.Fatalf("parse %q: %v", query, err)
	}
	res, err := e.Execute(q, 10)
	if err != nil {
		t.Fatalf("execute %q: %v", query, err)
	}
	return res.Results
}

func ids(docs []ranker.ScoredDoc) []model.DocID {
	out := make([]model.DocID, len(docs))
	for i, d := range docs {
		out[i] = d.DocID
	}
	return out
}

func equal(a, b []model.DocID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestExecute(t *testing.T) {
	e := newExecutor(t,
		model.Document{Title: "Tokyo", Body: "capital city"},
		model.Document{Title: "Kyoto", Body: "old capital near osaka"},
		model.Document{Title: "Osaka", Body: "food city"},
	)

	tests := []struct {
		query string
		want  []model.DocID
	}{
		{"tokyo", []model.DocID{0}},
		{"capital", []model.DocID{0, 1}},
		{"+capital -tokyo", []model.DocID{1}},
		{"-tokyo", nil},
		{"capital AND osaka", []model.DocID{1}},
		{"url:tokyo", nil},
		{"the", nil},
		{`"old capital"`, []model.DocID{1}},
		{`"capital old"`, nil},
	}
	for _, tt := range tests {
		got := ids(run(t, e, tt.query))
		if !equal(got, tt.want) {
			t.Errorf("%q = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestCoordinationFavoursMoreMatches(t *testing.T) {
	e := newExecutor(t,
		model.Document{Body: "tokyo"},
		model.Document{Body: "tokyo tower"},
	)
	got := run(t, e, "tokyo tower")
	if len(got) != 2 || got[0].DocID != 1 {
		t.Fatalf("got %v", got)
	}
	if got[0].Score <= got[1].Score {
		t.Errorf("scores %v", got)
	}
}

func TestRangeIsConstantScore(t *testing.T) {
	e := newExecutor(t,
		model.Document{Body: "apple"},
		model.Document{Body: "banana banana"},
		model.Document{Body: "cherry"},
	)
	got := run(t, e, "body:[apple TO banana]^3")
	if !equal(ids(got), []model.DocID{0, 1}) {
		t.Fatalf("got %v", got)
	}
	for _, d := range got {
		if d.Score != 3 {
			t.Errorf("doc %d score = %v, want 3", d.DocID, d.Score)
		}
	}
	if got := ids(run(t, e, "body:{apple TO cherry}")); !equal(got, []model.DocID{1}) {
		t.Errorf("exclusive range = %v", got)
	}
}
