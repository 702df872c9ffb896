package ranker

import (
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"
)

func TestTopKOrdersByScoreThenDocID(t *testing.T) {
	scores := map[model.DocID]float64{
		4: 1.0,
		1: 3.0,
		3: 1.0,
		2: 0.5,
		0: 0,
	}
	got := TopK(scores, 0)
	want := []model.DocID{1, 3, 4, 2}
	if len(got) != len(want) {
		t.Fatalf("got %d docs, want %d: %+v", len(got), len(want), got)
	}
	for i, id := range want {
		if got[i].DocID != id {
			t.Errorf("position %d: doc %d, want %d", i, got[i].DocID, id)
		}
	}
}

func TestTopKLimit(t *testing.T) {
	scores := map[model.DocID]float64{0: 0.1, 1: 0.9, 2: 0.5, 3: 0.7, 4: 0.3}
	got := TopK(scores, 1)
	if len(got) != 1 || got[0].DocID != 1 {
		t.Fatalf("TopK(1) = %+v, want doc 1", got)
	}
	got = TopK(scores, 3)
	if len(got) != 3 || got[0].DocID != 1 || got[1].DocID != 3 || got[2].DocID != 2 {
		t.Fatalf("TopK(3) = %+v", got)
	}
}

func TestTopKTieAtCutoffPrefersLowerDocID(t *testing.T) {
	scores := map[model.DocID]float64{7: 1, 2: 1, 5: 1}
	got := TopK(scores, 2)
	if len(got) != 2 || got[0].DocID != 2 || got[1].DocID != 5 {
		t.Fatalf("TopK = %+v, want docs 2 and 5", got)
	}
}

func TestIDF(t *testing.T) {
	if got := IDF(2, 1); got != 1 {
		t.Errorf("IDF(2,1) = %v, want 1", got)
	}
	if IDF(100, 1) <= IDF(100, 50) {
		t.Error("rarer terms must weigh more")
	}
}

func TestTermWeightTitleOutranksBody(t *testing.T) {
	b := DefaultBoosts()
	title := TermWeight(1, 1, b.For(model.FieldTitle), 1, 3)
	body := TermWeight(1, 1, b.For(model.FieldBody), 1, 3)
	if title <= body {
		t.Fatalf("title weight %v should exceed body weight %v", title, body)
	}
	if got := TermWeight(4, 1, 1, 1, 1); math.Abs(got-2) > 1e-9 {
		t.Errorf("sqrt(tf) scaling: got %v, want 2", got)
	}
	if b.For(model.FieldURL) != 1 {
		t.Errorf("unboosted field should weigh 1")
	}
}
