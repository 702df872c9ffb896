// Package ranker implements TF-IDF term weighting and top-k selection.
package ranker

import (
	"container/heap"
	"math"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"
)

// Boosts weights matches per field. A title match outranks an equal body
// match with the defaults.
type Boosts struct {
	Title float64 `json:"title"`
	Body  float64 `json:"body"`
}

func DefaultBoosts() Boosts {
	return Boosts{Title: 2.0, Body: 1.0}
}

// For returns the boost of field, 1 for fields without one.
func (b Boosts) For(field string) float64 {
	switch field {
	case model.FieldTitle:
		if b.Title > 0 {
			return b.Title
		}
	case model.FieldBody:
		if b.Body > 0 {
			return b.Body
		}
	}
	return 1
}

type ScoredDoc struct {
	DocID model.DocID `json:"doc_id"`
	Score float64     `json:"score"`
}

// IDF is 1 + ln(N / (df + 1)).
func IDF(numDocs, docFreq int) float64 {
	return 1 + math.Log(float64(numDocs)/float64(docFreq+1))
}

// TermWeight scores one term (or phrase) occurring tf times in a field of
// fieldLen tokens: sqrt(tf) * idf^2 * fieldBoost * clauseBoost / sqrt(fieldLen).
func TermWeight(tf int, idf, fieldBoost, clauseBoost float64, fieldLen int) float64 {
	if tf <= 0 {
		return 0
	}
	norm := 1.0
	if fieldLen > 0 {
		norm = 1 / math.Sqrt(float64(fieldLen))
	}
	return math.Sqrt(float64(tf)) * idf * idf * fieldBoost * clauseBoost * norm
}

// Coord scales a boolean match by the fraction of scoring clauses matched.
func Coord(matched, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

// TopK selects the k best documents by descending score, ties broken by
// ascending DocID. Documents with a non-positive score are dropped. A
// non-positive k keeps everything.
func TopK(scores map[model.DocID]float64, k int) []ScoredDoc {
	if k <= 0 {
		k = len(scores)
	}
	h := &scoredDocHeap{}
	for id, score := range scores {
		if score <= 0 {
			continue
		}
		doc := ScoredDoc{DocID: id, Score: score}
		if h.Len() < k {
			heap.Push(h, doc)
			continue
		}
		if k > 0 && worse((*h)[0], doc) {
			(*h)[0] = doc
			heap.Fix(h, 0)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ScoredDoc)
	}
	return result
}

// worse reports whether a ranks below b.
func worse(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.DocID > b.DocID
}

// scoredDocHeap is a min-heap on rank: the root is the worst kept document.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return worse(h[i], h[j]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
