// Package model holds the value types shared by the crawler, the index
// engine and the orchestrator.
package model

// DocID is the ordinal an index engine assigns at Add time. IDs follow
// insertion order and are only meaningful within one index.
type DocID uint32

// Field names of an indexed document.
const (
	FieldTitle = "title"
	FieldBody  = "body"
	FieldURL   = "url"
)

// SearchableFields are the fields a bare query term is matched against.
var SearchableFields = []string{FieldTitle, FieldBody}

// Document is one crawled page. The crawler leaves ID zero; the index
// assigns it.
type Document struct {
	ID    DocID  `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// QueryResult pairs a document with its 1-based rank and relevance score.
type QueryResult struct {
	Document Document `json:"document"`
	Rank     int      `json:"rank"`
	Score    float64  `json:"score"`
}
